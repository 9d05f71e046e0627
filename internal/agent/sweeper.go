package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/buildagent/internal/logfields"
	"git.home.luguber.info/inful/buildagent/internal/workspace"
)

// Sweeper periodically removes stale askpass helpers from the agent temp
// directory. Crashed or canceled acquisitions and acquisitions that expose
// credentials leave them behind; each holds a secret, and anything older than
// the max age is removed.
type Sweeper struct {
	scheduler gocron.Scheduler
	tempDir   string
	maxAge    time.Duration
}

// NewSweeper creates the hourly sweep job over tempDir.
func NewSweeper(tempDir string, maxAge time.Duration) (*Sweeper, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	sw := &Sweeper{scheduler: s, tempDir: tempDir, maxAge: maxAge}
	_, err = s.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(sw.sweep),
		gocron.WithName("askpass-sweep"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create sweep job: %w", err)
	}
	return sw, nil
}

// Start begins the schedule and runs one sweep immediately.
func (s *Sweeper) Start(ctx context.Context) {
	s.sweep()
	s.scheduler.Start()
}

// Stop shuts the scheduler down.
func (s *Sweeper) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *Sweeper) sweep() {
	if removed := workspace.SweepAskpassHelpers(s.tempDir, s.maxAge); removed > 0 {
		slog.Info("Removed stale askpass helpers",
			logfields.Path(s.tempDir), slog.Int("removed", removed))
	}
}
