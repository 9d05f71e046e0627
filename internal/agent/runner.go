package agent

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/buildagent/internal/acquire"
	"git.home.luguber.info/inful/buildagent/internal/dispatch"
	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
	"git.home.luguber.info/inful/buildagent/internal/gitcli"
	"git.home.luguber.info/inful/buildagent/internal/journal"
	"git.home.luguber.info/inful/buildagent/internal/logfields"
	"git.home.luguber.info/inful/buildagent/internal/metrics"
	"git.home.luguber.info/inful/buildagent/internal/trace"
	"git.home.luguber.info/inful/buildagent/internal/urlutil"
	"git.home.luguber.info/inful/buildagent/internal/worker"
)

// RunnerConfig carries the agent-level settings each acquisition inherits.
type RunnerConfig struct {
	TempDir          string
	Proxy            urlutil.ProxySettings
	Certs            acquire.CertificateBundle
	System           acquire.SystemConnection
	SelfManagedCreds bool
	Binary           gitcli.BinaryOptions
}

// NewJobRunner builds the worker runner that acquires every repository of a
// job sequentially. Each job gets its own git client and secret registry so
// concurrent jobs never share masking state.
func NewJobRunner(cfg RunnerConfig, jr *journal.Store, recorder metrics.Recorder) worker.JobRunner {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return func(ctx context.Context, job *dispatch.JobRequest) error {
		logger := slog.Default().With(logfields.JobID(job.JobID))
		sink := trace.NewSlogSink(logger, trace.NewRegistry())

		git, err := gitcli.NewClient(ctx, sink, cfg.Binary)
		if err != nil {
			return err
		}
		logger.Info("Using git", logfields.Path(git.Path()), slog.String("version", git.Version().String()))

		acq := acquire.New(git, sink, jr)
		credential := job.Credential.ToCredential()
		for _, desc := range job.Repositories {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			err := acq.Acquire(ctx, acquire.Options{
				Descriptor:       desc,
				Credential:       credential,
				Certs:            cfg.Certs,
				Proxy:            cfg.Proxy,
				System:           cfg.System,
				SelfManagedCreds: cfg.SelfManagedCreds,
				TempDir:          cfg.TempDir,
			})
			recorder.ObserveAcquisitionDuration(desc.Alias, time.Since(start), err == nil)
			if err != nil {
				recorder.IncAcquisitionOutcome(outcomeOf(err))
				logger.Error("Acquisition failed",
					logfields.Alias(desc.Alias), logfields.URL(desc.URL), logfields.Error(err))
				return err
			}
			recorder.IncAcquisitionOutcome(metrics.ResultSuccess)
			logger.Info("Acquisition complete",
				logfields.Alias(desc.Alias), logfields.Target(desc.TargetPath))
		}
		return nil
	}
}

func outcomeOf(err error) metrics.ResultLabel {
	switch {
	case err == nil:
		return metrics.ResultSuccess
	case agerrors.IsCanceled(err):
		return metrics.ResultCanceled
	default:
		return metrics.ResultFailed
	}
}
