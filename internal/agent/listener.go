// Package agent hosts the run loop: one session with the dispatcher, a
// serialized message pump, and cancellation-safe teardown.
package agent

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/buildagent/internal/dispatch"
	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
	"git.home.luguber.info/inful/buildagent/internal/logfields"
	"git.home.luguber.info/inful/buildagent/internal/metrics"
)

// deleteTimeout bounds each message deletion independently of the loop's
// cancellation state.
const deleteTimeout = 30 * time.Second

// JobDispatcher is the worker-side surface the listener drives.
type JobDispatcher interface {
	Run(job *dispatch.JobRequest)
	Cancel(c *dispatch.JobCancel) bool
	Shutdown(ctx context.Context) error
}

// Listener pumps dispatcher messages into the worker dispatcher. Message
// fetch, dispatch, and deletion are serialized; the worker owns job
// concurrency.
type Listener struct {
	client     dispatch.Client
	dispatcher JobDispatcher
	recorder   metrics.Recorder
	poolID     string

	sessionID string
	// autoUpdate gates the cancel-message skip rule: a rejected cancel
	// during an auto-update must redeliver after the update completes.
	autoUpdate atomic.Bool
}

// NewListener builds a run loop over the given transport and dispatcher.
func NewListener(client dispatch.Client, dispatcher JobDispatcher, recorder metrics.Recorder, poolID string) *Listener {
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	return &Listener{
		client:     client,
		dispatcher: dispatcher,
		recorder:   recorder,
		poolID:     poolID,
	}
}

// SetAutoUpdateInProgress flags an in-flight agent self-update.
func (l *Listener) SetAutoUpdateInProgress(v bool) { l.autoUpdate.Store(v) }

// Run opens the session and pumps messages until ctx is canceled, then
// drains the worker and deletes the session. The returned error is non-nil
// only when the session could not be created.
func (l *Listener) Run(ctx context.Context) error {
	sessionID, err := l.client.CreateSession(ctx)
	if err != nil {
		return agerrors.SessionError(err)
	}
	l.sessionID = sessionID

	for {
		if ctx.Err() != nil {
			break
		}
		msg, err := l.client.GetNextMessage(ctx)
		if err != nil {
			if agerrors.IsCanceled(err) || ctx.Err() != nil {
				break
			}
			slog.Error("Could not get next message", logfields.Error(err))
			continue
		}
		if msg == nil {
			continue // empty long-poll window
		}
		l.handleMessage(ctx, msg)
	}

	l.teardown()
	return nil
}

// handleMessage routes one message and guarantees the ack-or-skip decision
// runs even when dispatch misbehaves.
func (l *Listener) handleMessage(ctx context.Context, msg *dispatch.Message) {
	l.recorder.IncMessage(msg.MessageType)
	skipDelete := false
	defer func() {
		if skipDelete {
			slog.Info("Leaving message for redelivery", logfields.MessageID(msg.MessageID))
			return
		}
		dctx, cancel := context.WithTimeout(context.Background(), deleteTimeout)
		defer cancel()
		if err := l.client.DeleteMessage(dctx, l.poolID, msg.MessageID, l.sessionID); err != nil {
			slog.Warn("Could not delete message", logfields.MessageID(msg.MessageID), logfields.Error(err))
		}
	}()

	switch {
	case msg.Is(dispatch.TypeRefresh):
		// Reserved for self-update coordination; acknowledged as a no-op.
		slog.Debug("Refresh message acknowledged", logfields.MessageID(msg.MessageID))

	case msg.Is(dispatch.TypeJobRequest):
		req, err := dispatch.DecodeJobRequest(msg.Body)
		if err != nil {
			slog.Error("Undecodable job request", logfields.MessageID(msg.MessageID), logfields.Error(err))
			return
		}
		slog.Info("Job request received", logfields.JobID(req.JobID), logfields.MessageID(msg.MessageID))
		l.dispatcher.Run(req)

	case msg.Is(dispatch.TypeJobCancel):
		c, err := dispatch.DecodeJobCancel(msg.Body)
		if err != nil {
			slog.Error("Undecodable job cancel", logfields.MessageID(msg.MessageID), logfields.Error(err))
			return
		}
		accepted := l.dispatcher.Cancel(c)
		if !accepted && l.autoUpdate.Load() {
			// The job may belong to the post-update process; keep the
			// message so it redelivers once the update completes.
			skipDelete = true
		}

	default:
		slog.Warn("Unknown message type",
			logfields.MessageType(msg.MessageType), logfields.MessageID(msg.MessageID))
	}
}

// teardown drains in-flight jobs, then deletes the session best-effort.
func (l *Listener) teardown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := l.dispatcher.Shutdown(shutdownCtx); err != nil {
		slog.Warn("Worker dispatcher shutdown incomplete", logfields.Error(err))
	}
	delCtx, cancelDel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelDel()
	if err := l.client.DeleteSession(delCtx); err != nil {
		slog.Warn("Could not delete session", logfields.Error(err))
	} else {
		slog.Info("Dispatcher session deleted", logfields.SessionID(l.sessionID))
	}
}
