package dispatch

import "context"

// Client is the dispatcher RPC surface the run loop consumes. The NATS
// implementation is the production transport; tests substitute scripted
// fakes.
type Client interface {
	// CreateSession opens a session; the returned id identifies the agent to
	// the dispatcher for the lifetime of the run loop.
	CreateSession(ctx context.Context) (string, error)
	// GetNextMessage long-polls for the next message. Transient transport
	// errors are retried internally; a nil message with nil error means the
	// poll timed out and should simply be repeated.
	GetNextMessage(ctx context.Context) (*Message, error)
	// DeleteMessage acknowledges a message so it will not redeliver.
	DeleteMessage(ctx context.Context, poolID, messageID, sessionID string) error
	// DeleteSession tears the session down (best-effort on shutdown).
	DeleteSession(ctx context.Context) error
}
