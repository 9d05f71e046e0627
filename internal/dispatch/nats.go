package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
	"git.home.luguber.info/inful/buildagent/internal/logfields"
	"git.home.luguber.info/inful/buildagent/internal/retry"
)

const (
	streamName    = "AGENT_JOBS"
	subjectPrefix = "agent.jobs."
	// fetchWait is the long-poll window for one GetNextMessage call.
	fetchWait = 50 * time.Second
	// ackWait bounds redelivery: a message that is not acked (including one
	// the run loop skips) comes back after this long.
	ackWait = 2 * time.Minute
)

// NATSClient implements the dispatcher RPC over a JetStream work queue. One
// durable consumer per pool gives competing-consumer semantics across
// agents; explicit acks give the ack-or-skip contract the run loop needs.
type NATSClient struct {
	conn    *nats.Conn
	js      jetstream.JetStream
	poolID  string
	retries retry.Policy

	mu        sync.Mutex
	consumer  jetstream.Consumer
	sessionID string
	pending   map[string]jetstream.Msg
}

// NewNATSClient connects to NATS and prepares the JetStream context.
func NewNATSClient(natsURL, poolID string) (*NATSClient, error) {
	conn, err := nats.Connect(natsURL,
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}
	return &NATSClient{
		conn:    conn,
		js:      js,
		poolID:  poolID,
		retries: retry.DefaultPolicy(),
		pending: map[string]jetstream.Msg{},
	}, nil
}

// CreateSession ensures the pool's stream and durable consumer exist and
// mints a session id.
func (c *NATSClient) CreateSession(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      streamName,
		Subjects:  []string{subjectPrefix + ">"},
		Retention: jetstream.WorkQueuePolicy,
	})
	if err != nil {
		return "", agerrors.SessionError(fmt.Errorf("ensure stream: %w", err))
	}

	consumer, err := c.js.CreateOrUpdateConsumer(ctx, streamName, jetstream.ConsumerConfig{
		Durable:       durableName(c.poolID),
		FilterSubject: subjectPrefix + c.poolID,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       ackWait,
		MaxDeliver:    -1,
	})
	if err != nil {
		return "", agerrors.SessionError(fmt.Errorf("ensure consumer: %w", err))
	}

	c.mu.Lock()
	c.consumer = consumer
	c.sessionID = uuid.NewString()
	c.mu.Unlock()

	slog.Info("Dispatcher session created",
		logfields.SessionID(c.sessionID), logfields.PoolID(c.poolID))
	return c.sessionID, nil
}

// GetNextMessage long-polls the work queue. A nil message with nil error is
// an empty poll window; the run loop just polls again. Transient fetch
// errors are retried here with backoff.
func (c *NATSClient) GetNextMessage(ctx context.Context) (*Message, error) {
	c.mu.Lock()
	consumer := c.consumer
	c.mu.Unlock()
	if consumer == nil {
		return nil, agerrors.SessionError(fmt.Errorf("no session"))
	}

	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, agerrors.Canceled(err)
		}
		batch, err := consumer.Fetch(1, jetstream.FetchMaxWait(fetchWait))
		if err != nil {
			if attempt >= c.retries.MaxRetries {
				return nil, agerrors.DispatchTransient("getNextMessage", err)
			}
			slog.Warn("Message fetch failed; retrying", logfields.Error(err))
			if sleepErr := c.retries.Sleep(ctx, attempt+1); sleepErr != nil {
				return nil, agerrors.Canceled(sleepErr)
			}
			continue
		}
		for msg := range batch.Messages() {
			return c.envelope(msg), nil
		}
		if err := batch.Error(); err != nil {
			// A drained batch with an error is a failed poll, not an empty one.
			if attempt >= c.retries.MaxRetries {
				return nil, agerrors.DispatchTransient("getNextMessage", err)
			}
			if sleepErr := c.retries.Sleep(ctx, attempt+1); sleepErr != nil {
				return nil, agerrors.Canceled(sleepErr)
			}
			continue
		}
		// Empty long-poll window.
		return nil, nil
	}
}

// envelope decodes the wire envelope and tracks the raw message for ack.
func (c *NATSClient) envelope(msg jetstream.Msg) *Message {
	var m Message
	if err := json.Unmarshal(msg.Data(), &m); err != nil {
		slog.Warn("Undecodable dispatcher message; treating body as opaque", logfields.Error(err))
		m = Message{Body: msg.Data()}
	}
	if m.MessageID == "" {
		if meta, err := msg.Metadata(); err == nil {
			m.MessageID = fmt.Sprintf("%d", meta.Sequence.Stream)
		} else {
			m.MessageID = uuid.NewString()
		}
	}
	c.mu.Lock()
	c.pending[m.MessageID] = msg
	c.mu.Unlock()
	return &m
}

// DeleteMessage acks the message. A skipped delete leaves it pending so the
// dispatcher redelivers after ackWait.
func (c *NATSClient) DeleteMessage(ctx context.Context, poolID, messageID, sessionID string) error {
	c.mu.Lock()
	msg, ok := c.pending[messageID]
	if ok {
		delete(c.pending, messageID)
	}
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("unknown message id %q", messageID)
	}
	if err := msg.DoubleAck(ctx); err != nil {
		return agerrors.DispatchTransient("deleteMessage", err)
	}
	return nil
}

// DeleteSession drains the connection. Pending unacked messages redeliver to
// the next agent on the pool.
func (c *NATSClient) DeleteSession(ctx context.Context) error {
	c.mu.Lock()
	c.consumer = nil
	c.sessionID = ""
	c.mu.Unlock()
	if err := c.conn.Drain(); err != nil {
		return err
	}
	return nil
}

// durableName sanitizes the pool id into a valid consumer name.
func durableName(poolID string) string {
	r := strings.NewReplacer(".", "-", " ", "-", "*", "-", ">", "-", "/", "-")
	return "agent-" + r.Replace(poolID)
}
