// Package dispatch speaks the dispatcher message protocol: session
// lifecycle, long-poll message retrieval, and explicit message deletion.
package dispatch

import (
	"encoding/json"
	"log/slog"
	"strings"

	"git.home.luguber.info/inful/buildagent/internal/acquire"
	"git.home.luguber.info/inful/buildagent/internal/provider"
)

// MessageType names are matched case-insensitively on the wire.
type MessageType string

const (
	TypeRefresh    MessageType = "Refresh"
	TypeJobRequest MessageType = "JobRequest"
	TypeJobCancel  MessageType = "JobCancel"
)

// Message is the envelope around one dispatcher message. Body stays opaque
// until the type is known.
type Message struct {
	MessageID   string          `json:"messageId"`
	MessageType string          `json:"messageType"`
	Body        json.RawMessage `json:"body"`
}

// Is matches the envelope type case-insensitively.
func (m *Message) Is(t MessageType) bool {
	return strings.EqualFold(m.MessageType, string(t))
}

// CredentialPayload is the wire shape of a job credential.
type CredentialPayload struct {
	Scheme   string `json:"scheme"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
}

// ToCredential maps the payload onto the provider credential union. Unknown
// schemes are warned about and come back as None, so the job proceeds
// anonymously.
func (c CredentialPayload) ToCredential() provider.Credential {
	switch strings.ToLower(c.Scheme) {
	case "basic":
		return provider.Basic(c.Username, c.Password)
	case "bearer":
		return provider.Bearer(c.Password)
	case "oauth":
		return provider.OAuth(c.Password)
	case "", "none":
		return provider.None
	default:
		slog.Warn("Unsupported credential scheme; proceeding without credentials",
			slog.String("scheme", c.Scheme))
		return provider.None
	}
}

// JobRequest asks the agent to run one job: acquire each repository, then
// hand off to the build steps.
type JobRequest struct {
	JobID        string               `json:"jobId"`
	Name         string               `json:"name"`
	Repositories []acquire.Descriptor `json:"repositories"`
	Credential   CredentialPayload    `json:"credential"`
}

// JobCancel asks the agent to stop a running job.
type JobCancel struct {
	JobID string `json:"jobId"`
}

// DecodeJobRequest parses a JobRequest body.
func DecodeJobRequest(body json.RawMessage) (*JobRequest, error) {
	var req JobRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// DecodeJobCancel parses a JobCancel body.
func DecodeJobCancel(body json.RawMessage) (*JobCancel, error) {
	var c JobCancel
	if err := json.Unmarshal(body, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
