package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyRepo        = "repository"
	KeyAlias       = "alias"
	KeyTarget      = "target"
	KeyURL         = "url"
	KeyPath        = "path"
	KeyPhase       = "phase"
	KeyRef         = "ref"
	KeyCommit      = "commit"
	KeySessionID   = "session_id"
	KeyMessageID   = "message_id"
	KeyMessageType = "message_type"
	KeyJobID       = "job_id"
	KeyPoolID      = "pool_id"
	KeyExitCode    = "exit_code"
	KeyDurationMS  = "duration_ms"
	KeyError       = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func Repository(r string) slog.Attr  { return slog.String(KeyRepo, r) }
func Alias(a string) slog.Attr       { return slog.String(KeyAlias, a) }
func Target(t string) slog.Attr      { return slog.String(KeyTarget, t) }
func URL(u string) slog.Attr         { return slog.String(KeyURL, u) }
func Path(p string) slog.Attr        { return slog.String(KeyPath, p) }
func Phase(p string) slog.Attr       { return slog.String(KeyPhase, p) }
func Ref(r string) slog.Attr         { return slog.String(KeyRef, r) }
func Commit(c string) slog.Attr      { return slog.String(KeyCommit, c) }
func SessionID(id string) slog.Attr  { return slog.String(KeySessionID, id) }
func MessageID(id string) slog.Attr  { return slog.String(KeyMessageID, id) }
func MessageType(t string) slog.Attr { return slog.String(KeyMessageType, t) }
func JobID(id string) slog.Attr      { return slog.String(KeyJobID, id) }
func PoolID(id string) slog.Attr     { return slog.String(KeyPoolID, id) }
func ExitCode(c int) slog.Attr       { return slog.Int(KeyExitCode, c) }
func DurationMS(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMS, ms)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
