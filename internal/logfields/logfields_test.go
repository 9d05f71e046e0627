package logfields

import (
	"errors"
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"Repository", KeyRepo, "acme/w", Repository("acme/w")},
		{"Alias", KeyAlias, "w", Alias("w")},
		{"Target", KeyTarget, "/work/1/s", Target("/work/1/s")},
		{"URL", KeyURL, "https://example", URL("https://example")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Phase", KeyPhase, "fetch", Phase("fetch")},
		{"Ref", KeyRef, "refs/heads/main", Ref("refs/heads/main")},
		{"SessionID", KeySessionID, "s1", SessionID("s1")},
		{"MessageID", KeyMessageID, "m1", MessageID("m1")},
		{"MessageType", KeyMessageType, "JobRequest", MessageType("JobRequest")},
		{"JobID", KeyJobID, "j1", JobID("j1")},
		{"PoolID", KeyPoolID, "p1", PoolID("p1")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError {
		t.Fatalf("Error key mismatch: %s", attr.Key)
	}
	if attr.Value.String() != "" {
		t.Fatalf("expected empty error string, got %s", attr.Value.String())
	}
	attr = Error(errors.New("boom"))
	if attr.Value.String() != "boom" {
		t.Fatalf("expected 'boom', got %s", attr.Value.String())
	}
}

// TestExitCodeHelper pins the numeric key.
func TestExitCodeHelper(t *testing.T) {
	if v := ExitCode(128); v.Key != KeyExitCode {
		t.Fatalf("ExitCode key mismatch: %s", v.Key)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
}
