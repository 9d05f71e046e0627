package acquire

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	agerrors "git.home.luguber.info/inful/buildagent/internal/errors"
)

// ConfigModification tracks every config key the orchestrator wrote into a
// working tree, with the last value written, so cleanup can undo exactly
// what was added and nothing else.
type ConfigModification struct {
	order  []string
	values map[string]string
}

func NewConfigModification() *ConfigModification {
	return &ConfigModification{values: map[string]string{}}
}

// Record notes a successful config write.
func (m *ConfigModification) Record(key, value string) {
	if _, seen := m.values[key]; !seen {
		m.order = append(m.order, key)
	}
	m.values[key] = value
}

// Forget drops a key after it has been successfully removed from disk.
func (m *ConfigModification) Forget(key string) {
	delete(m.values, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Keys returns the recorded keys in write order.
func (m *ConfigModification) Keys() []string {
	return append([]string(nil), m.order...)
}

// Value returns the last value written for key.
func (m *ConfigModification) Value(key string) (string, bool) {
	v, ok := m.values[key]
	return v, ok
}

// Len reports the number of outstanding recorded keys.
func (m *ConfigModification) Len() int { return len(m.order) }

// configFilePath locates the on-disk config of a working tree.
func configFilePath(targetPath string) string {
	return filepath.Join(targetPath, ".git", "config")
}

// removeConfigLine textually deletes lines matching "<key> = <value>" from
// the on-disk config, case-insensitively, with the value regex-escaped. This
// is the fallback when `config --unset-all` fails: a partially-written secret
// must never remain.
func removeConfigLine(targetPath, key, value string) error {
	path := configFilePath(targetPath)
	data, err := os.ReadFile(path)
	if err != nil {
		return agerrors.FileSystemError("read config", err)
	}
	pattern, err := regexp.Compile(`(?im)^\s*` + regexp.QuoteMeta(configLineKey(key)) + `\s*=\s*` + regexp.QuoteMeta(value) + `\s*$`)
	if err != nil {
		return agerrors.FileSystemError("compile config pattern", err)
	}
	lines := strings.Split(string(data), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if pattern.MatchString(line) {
			continue
		}
		kept = append(kept, line)
	}
	out := strings.Join(kept, "\n")
	if out == string(data) {
		return nil
	}
	if err := os.WriteFile(path, []byte(out), 0o600); err != nil {
		return agerrors.FileSystemError("write config", err)
	}
	return nil
}

// configLineKey maps a dotted config key to the bare name appearing on its
// line inside the section body (the final dot-separated component).
func configLineKey(key string) string {
	if idx := strings.LastIndex(key, "."); idx >= 0 {
		return key[idx+1:]
	}
	return key
}

// replaceConfigText substitutes every occurrence of old with replacement in
// the on-disk config. Used when `remote set-url` fails while a
// credential-embedded URL is still on disk.
func replaceConfigText(targetPath, old, replacement string) error {
	path := configFilePath(targetPath)
	data, err := os.ReadFile(path)
	if err != nil {
		return agerrors.FileSystemError("read config", err)
	}
	out := strings.ReplaceAll(string(data), old, replacement)
	if out == string(data) {
		return nil
	}
	if err := os.WriteFile(path, []byte(out), 0o600); err != nil {
		return agerrors.FileSystemError("write config", err)
	}
	return nil
}

// unsetWithFallback removes key via the git binary, falling back to the
// textual edit when the unset exits non-zero.
func (a *Acquisition) unsetWithFallback(ctx context.Context, targetPath, key, value string) error {
	code, err := a.git.ConfigUnset(ctx, targetPath, key)
	if err != nil {
		return err
	}
	if code != 0 {
		if err := removeConfigLine(targetPath, key, value); err != nil {
			return err
		}
	}
	return nil
}
