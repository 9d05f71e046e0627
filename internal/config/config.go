// Package config loads agent settings: a YAML file, .env bootstrap, and
// environment overrides, validated before anything touches the network.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/buildagent/internal/acquire"
	"git.home.luguber.info/inful/buildagent/internal/urlutil"
)

// Settings is the full agent configuration.
type Settings struct {
	// ServerURL is the control-plane endpoint (scheme+host decide whether
	// the TLS bundle applies to a repository).
	ServerURL string `yaml:"server_url"`
	PoolID    string `yaml:"pool_id"`
	AgentName string `yaml:"agent_name"`

	// NATSURL is the dispatcher transport endpoint.
	NATSURL string `yaml:"nats_url"`

	WorkDir string `yaml:"work_dir"`
	TempDir string `yaml:"temp_dir"`

	// JournalPath is the sqlite file recording config modifications; empty
	// selects <work_dir>/journal.db.
	JournalPath string `yaml:"journal_path"`

	MetricsListen string `yaml:"metrics_listen"`

	PreferGitFromPath  bool `yaml:"prefer_git_from_path"`
	SelfManageGitCreds bool `yaml:"self_manage_git_creds"`

	Verbose bool `yaml:"verbose"`

	Proxy urlutil.ProxySettings     `yaml:"proxy"`
	Certs acquire.CertificateBundle `yaml:"certificates"`
}

// Defaults fills unset fields with workable values.
func (s *Settings) Defaults() {
	if s.PoolID == "" {
		s.PoolID = "default"
	}
	if s.AgentName == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "buildagent"
		}
		s.AgentName = host
	}
	if s.NATSURL == "" {
		s.NATSURL = "nats://127.0.0.1:4222"
	}
	if s.WorkDir == "" {
		s.WorkDir = filepath.Join(os.TempDir(), "buildagent-work")
	}
	if s.TempDir == "" {
		s.TempDir = filepath.Join(os.TempDir(), "buildagent-temp")
	}
	if s.JournalPath == "" {
		s.JournalPath = filepath.Join(s.WorkDir, "journal.db")
	}
}

// Validate reports the first configuration problem.
func (s *Settings) Validate() error {
	if s.ServerURL == "" {
		return fmt.Errorf("server_url is required")
	}
	if !filepath.IsAbs(s.WorkDir) {
		return fmt.Errorf("work_dir must be absolute, got %q", s.WorkDir)
	}
	if !filepath.IsAbs(s.TempDir) {
		return fmt.Errorf("temp_dir must be absolute, got %q", s.TempDir)
	}
	if s.Certs.ClientCertFile != "" && s.Certs.ClientKeyFile == "" {
		return fmt.Errorf("client_cert_file requires client_key_file")
	}
	return nil
}

// Load reads settings from path, applying .env bootstrap, environment
// overrides, and defaults. A missing file is an error: the agent refuses to
// run unconfigured.
func Load(path string) (*Settings, error) {
	// .env files supply environment for local development; real environment
	// variables always win.
	for _, envPath := range []string{".env", ".env.local"} {
		if _, err := os.Stat(envPath); err == nil {
			_ = godotenv.Load(envPath)
			break
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read settings file %s: %w", path, err)
	}
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse settings file %s: %w", path, err)
	}

	s.applyEnvOverrides()
	s.Defaults()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// applyEnvOverrides layers AGENT_*/SYSTEM_* variables over the file.
func (s *Settings) applyEnvOverrides() {
	setString := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	setBool := func(dst *bool, key string) {
		switch os.Getenv(key) {
		case "1", "true", "TRUE", "True", "yes":
			*dst = true
		case "0", "false", "FALSE", "False", "no":
			*dst = false
		}
	}

	setString(&s.ServerURL, "AGENT_SERVER_URL")
	setString(&s.PoolID, "AGENT_POOL_ID")
	setString(&s.AgentName, "AGENT_NAME")
	setString(&s.NATSURL, "AGENT_NATS_URL")
	setString(&s.WorkDir, "AGENT_WORKDIRECTORY")
	setString(&s.TempDir, "AGENT_TEMPDIRECTORY")
	setString(&s.MetricsListen, "AGENT_METRICS_LISTEN")
	setBool(&s.PreferGitFromPath, "SYSTEM_PREFERGITFROMPATH")
	setBool(&s.SelfManageGitCreds, "SYSTEM_SELFMANAGEGITCREDS")
	setBool(&s.Verbose, "AGENT_VERBOSE")
}
