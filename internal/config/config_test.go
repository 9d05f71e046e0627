package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeSettings(t, `
server_url: https://dev.example.com
`)
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "default", s.PoolID)
	assert.NotEmpty(t, s.AgentName)
	assert.Equal(t, "nats://127.0.0.1:4222", s.NATSURL)
	assert.True(t, filepath.IsAbs(s.WorkDir))
	assert.Equal(t, filepath.Join(s.WorkDir, "journal.db"), s.JournalPath)
}

func TestLoadParsesFullFile(t *testing.T) {
	path := writeSettings(t, `
server_url: https://dev.example.com
pool_id: linux-pool
agent_name: builder-7
nats_url: nats://queue:4222
work_dir: /var/lib/buildagent/work
temp_dir: /var/lib/buildagent/temp
metrics_listen: ":9181"
prefer_git_from_path: true
self_manage_git_creds: true
proxy:
  address: http://proxy.corp:3128
  username: u
  password: p
  bypass_list: [".internal.corp"]
certificates:
  ca_file: /etc/agent/ca.pem
  client_cert_file: /etc/agent/cert.pem
  client_key_file: /etc/agent/key.pem
`)
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "linux-pool", s.PoolID)
	assert.Equal(t, "builder-7", s.AgentName)
	assert.True(t, s.PreferGitFromPath)
	assert.True(t, s.SelfManageGitCreds)
	assert.Equal(t, "http://proxy.corp:3128", s.Proxy.Address)
	assert.Equal(t, []string{".internal.corp"}, s.Proxy.BypassList)
	assert.Equal(t, "/etc/agent/ca.pem", s.Certs.CAFile)
	assert.True(t, s.Certs.HasClientCert())
}

func TestLoadRejectsMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoadRejectsMissingServerURL(t *testing.T) {
	path := writeSettings(t, `pool_id: x`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server_url")
}

func TestLoadRejectsCertWithoutKey(t *testing.T) {
	path := writeSettings(t, `
server_url: https://dev.example.com
certificates:
  client_cert_file: /etc/agent/cert.pem
`)
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AGENT_POOL_ID", "env-pool")
	t.Setenv("AGENT_TEMPDIRECTORY", "/env/temp")
	t.Setenv("SYSTEM_PREFERGITFROMPATH", "true")
	t.Setenv("SYSTEM_SELFMANAGEGITCREDS", "false")

	path := writeSettings(t, `
server_url: https://dev.example.com
pool_id: file-pool
self_manage_git_creds: true
`)
	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-pool", s.PoolID)
	assert.Equal(t, "/env/temp", s.TempDir)
	assert.True(t, s.PreferGitFromPath)
	assert.False(t, s.SelfManageGitCreds, "env override wins over file")
}
