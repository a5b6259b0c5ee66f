package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadFromFile_YAML(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "config.yaml", `
node:
  rpc_url: "http://localhost:8554"
  poll_interval: "10s"
  retry:
    max_attempts: 3
    initial_backoff: "500ms"
db:
  path: "/var/lib/loanindexor/index.db"
indexer:
  start_height: 1000
  default_scheme_id: "MIN150"
api:
  enabled: true
  listen_address: ":8080"
  cors:
    enabled: true
logging:
  default_level: "debug"
  component_levels:
    sync-manager: "warn"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8554", cfg.Node.RPCURL)
	assert.Equal(t, 10*time.Second, cfg.Node.PollInterval.Duration)
	require.NotNil(t, cfg.Node.Retry)
	assert.Equal(t, 3, cfg.Node.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Node.Retry.InitialBackoff.Duration)

	assert.Equal(t, uint64(1000), cfg.Indexer.StartHeight)
	assert.Equal(t, "MIN150", cfg.Indexer.DefaultSchemeID)
	// Defaults fill the fields the file left out
	assert.Equal(t, 100, cfg.Indexer.DeferredBatchSize)
	assert.Equal(t, "WAL", cfg.DB.JournalMode)

	require.NotNil(t, cfg.API)
	assert.Equal(t, 30, cfg.API.MaxPageSize)
	assert.Equal(t, []string{"*"}, cfg.API.CORS.AllowedOrigins)

	require.NotNil(t, cfg.Logging)
	assert.Equal(t, "warn", cfg.Logging.GetComponentLevel("sync-manager"))
	assert.Equal(t, "debug", cfg.Logging.GetComponentLevel("api"))
}

func TestLoadFromFile_JSON(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "config.json", `{
  "node": {
    "rpc_url": "http://localhost:8554",
    "poll_interval": "30s"
  },
  "db": {
    "path": "index.db",
    "journal_mode": "DELETE"
  },
  "indexer": {
    "start_height": 1
  }
}`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Node.PollInterval.Duration)
	assert.Equal(t, "DELETE", cfg.DB.JournalMode)
	assert.Equal(t, "default", cfg.Indexer.DefaultSchemeID)
	assert.Nil(t, cfg.API)
}

func TestLoadFromFile_TOML(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "config.toml", `
[node]
rpc_url = "http://localhost:8554"
poll_interval = "15s"

[db]
path = "index.db"

[indexer]
start_height = 500

[metrics]
enabled = true
listen_address = ":9091"
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 15*time.Second, cfg.Node.PollInterval.Duration)
	assert.Equal(t, uint64(500), cfg.Indexer.StartHeight)
	require.NotNil(t, cfg.Metrics)
	assert.Equal(t, ":9091", cfg.Metrics.ListenAddress)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoadFromFile_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "config.ini", "node.rpc_url=http://localhost")

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config file format")
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadFromFile_InvalidConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name: "missing rpc_url",
			content: `
db:
  path: "index.db"
`,
			wantErr: "node.rpc_url is required",
		},
		{
			name: "missing db path",
			content: `
node:
  rpc_url: "http://localhost:8554"
`,
			wantErr: "db.path is required",
		},
		{
			name: "bad journal mode",
			content: `
node:
  rpc_url: "http://localhost:8554"
db:
  path: "index.db"
  journal_mode: "BOGUS"
`,
			wantErr: "db.journal_mode",
		},
		{
			name: "unknown logging component",
			content: `
node:
  rpc_url: "http://localhost:8554"
db:
  path: "index.db"
logging:
  component_levels:
    flux-capacitor: "debug"
`,
			wantErr: "unknown component",
		},
		{
			name: "bad log level",
			content: `
node:
  rpc_url: "http://localhost:8554"
db:
  path: "index.db"
logging:
  default_level: "verbose"
`,
			wantErr: "must be one of: debug, info, warn, error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := writeConfigFile(t, "config.yaml", tt.content)

			_, err := LoadFromFile(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadFromFile_MalformedYAML(t *testing.T) {
	t.Parallel()

	path := writeConfigFile(t, "config.yaml", "node: [not: valid")

	_, err := LoadFromFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse YAML config")
}
