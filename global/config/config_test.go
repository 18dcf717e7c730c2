package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linker/tools/errs"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, AuthModeTrust, cfg.Chat.AuthMode)
	assert.Equal(t, 1000, cfg.Chat.MaxContentLength)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "linker.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  allowed_origins: ["https://app.example.com"]
chat:
  store_timeout: 2s
store:
  driver: redis
redis:
  addr: "127.0.0.1:6379"
`), 0o600))

	t.Setenv("LINKER_NODE_ID", "relay_07")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LINKER_EVICT_SLOW", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 2*time.Second, cfg.Chat.StoreTimeout)
	assert.Equal(t, DriverRedis, cfg.Store.Driver)
	assert.Equal(t, "relay_07", cfg.Server.NodeID)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Chat.EvictSlow)
	// untouched sections keep defaults
	assert.Equal(t, "linker.chat.message", cfg.Nats.Subject)
}

func TestLoadPortEnv(t *testing.T) {
	t.Setenv(EnvConfigPath, "")
	t.Setenv("PORT", "8081")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8081", cfg.Server.Addr)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(c *AppConfig){
		"unknown auth mode":  func(c *AppConfig) { c.Chat.AuthMode = "maybe" },
		"verify w/o secret":  func(c *AppConfig) { c.Chat.AuthMode = AuthModeVerify; c.Postgres.DSN = "postgres://x" },
		"verify w/o dsn":     func(c *AppConfig) { c.Chat.AuthMode = AuthModeVerify; c.JWT.Secret = "s" },
		"unknown driver":     func(c *AppConfig) { c.Store.Driver = "sqlite" },
		"postgres w/o dsn":   func(c *AppConfig) { c.Store.Driver = DriverPostgres },
		"mongo w/o uri":      func(c *AppConfig) { c.Store.Driver = DriverMongo },
		"zero content limit": func(c *AppConfig) { c.Chat.MaxContentLength = 0 },
		"zero queue":         func(c *AppConfig) { c.Chat.SendQueue = 0 },
		"account w/o id":     func(c *AppConfig) { c.Accounts = []Account{{Username: "alice"}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			err := cfg.Validate()
			assert.True(t, errs.ErrArgs.Is(err), "got %v", err)
		})
	}
}

func TestValidateNormalizes(t *testing.T) {
	cfg := Default()
	cfg.Chat.AuthMode = " TRUST "
	cfg.Store.Driver = "Memory"
	require.NoError(t, cfg.Validate())
	assert.Equal(t, AuthModeTrust, cfg.Chat.AuthMode)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestVerifyWithSeededAccounts(t *testing.T) {
	cfg := Default()
	cfg.Chat.AuthMode = AuthModeVerify
	cfg.JWT.Secret = "s"
	cfg.Accounts = []Account{{ID: "u1", Username: "alice"}}
	assert.NoError(t, cfg.Validate())
}
