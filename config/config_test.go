package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearflow/near"
)

const sample = `
log_level: debug
networks:
  - network_id: localnet
    node_url: http://127.0.0.1:3030
rpc:
  retries: 3
  retry_wait: 250ms
  retry_multiplier: 2
  timeout: 5s
storage:
  type: file
  path: /tmp/nearflow.json
server:
  listen: 0.0.0.0:9090
openai:
  model: gpt-4o-mini
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nearflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, []near.Network{{NetworkID: "localnet", NodeURL: "http://127.0.0.1:3030"}}, cfg.Networks)
	assert.Equal(t, RPCConfig{Retries: 3, RetryWait: 250 * time.Millisecond, RetryMultiplier: 2, Timeout: 5 * time.Second}, cfg.RPC)
	assert.Equal(t, StorageConfig{Type: StorageFile, Path: "/tmp/nearflow.json"}, cfg.Storage)
	assert.Equal(t, "0.0.0.0:9090", cfg.Server.Listen)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Nil(t, cfg.OpenAIClient())
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvLogLevel, "")
	t.Setenv(EnvStoragePath, "")
	t.Setenv(EnvOpenAIKey, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "log_level: warn\n"))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, Default().RPC, cfg.RPC)
	assert.Equal(t, StorageMemory, cfg.Storage.Type)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "ERROR")
	t.Setenv(EnvStoragePath, "/var/lib/nearflow")
	t.Setenv(EnvOpenAIKey, "sk-test")

	cfg, err := Load(writeConfig(t, "storage:\n  type: badger\n"))
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel)
	assert.Equal(t, StorageConfig{Type: StorageBadger, Path: "/var/lib/nearflow"}, cfg.Storage)
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
	assert.NotNil(t, cfg.OpenAIClient())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "could not read config")

	_, err = Load(writeConfig(t, "log_level: [\n"))
	assert.ErrorContains(t, err, "could not parse config")
}

func TestValidate_CollectsEveryError(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "loud"
	cfg.Storage = StorageConfig{Type: StorageBadger}
	cfg.RPC.Timeout = -time.Second
	cfg.Networks = []near.Network{
		{NetworkID: "localnet", NodeURL: "http://127.0.0.1:3030"},
		{NetworkID: "localnet", NodeURL: "not a url"},
	}

	err := cfg.Validate()
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 5)
	assert.ErrorContains(t, err, `log_level: invalid value "loud" (oneof)`)
	assert.ErrorContains(t, err, `storage.path: invalid value "" (required_unless)`)
	assert.ErrorContains(t, err, `networks[1].node_url: invalid value "not a url" (url)`)
	assert.ErrorContains(t, err, "rpc.timeout: must not be negative")
	assert.ErrorContains(t, err, `networks: duplicate network "localnet"`)
}

func TestSave_RoundTrip(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "out.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()
	for _, storage := range []StorageConfig{
		{Type: StorageMemory},
		{Type: StorageFile, Path: filepath.Join(dir, "store.json")},
		{Type: StorageBadger, Path: filepath.Join(dir, "badger")},
	} {
		t.Run(storage.Type, func(t *testing.T) {
			cfg := Default()
			cfg.Storage = storage

			store, err := cfg.OpenStore()
			require.NoError(t, err)
			require.NoError(t, store.Put("k", []byte("v")))
			value, err := store.Get("k")
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), value)
			require.NoError(t, store.Close())
		})
	}

	cfg := Default()
	cfg.Storage.Type = "s3"
	_, err := cfg.OpenStore()
	assert.EqualError(t, err, `unknown storage type "s3"`)
}

func TestConnector(t *testing.T) {
	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	connector := cfg.Connector(zerolog.Nop())
	assert.Equal(t, []string{"localnet", "mainnet", "testnet"}, connector.Networks().IDs())

	conn, err := connector.Connect("localnet", nil)
	require.NoError(t, err)
	assert.Equal(t, "localnet", conn.NetworkID())
	assert.Equal(t, "http://127.0.0.1:3030", conn.Provider.URL())
}

func TestLogger(t *testing.T) {
	cfg := Default()
	cfg.LogLevel = "warn"
	log, err := cfg.Logger(os.Stderr)
	require.NoError(t, err)
	assert.Equal(t, zerolog.WarnLevel, log.GetLevel())

	cfg.LogLevel = "loud"
	_, err = cfg.Logger(os.Stderr)
	assert.Error(t, err)
}
