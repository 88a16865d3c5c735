package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Ledger.Driver)
	assert.Equal(t, "addr1", cfg.Bridge.AddressPrefix)
	assert.Equal(t, 2*time.Second, cfg.Session.SettleDelay)
	assert.Equal(t, "none", cfg.Events.Mode)
	assert.Equal(t, []string{"meter_001"}, cfg.Attestor.CertifiedDevices)
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "poeminter.yaml")
	yml := `
data_dir: /tmp/poe
session:
  settle_delay: 250ms
ledger:
  driver: sqlite
events:
  mode: kafka
  brokers: ["localhost:9092"]
log:
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/poe", cfg.DataDir)
	assert.Equal(t, 250*time.Millisecond, cfg.Session.SettleDelay)
	assert.Equal(t, 2*time.Second, cfg.Session.BridgeDelay, "unset keys keep defaults")
	assert.Equal(t, "sqlite", cfg.Ledger.Driver)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Events.Brokers)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/tmp/poe/poeminter.db", cfg.DBPath())
}

func TestLoad_EnvOverlay(t *testing.T) {
	t.Setenv("POEMINTER_EVENTS_MODE", "webhook")
	t.Setenv("POEMINTER_EVENTS_URL", "http://127.0.0.1:9000/hook")
	t.Setenv("POEMINTER_KAFKA_BROKERS", "a:9092,b:9092")

	cfg, err := LoadFromBytes(nil)
	require.NoError(t, err)

	assert.Equal(t, "webhook", cfg.Events.Mode)
	assert.Equal(t, "http://127.0.0.1:9000/hook", cfg.Events.URL)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Events.Brokers)
}

func TestLoad_EnvOverlayPortDelaysTopic(t *testing.T) {
	t.Setenv("POEMINTER_API_PORT", "9191")
	t.Setenv("POEMINTER_MINT_DELAY", "0s")
	t.Setenv("POEMINTER_BRIDGE_DELAY", "750ms")
	t.Setenv("POEMINTER_SETTLE_DELAY", "3s")
	t.Setenv("POEMINTER_EVENTS_TOPIC", "meter_events")

	cfg, err := LoadFromBytes([]byte("api:\n  port: 8000\nsession:\n  mint_delay: 5s\n"))
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.API.Port, "environment wins over YAML")
	assert.Equal(t, time.Duration(0), cfg.Session.MintDelay)
	assert.Equal(t, 750*time.Millisecond, cfg.Session.BridgeDelay)
	assert.Equal(t, 3*time.Second, cfg.Session.SettleDelay)
	assert.Equal(t, "meter_events", cfg.Events.Topic)
}

func TestLoad_EnvOverlayIgnoresInvalidValues(t *testing.T) {
	t.Setenv("POEMINTER_API_PORT", "eighty")
	t.Setenv("POEMINTER_BRIDGE_DELAY", "soon")
	t.Setenv("POEMINTER_SETTLE_DELAY", "-1s")

	cfg, err := LoadFromBytes(nil)
	require.NoError(t, err)

	assert.Equal(t, 8470, cfg.API.Port)
	assert.Equal(t, 2*time.Second, cfg.Session.BridgeDelay)
	assert.Equal(t, 2*time.Second, cfg.Session.SettleDelay)
}

func TestLoad_CertifiedDevices(t *testing.T) {
	cfg, err := LoadFromBytes([]byte("attestor:\n  device_id: meter_007\n  certified_devices: [meter_001, meter_007]\n"))
	require.NoError(t, err)
	assert.Equal(t, "meter_007", cfg.Attestor.DeviceID)
	assert.Equal(t, []string{"meter_001", "meter_007"}, cfg.Attestor.CertifiedDevices)

	t.Setenv("POEMINTER_DEVICE_ID", "meter_009")
	t.Setenv("POEMINTER_CERTIFIED_DEVICES", " meter_009, ,meter_010 ")
	cfg, err = LoadFromBytes(nil)
	require.NoError(t, err)
	assert.Equal(t, "meter_009", cfg.Attestor.DeviceID)
	assert.Equal(t, []string{"meter_009", "meter_010"}, cfg.Attestor.CertifiedDevices)
}

func TestLoad_DotEnvNextToConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "poeminter.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("POEMINTER_LEDGER_PATH=/tmp/from-dotenv.db\n"), 0600))
	t.Cleanup(func() { os.Unsetenv("POEMINTER_LEDGER_PATH") })

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "/tmp/from-dotenv.db", cfg.DBPath())
}

func TestLoadFromBytes_InvalidYAML(t *testing.T) {
	_, err := LoadFromBytes([]byte("session: [unterminated"))
	assert.Error(t, err)
}
