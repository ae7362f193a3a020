package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "alphasim.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: /var/lib/alphasim
  sqlite_path: /var/lib/alphasim/db.sqlite
server:
  host: 0.0.0.0
  port: 9000
logging:
  level: debug
backtest:
  initial_capital: 250000
  max_positions: 4
  holding_period: 10
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.DataDir != "/var/lib/alphasim" {
		t.Errorf("dataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Backtest.InitialCapital != 250_000 || cfg.Backtest.MaxPositions != 4 || cfg.Backtest.HoldingPeriod != 10 {
		t.Errorf("backtest defaults = %+v", cfg.Backtest)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Storage.DataDir != "data" {
		t.Errorf("dataDir default = %q, want data", cfg.Storage.DataDir)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("port default = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Backtest.InitialCapital != 1_000_000 || cfg.Backtest.MaxPositions != 10 || cfg.Backtest.HoldingPeriod != 5 {
		t.Errorf("backtest defaults = %+v", cfg.Backtest)
	}
	if cfg.Gather.BatchSize != 500 || cfg.Gather.MaxWorkers != 4 || cfg.Gather.RateLimitPerMin != 200 {
		t.Errorf("gather defaults = %+v", cfg.Gather)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "7777")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("ALPACA_API_KEY", "file-key")
	t.Setenv("APCA_API_KEY_ID", "canonical-key")

	cfg, err := Load(writeConfig(t, `
server:
  port: 9000
logging:
  level: debug
alpaca:
  api_key: yaml-key
`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("port = %d, want env override 7777", cfg.Server.Port)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("level = %q, want env override warn", cfg.Logging.Level)
	}
	// The canonical SDK variable wins over both the yaml value and
	// ALPACA_API_KEY.
	if cfg.Alpaca.APIKey != "canonical-key" {
		t.Errorf("apiKey = %q, want canonical-key", cfg.Alpaca.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of a missing file returned nil error")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "storage: [not a map")); err == nil {
		t.Error("Load of invalid YAML returned nil error")
	}
}
