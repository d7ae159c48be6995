package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingReturnsDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.TimeoutSec != 30 || cfg.Cache.Backend != BackendSQLite || cfg.General.RecentLimit != 10 {
		t.Errorf("defaults = %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "exptrack", "config.toml")
	cfg := DefaultConfig()
	cfg.API.BaseURL = "https://ledger.example.com"
	cfg.TUI.AutoRefresh = true
	cfg.Appearance.Theme = "tokyo-night"

	if err := SaveTo(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.API.BaseURL != cfg.API.BaseURL || !got.TUI.AutoRefresh || got.Appearance.Theme != "tokyo-night" {
		t.Errorf("round trip = %+v", got)
	}
}

func TestPartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[api]\nbase_url = \"http://10.0.0.2:5000\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != "http://10.0.0.2:5000" || cfg.API.TimeoutSec != 30 {
		t.Errorf("cfg = %+v", cfg.API)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"defaults", func(*Config) {}, true},
		{"bad url", func(c *Config) { c.API.BaseURL = "localhost" }, false},
		{"negative timeout", func(c *Config) { c.API.TimeoutSec = -1 }, false},
		{"unknown backend", func(c *Config) { c.Cache.Backend = "memcached" }, false},
		{"redis", func(c *Config) { c.Cache.Backend = BackendRedis }, true},
	}
	for _, tc := range cases {
		cfg := DefaultConfig()
		tc.mutate(&cfg)
		if err := cfg.Validate(); (err == nil) != tc.ok {
			t.Errorf("%s: Validate() = %v", tc.name, err)
		}
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Cache.RedisURL = "redis://cfg:6379"

	t.Setenv(EnvAPIURL, "https://env.example.com")
	t.Setenv(EnvRedisURL, "")
	t.Setenv(EnvToken, " tok ")

	if got := GetAPIURL(cfg); got != "https://env.example.com" {
		t.Errorf("GetAPIURL = %q", got)
	}
	if got := GetRedisURL(cfg); got != "redis://cfg:6379" {
		t.Errorf("GetRedisURL = %q", got)
	}
	if got := GetToken(); got != "tok" {
		t.Errorf("GetToken = %q", got)
	}
}

func TestDurations(t *testing.T) {
	cfg := DefaultConfig()
	cfg.API.TimeoutSec = 0
	if cfg.Timeout() != 0 {
		t.Error("zero timeout should disable")
	}
	cfg.TUI.RefreshIntervalSec = 0
	if cfg.RefreshInterval() != time.Minute {
		t.Errorf("RefreshInterval = %s", cfg.RefreshInterval())
	}
}

func TestLoadEnvMissingFileIsFine(t *testing.T) {
	t.Chdir(t.TempDir())
	if err := LoadEnv(); err != nil {
		t.Errorf("LoadEnv: %v", err)
	}
}
