package core

import (
	"testing"

	"github.com/spf13/viper"
)

// setTestConfig installs a fresh viper instance with valid defaults and
// restores the previous one afterwards.
func setTestConfig(t *testing.T) *viper.Viper {
	t.Helper()
	old := Config
	t.Cleanup(func() { Config = old })

	Config = viper.New()
	Config.Set("config_path", t.TempDir())
	Config.Set("sidecar.executable", "modelrelay")
	Config.Set("sidecar.provider", "modelrelay")
	Config.Set("port.preferred", 8080)
	Config.Set("port.window", 100)
	Config.Set("health.timeout", "10s")
	Config.Set("health.interval", "500ms")
	return Config
}

func TestValidateConfig_Defaults(t *testing.T) {
	setTestConfig(t)
	if err := ValidateConfig(); err != nil {
		t.Errorf("expected default config to validate, got %v", err)
	}
}

func TestValidateConfig_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		key   string
		value interface{}
	}{
		{"zero window", "port.window", 0},
		{"negative window", "port.window", -1},
		{"zero port", "port.preferred", 0},
		{"port too large", "port.preferred", 70000},
		{"zero timeout", "health.timeout", "0s"},
		{"zero interval", "health.interval", "0ms"},
		{"interval exceeds timeout", "health.interval", "11s"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := setTestConfig(t)
			cfg.Set(tc.key, tc.value)
			if err := ValidateConfig(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestConfigAccessors(t *testing.T) {
	setTestConfig(t)

	if got := GetSidecarExecutable(); got != "modelrelay" {
		t.Errorf("executable: got %q", got)
	}
	if got := GetPreferredPort(); got != 8080 {
		t.Errorf("preferred port: got %d", got)
	}
	if got := GetPortWindow(); got != 100 {
		t.Errorf("window: got %d", got)
	}
	if got := GetHealthTimeout().Seconds(); got != 10 {
		t.Errorf("timeout: got %v", got)
	}
	if got := GetHealthInterval().Milliseconds(); got != 500 {
		t.Errorf("interval: got %v", got)
	}
	if GetDatabasePath() == "" || GetRegistryPath() == "" {
		t.Error("expected state paths to be derived from config path")
	}
}
