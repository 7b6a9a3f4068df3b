package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	BaseDirName      = ".config/proxyward"
	DatabaseFileName = "proxyward.db"
	RegistryFileName = "registry.json"
)

var Config *viper.Viper

var globalFlagsToConfigKey = map[string]string{
	"config-path": "config_path",
	"verbose":     "verbose",
}

func GetConfigPath() string {
	return Config.GetString("config_path")
}

func GetDatabasePath() string {
	return filepath.Join(Config.GetString("config_path"), DatabaseFileName)
}

func GetRegistryPath() string {
	return filepath.Join(Config.GetString("config_path"), RegistryFileName)
}

func GetSidecarExecutable() string {
	return Config.GetString("sidecar.executable")
}

func GetSidecarProvider() string {
	return Config.GetString("sidecar.provider")
}

func GetPreferredPort() int {
	return Config.GetInt("port.preferred")
}

func GetPortWindow() int {
	return Config.GetInt("port.window")
}

func GetHealthTimeout() time.Duration {
	return Config.GetDuration("health.timeout")
}

func GetHealthInterval() time.Duration {
	return Config.GetDuration("health.interval")
}

func InitializeConfig(cmd *cobra.Command) ([]string, error) {
	Config = viper.New()

	// Set config path from user input
	configPath, err := cmd.Parent().Flags().GetString("config-path")
	if err != nil {
		panic("Unable to determine config path")
	}
	Config.AddConfigPath(configPath)

	// Set config name
	Config.SetConfigName("config")
	Config.SetConfigType("toml")

	// Set defaults
	Config.SetDefault("verbose", 0)
	Config.SetDefault("sidecar.executable", "modelrelay")
	Config.SetDefault("sidecar.provider", "modelrelay")
	Config.SetDefault("port.preferred", 8080)
	Config.SetDefault("port.window", 100)
	Config.SetDefault("health.timeout", "10s")
	Config.SetDefault("health.interval", "500ms")

	// Setup env reading
	Config.SetEnvPrefix("proxyward")

	// Load config file
	if err := Config.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found - create config path and write config with defaults
			err := os.MkdirAll(configPath, 0o755)
			if err != nil {
				panic(err)
			}
			Config.SafeWriteConfig()
		} else {
			// Config file was found but another error occurred
			panic(err)
		}
	}

	// In order to get environment variables mapped into config sections, we need to replace . with _
	Config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Config.AutomaticEnv() // read in environment variables that match

	// Bind the current command's flags to viper
	if cmd != nil {
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			// Is this a global flag
			configKey, ok := globalFlagsToConfigKey[f.Name]
			if !ok {
				return
			}

			// Apply the viper config value to the flag when the flag is not set and viper has a value
			if !f.Changed && Config.IsSet(configKey) {
				cmd.Flags().Set(f.Name, fmt.Sprintf("%v", Config.Get(configKey)))
			} else {
				Config.Set(configKey, fmt.Sprintf("%v", f.Value))
			}
		})
	}

	return []string{}, ValidateConfig()
}

// ValidateConfig enforces the bootstrap invariants before any stage runs.
// A window below one would make the port scan degenerate, and a retry
// interval longer than the timeout would never allow a second probe.
func ValidateConfig() error {
	if w := GetPortWindow(); w < 1 {
		return fmt.Errorf("port.window must be at least 1, got %d", w)
	}
	if p := GetPreferredPort(); p < 1 || p > 65535 {
		return fmt.Errorf("port.preferred must be a valid TCP port, got %d", p)
	}
	timeout := GetHealthTimeout()
	interval := GetHealthInterval()
	if timeout <= 0 {
		return fmt.Errorf("health.timeout must be positive, got %s", timeout)
	}
	if interval <= 0 {
		return fmt.Errorf("health.interval must be positive, got %s", interval)
	}
	if interval > timeout {
		return fmt.Errorf("health.interval (%s) must not exceed health.timeout (%s)", interval, timeout)
	}
	return nil
}
