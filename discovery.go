// FILE: lixenwraith/settings/discovery.go
package settings

import (
	"os"
	"path/filepath"
	"strings"
)

// DefaultAppName names the default rc file (~/.settingsrc) and env var (SETTINGS_CONFIG)
const DefaultAppName = "settings"

// ConfigEnvVar returns the environment variable that overrides the config path
func ConfigEnvVar(appName string) string {
	return strings.ToUpper(appName) + "_CONFIG"
}

// DefaultConfigPath returns where the config file for appName lives:
// the <APP>_CONFIG environment variable if set, else ~/.<app>rc.
// Without a home directory it falls back to .<app>rc in the working directory.
func DefaultConfigPath(appName string) string {
	if path := os.Getenv(ConfigEnvVar(appName)); path != "" {
		return path
	}

	name := "." + appName + "rc"
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, name)
	}
	return name
}
