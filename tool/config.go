package tool

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/bulletd/bulletd/types"
)

const appDirName = "bulletd"

// ConfigDir returns the per-user configuration directory holding the
// config file, credential files and the notification icon.
func ConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		home, _ := os.UserHomeDir()
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appDirName)
}

// APIKeyPath is the fixed location of the access-token file.
func APIKeyPath() string {
	return filepath.Join(ConfigDir(), "apikey")
}

// PasswordPath is the fixed location of the encryption-passphrase file.
func PasswordPath() string {
	return filepath.Join(ConfigDir(), "password")
}

func defaultConfig() types.AppConfig {
	return types.AppConfig{
		APIBase:     "https://api.pushbullet.com/v2",
		StreamURL:   "wss://stream.pushbullet.com/websocket",
		ProbeHost:   "api.pushbullet.com",
		ProbePort:   80,
		IconPath:    filepath.Join(ConfigDir(), "icon.png"),
		StatusAPI:   false,
		StatusPort:  53319,
		NotifyRate:  1,
		NotifyBurst: 5,
		DedupTTL:    300,
	}
}

// LoadConfig reads config.yaml from the config directory. A missing
// file is not an error; defaults are used and nothing is written back.
func LoadConfig() (types.AppConfig, error) {
	cfg := defaultConfig()
	path := filepath.Join(ConfigDir(), "config.yaml")

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			DefaultLogger.Debugf("No config file at %s, using defaults", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config file: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %v", err)
	}
	return cfg, nil
}
