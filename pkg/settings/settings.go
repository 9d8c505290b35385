// Package settings manages persistent user settings for the clab-connector CLI.
package settings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// Settings holds persistent user preferences
type Settings struct {
	// EDAURL is the EDA API base URL used when --eda-url is not given
	EDAURL string `json:"eda_url,omitempty"`

	// EDAUser is the EDA user (realm "eda")
	EDAUser string `json:"eda_user,omitempty"`

	// KCUser is the Keycloak master realm admin user
	KCUser string `json:"kc_user,omitempty"`

	// Verify enables TLS certificate verification against EDA
	Verify bool `json:"verify,omitempty"`

	// Kubeconfig overrides the kubeconfig used for cluster operations
	Kubeconfig string `json:"kubeconfig,omitempty"`
}

// DefaultSettingsPath returns the default path for the settings file
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "clab_connector_settings.json"
	}
	return filepath.Join(home, ".clab-connector", "settings.json")
}

// Load reads settings from the default location
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return empty settings if file doesn't exist
			return s, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}

	return s, nil
}

// Save writes settings to the default location
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

// Set assigns a setting by its CLI key.
func (s *Settings) Set(key, value string) error {
	switch key {
	case "eda-url":
		s.EDAURL = value
	case "eda-user":
		s.EDAUser = value
	case "kc-user":
		s.KCUser = value
	case "kubeconfig":
		s.Kubeconfig = value
	case "verify":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("verify: %w", err)
		}
		s.Verify = b
	default:
		return fmt.Errorf("unknown setting %q (valid: %v)", key, Keys())
	}
	return nil
}

// Get returns a setting by its CLI key.
func (s *Settings) Get(key string) (string, error) {
	switch key {
	case "eda-url":
		return s.EDAURL, nil
	case "eda-user":
		return s.EDAUser, nil
	case "kc-user":
		return s.KCUser, nil
	case "kubeconfig":
		return s.Kubeconfig, nil
	case "verify":
		return strconv.FormatBool(s.Verify), nil
	}
	return "", fmt.Errorf("unknown setting %q (valid: %v)", key, Keys())
}

// Keys returns the settable keys in sorted order.
func Keys() []string {
	keys := []string{"eda-url", "eda-user", "kc-user", "kubeconfig", "verify"}
	sort.Strings(keys)
	return keys
}

// Clear resets all settings to defaults
func (s *Settings) Clear() {
	*s = Settings{}
}
