// Package config resolves the run configuration of the connector from
// command-line flags, the environment (optionally seeded from a .env file),
// persistent settings and built-in defaults, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/eda-labs/clab-connector/pkg/settings"
	"github.com/eda-labs/clab-connector/pkg/util"
)

// Environment variables consulted during resolution.
const (
	EnvEDAURL       = "EDA_URL"
	EnvEDAUser      = "EDA_USER"
	EnvEDAPassword  = "EDA_PASSWORD"
	EnvKCUser       = "KC_USER"
	EnvKCPassword   = "KC_PASSWORD"
	EnvKCSecret     = "KC_SECRET"
	EnvKubeconfig   = "KUBECONFIG"
	EnvSRLPassword  = "CLAB_SRL_PASSWORD"
	EnvSROSPassword = "CLAB_SROS_PASSWORD"
)

// Defaults
const (
	DefaultEDAUser = "admin"
	DefaultKCUser  = "admin"
	// DefaultKCPassword is the Keycloak admin password of a stock EDA install.
	DefaultKCPassword = "admin"
)

// Credentials are the device-side accounts used for node users, node
// profiles, SSH reachability checks and post-integration.
type Credentials struct {
	SRLUsername string
	SRLPassword string

	SROSUsername string
	SROSPassword string

	// SROSPostUsername/SROSPostPassword log into a freshly booted SROS node
	// before EDA has pushed its own users.
	SROSPostUsername string
	SROSPostPassword string
}

// DefaultCredentials returns the factory credentials of containerlab images.
func DefaultCredentials() Credentials {
	return Credentials{
		SRLUsername:      "admin",
		SRLPassword:      "NokiaSrl1!",
		SROSUsername:     "admin",
		SROSPassword:     "NokiaSros1!",
		SROSPostUsername: "admin",
		SROSPostPassword: "admin",
	}
}

// EDA holds connection parameters for the EDA API.
type EDA struct {
	URL        string
	User       string
	Password   string
	KCUser     string
	KCPassword string
	KCSecret   string
	Verify     bool
}

// Config is the fully resolved run configuration.
type Config struct {
	EDA         EDA
	Kubeconfig  string
	Credentials Credentials
}

// Flags carries values given on the command line. Empty strings and a nil
// Verify mean "not set".
type Flags struct {
	EDAURL      string
	EDAUser     string
	EDAPassword string
	KCUser      string
	KCPassword  string
	KCSecret    string
	Kubeconfig  string
	Verify      *bool
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is only
// an error when required is true.
func LoadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !required {
			return nil
		}
		return fmt.Errorf("env file %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("env file %s: %w", path, err)
	}
	return nil
}

// Resolve builds a Config from flags, environment, settings and defaults.
// s may be nil.
func Resolve(f Flags, s *settings.Settings) (*Config, error) {
	if s == nil {
		s = &settings.Settings{}
	}

	cfg := &Config{
		EDA: EDA{
			URL:        first(f.EDAURL, os.Getenv(EnvEDAURL), s.EDAURL),
			User:       first(f.EDAUser, os.Getenv(EnvEDAUser), s.EDAUser, DefaultEDAUser),
			Password:   first(f.EDAPassword, os.Getenv(EnvEDAPassword)),
			KCUser:     first(f.KCUser, os.Getenv(EnvKCUser), s.KCUser, DefaultKCUser),
			KCPassword: first(f.KCPassword, os.Getenv(EnvKCPassword), DefaultKCPassword),
			KCSecret:   first(f.KCSecret, os.Getenv(EnvKCSecret)),
			Verify:     s.Verify,
		},
		Kubeconfig:  first(f.Kubeconfig, os.Getenv(EnvKubeconfig), s.Kubeconfig),
		Credentials: ResolveCredentials(),
	}
	if f.Verify != nil {
		cfg.EDA.Verify = *f.Verify
	}

	return cfg, nil
}

// ResolveCredentials returns the default device credentials with the
// password overrides from the environment applied. It needs no EDA
// connection parameters.
func ResolveCredentials() Credentials {
	c := DefaultCredentials()
	if v := os.Getenv(EnvSRLPassword); v != "" {
		c.SRLPassword = v
	}
	if v := os.Getenv(EnvSROSPassword); v != "" {
		c.SROSPassword = v
	}
	return c
}

// ValidateEDA checks that the parameters needed to reach EDA are present.
// Every problem found is reported in a single util.ValidationError.
func (c *Config) ValidateEDA() error {
	var v util.ValidationBuilder
	if c.EDA.URL == "" {
		v.AddErrorf("EDA URL required: use --eda-url, set %s, or run 'clab-connector settings set eda-url <url>'", EnvEDAURL)
	} else {
		v.Add(strings.HasPrefix(c.EDA.URL, "http://") || strings.HasPrefix(c.EDA.URL, "https://"),
			fmt.Sprintf("EDA URL %q must start with http:// or https://", c.EDA.URL))
	}
	v.Add(c.EDA.User != "", "EDA user required")
	if c.EDA.KCSecret == "" {
		v.Add(c.EDA.KCUser != "" && c.EDA.KCPassword != "",
			"Keycloak admin user and password required when no client secret is given")
	}
	return v.Build()
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
