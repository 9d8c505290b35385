package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/eda-labs/clab-connector/pkg/settings"
	"github.com/eda-labs/clab-connector/pkg/util"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvEDAURL, EnvEDAUser, EnvEDAPassword, EnvKCUser,
		EnvKCPassword, EnvKCSecret, EnvKubeconfig, EnvSRLPassword, EnvSROSPassword} {
		t.Setenv(k, "")
	}
}

func TestDefaultCredentials(t *testing.T) {
	c := DefaultCredentials()
	if c.SRLUsername != "admin" || c.SRLPassword != "NokiaSrl1!" {
		t.Errorf("SRL credentials = %s/%s", c.SRLUsername, c.SRLPassword)
	}
	if c.SROSUsername != "admin" || c.SROSPassword != "NokiaSros1!" {
		t.Errorf("SROS credentials = %s/%s", c.SROSUsername, c.SROSPassword)
	}
	if c.SROSPostUsername != "admin" || c.SROSPostPassword != "admin" {
		t.Errorf("SROS post-integration credentials = %s/%s", c.SROSPostUsername, c.SROSPostPassword)
	}
}

func TestResolve_Precedence(t *testing.T) {
	clearEnv(t)
	s := &settings.Settings{EDAURL: "https://from-settings", EDAUser: "settings-user", Verify: true}

	t.Run("settings over defaults", func(t *testing.T) {
		cfg, err := Resolve(Flags{}, s)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.EDA.URL != "https://from-settings" {
			t.Errorf("URL = %q", cfg.EDA.URL)
		}
		if cfg.EDA.User != "settings-user" {
			t.Errorf("User = %q", cfg.EDA.User)
		}
		if !cfg.EDA.Verify {
			t.Error("Verify should come from settings")
		}
		if cfg.EDA.KCUser != DefaultKCUser || cfg.EDA.KCPassword != DefaultKCPassword {
			t.Errorf("KC = %s/%s", cfg.EDA.KCUser, cfg.EDA.KCPassword)
		}
	})

	t.Run("env over settings", func(t *testing.T) {
		t.Setenv(EnvEDAURL, "https://from-env")
		cfg, _ := Resolve(Flags{}, s)
		if cfg.EDA.URL != "https://from-env" {
			t.Errorf("URL = %q", cfg.EDA.URL)
		}
	})

	t.Run("flag over env", func(t *testing.T) {
		t.Setenv(EnvEDAURL, "https://from-env")
		verify := false
		cfg, _ := Resolve(Flags{EDAURL: "https://from-flag", Verify: &verify}, s)
		if cfg.EDA.URL != "https://from-flag" {
			t.Errorf("URL = %q", cfg.EDA.URL)
		}
		if cfg.EDA.Verify {
			t.Error("explicit --verify=false should win over settings")
		}
	})

	t.Run("nil settings", func(t *testing.T) {
		cfg, err := Resolve(Flags{}, nil)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.EDA.User != DefaultEDAUser {
			t.Errorf("User = %q", cfg.EDA.User)
		}
		if cfg.EDA.Password != "" {
			t.Errorf("Password = %q, want empty", cfg.EDA.Password)
		}
	})
}

func TestResolve_CredentialOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvSRLPassword, "s3cret")
	cfg, _ := Resolve(Flags{}, nil)
	if cfg.Credentials.SRLPassword != "s3cret" {
		t.Errorf("SRLPassword = %q", cfg.Credentials.SRLPassword)
	}
	if cfg.Credentials.SROSPassword != "NokiaSros1!" {
		t.Errorf("SROSPassword = %q", cfg.Credentials.SROSPassword)
	}
}

func TestResolveCredentials(t *testing.T) {
	tests := []struct {
		name     string
		srl      string
		sros     string
		wantSRL  string
		wantSROS string
	}{
		{"defaults", "", "", "NokiaSrl1!", "NokiaSros1!"},
		{"srl only", "a", "", "a", "NokiaSros1!"},
		{"both", "a", "b", "a", "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(EnvSRLPassword, tt.srl)
			t.Setenv(EnvSROSPassword, tt.sros)
			c := ResolveCredentials()
			if c.SRLPassword != tt.wantSRL || c.SROSPassword != tt.wantSROS {
				t.Errorf("got %q/%q, want %q/%q", c.SRLPassword, c.SROSPassword, tt.wantSRL, tt.wantSROS)
			}
			if c.SROSPostPassword != "admin" {
				t.Errorf("SROSPostPassword = %q", c.SROSPostPassword)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	data := "EDA_URL=https://from-dotenv\nKC_SECRET=abc123\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}

	// An already-set variable is not overridden.
	t.Setenv(EnvEDAURL, "https://already-set")
	os.Unsetenv(EnvKCSecret)
	t.Cleanup(func() { os.Unsetenv(EnvKCSecret) })

	if err := LoadEnvFile(path, true); err != nil {
		t.Fatalf("LoadEnvFile() error: %v", err)
	}
	if got := os.Getenv(EnvEDAURL); got != "https://already-set" {
		t.Errorf("EDA_URL = %q", got)
	}
	if got := os.Getenv(EnvKCSecret); got != "abc123" {
		t.Errorf("KC_SECRET = %q", got)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env"), false); err != nil {
		t.Errorf("optional missing file should not error: %v", err)
	}
	if err := LoadEnvFile(filepath.Join(dir, "missing.env"), true); err == nil {
		t.Error("required missing file should error")
	}
}

func TestValidateEDA(t *testing.T) {
	valid := EDA{URL: "https://eda.example", User: "admin", KCUser: "admin", KCPassword: "admin"}
	tests := []struct {
		name     string
		mutate   func(e *EDA)
		wantErrs int
	}{
		{"valid", func(e *EDA) {}, 0},
		{"http", func(e *EDA) { e.URL = "http://10.0.0.1:9200" }, 0},
		{"missing url", func(e *EDA) { e.URL = "" }, 1},
		{"no scheme", func(e *EDA) { e.URL = "eda.example" }, 1},
		{"client secret without admin", func(e *EDA) { e.KCUser, e.KCPassword, e.KCSecret = "", "", "s" }, 0},
		{"no keycloak credentials", func(e *EDA) { e.KCPassword = "" }, 1},
		{"everything missing", func(e *EDA) { *e = EDA{} }, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := valid
			tt.mutate(&e)
			err := (&Config{EDA: e}).ValidateEDA()
			if tt.wantErrs == 0 {
				if err != nil {
					t.Fatalf("ValidateEDA() error = %v", err)
				}
				return
			}
			var verr *util.ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateEDA() error = %v, want ValidationError", err)
			}
			if len(verr.Errors) != tt.wantErrs {
				t.Errorf("errors = %q, want %d", verr.Errors, tt.wantErrs)
			}
			if !errors.Is(err, util.ErrValidationFailed) {
				t.Error("error does not wrap ErrValidationFailed")
			}
		})
	}
}
