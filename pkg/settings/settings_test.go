package settings

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSettings_SetGet(t *testing.T) {
	s := &Settings{}

	tests := []struct {
		key   string
		value string
	}{
		{"eda-url", "https://eda.example"},
		{"eda-user", "operator"},
		{"kc-user", "kcadmin"},
		{"kubeconfig", "/tmp/kubeconfig"},
		{"verify", "true"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if err := s.Set(tt.key, tt.value); err != nil {
				t.Fatalf("Set(%q) error: %v", tt.key, err)
			}
			got, err := s.Get(tt.key)
			if err != nil {
				t.Fatalf("Get(%q) error: %v", tt.key, err)
			}
			if got != tt.value {
				t.Errorf("Get(%q) = %q, want %q", tt.key, got, tt.value)
			}
		})
	}
}

func TestSettings_SetInvalid(t *testing.T) {
	s := &Settings{}
	if err := s.Set("bogus", "x"); err == nil {
		t.Error("Set(bogus) should error")
	}
	if err := s.Set("verify", "maybe"); err == nil {
		t.Error("Set(verify, maybe) should error")
	}
	if _, err := s.Get("bogus"); err == nil {
		t.Error("Get(bogus) should error")
	}
}

func TestSettings_Clear(t *testing.T) {
	s := &Settings{
		EDAURL:  "https://eda.example",
		EDAUser: "admin",
		Verify:  true,
	}

	s.Clear()

	if s.EDAURL != "" || s.EDAUser != "" || s.Verify {
		t.Error("Clear() should reset all fields")
	}
}

func TestSettings_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	original := &Settings{
		EDAURL:     "https://eda.example",
		EDAUser:    "admin",
		KCUser:     "admin",
		Verify:     true,
		Kubeconfig: "/home/lab/.kube/config",
	}

	if err := original.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom() failed: %v", err)
	}

	if *loaded != *original {
		t.Errorf("loaded = %+v, want %+v", loaded, original)
	}
}

func TestSettings_LoadNonExistent(t *testing.T) {
	s, err := LoadFrom("/nonexistent/path/settings.json")
	if err != nil {
		t.Fatalf("LoadFrom() non-existent should not error: %v", err)
	}
	if s == nil {
		t.Fatal("LoadFrom() should return non-nil Settings")
	}
	if s.EDAURL != "" {
		t.Error("LoadFrom() non-existent should return empty settings")
	}
}

func TestSettings_LoadInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("invalid json {"), 0644); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("LoadFrom() with invalid JSON should error")
	}
}

func TestSettings_SaveCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subdir", "nested", "settings.json")

	s := &Settings{EDAURL: "https://eda.example"}
	if err := s.SaveTo(path); err != nil {
		t.Fatalf("SaveTo() should create directories: %v", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("SaveTo() should have created the file")
	}
}

func TestDefaultSettingsPath(t *testing.T) {
	t.Setenv("HOME", "/home/lab")
	want := filepath.Join("/home/lab", ".clab-connector", "settings.json")
	if got := DefaultSettingsPath(); got != want {
		t.Errorf("DefaultSettingsPath() = %q, want %q", got, want)
	}
}
