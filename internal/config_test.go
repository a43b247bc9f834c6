package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should be valid: %v", err)
	}
	if cfg.Cache.IndexDir() == "" || cfg.State.SQLite.Path == "" {
		t.Error("cache defaults not populated")
	}
	if len(cfg.Library.Extensions) == 0 {
		t.Error("default extensions missing")
	}
}

func TestIndexConfig_OnExisting(t *testing.T) {
	cfg := IndexConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty index config should pass: %v", err)
	}
	if cfg.OnExisting != "skip" {
		t.Errorf("on_existing = %q, want skip", cfg.OnExisting)
	}
	cfg.OnExisting = "replace"
	if err := cfg.Validate(); err != nil {
		t.Errorf("replace should pass: %v", err)
	}
	cfg.OnExisting = "merge"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown on_existing should fail")
	}
}

func TestIndexConfig_NegativeWorkers(t *testing.T) {
	cfg := IndexConfig{Workers: -1}
	if err := cfg.Validate(); err == nil {
		t.Error("negative workers should fail")
	}
}

func TestStateConfig_Drivers(t *testing.T) {
	cfg := StateConfig{SQLite: SQLiteConfig{Path: "state.db"}}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("sqlite default should pass: %v", err)
	}
	if cfg.Driver != StateDriverSQLite {
		t.Errorf("driver = %q, want sqlite", cfg.Driver)
	}

	cfg = StateConfig{Driver: StateDriverRedis}
	if err := cfg.Validate(); err == nil {
		t.Error("redis without addr should fail")
	}
	cfg.Redis.Addr = "localhost:6379"
	if err := cfg.Validate(); err != nil {
		t.Errorf("redis with addr should pass: %v", err)
	}

	cfg = StateConfig{Driver: "etcd"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown driver should fail")
	}
}

func TestLibraryConfig_RootRequired(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Library.Root = ""
	if err := cfg.Validate(); err == nil {
		t.Error("missing library root should fail")
	}
}
