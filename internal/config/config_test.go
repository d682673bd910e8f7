package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tracmeta/metacore/internal/config"
)

func TestLoadAppliesDefaultsWhenNoFileOrEnv(t *testing.T) {
	t.Setenv("METACORE_CONNECTION_STRING", "file:defaults?mode=memory")
	cfg, err := config.Load("", nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dialect != "sqlite" {
		t.Errorf("Dialect = %q, want sqlite", cfg.Dialect)
	}
	if cfg.RetryCap != 3 {
		t.Errorf("RetryCap = %d, want 3", cfg.RetryCap)
	}
	if cfg.GRPCAddress != ":7443" {
		t.Errorf("GRPCAddress = %q, want :7443", cfg.GRPCAddress)
	}
}

func TestLoadRejectsMissingConnectionString(t *testing.T) {
	_, err := config.Load("", nil)
	if err == nil {
		t.Fatal("expected an error when connection_string is unset")
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metacore.yaml")
	contents := "dialect: postgres\nconnection_string: postgres://localhost/metacore\nretry_cap: 2\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	cfg, err := config.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dialect != "postgres" {
		t.Errorf("Dialect = %q, want postgres", cfg.Dialect)
	}
	if cfg.RetryCap != 2 {
		t.Errorf("RetryCap = %d, want 2", cfg.RetryCap)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "metacore.yaml")
	contents := "dialect: postgres\nconnection_string: postgres://localhost/metacore\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	t.Setenv("METACORE_DIALECT", "mysql")

	cfg, err := config.Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dialect != "mysql" {
		t.Errorf("Dialect = %q, want mysql (env should override the file)", cfg.Dialect)
	}
}

func TestLoadRejectsUnsupportedDialect(t *testing.T) {
	t.Setenv("METACORE_DIALECT", "oracle")
	t.Setenv("METACORE_CONNECTION_STRING", "whatever")
	_, err := config.Load("", nil)
	if err == nil {
		t.Fatal("expected an error for an unsupported dialect")
	}
}

func TestLoadRejectsOutOfRangeRetryCap(t *testing.T) {
	t.Setenv("METACORE_CONNECTION_STRING", "whatever")
	t.Setenv("METACORE_RETRY_CAP", "4")
	_, err := config.Load("", nil)
	if err == nil {
		t.Fatal("expected an error for retry_cap above 3")
	}
}
