package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadEnvParsesCredentialFile(t *testing.T) {
	unsetEnv(t, "ITDX_API_KEY")
	unsetEnv(t, "ITDX_API_SECRET")
	unsetEnv(t, "ITDX_EMPTY")
	path := filepath.Join(t.TempDir(), ".env")
	content := "" +
		"# exchange credentials\n" +
		"ITDX_API_KEY=key-id\n" +
		"ITDX_API_SECRET=\"s3cret\"\n" +
		"ITDX_EMPTY=\n" +
		"not-a-pair\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("ITDX_API_KEY"); got != "key-id" {
		t.Fatalf("ITDX_API_KEY expected key-id, got %q", got)
	}
	if got := os.Getenv("ITDX_API_SECRET"); got != "s3cret" {
		t.Fatalf("quotes must be stripped, got %q", got)
	}
	if got := os.Getenv("ITDX_EMPTY"); got != "" {
		t.Fatalf("ITDX_EMPTY expected empty, got %q", got)
	}
}

func TestLoadEnvDoesNotOverrideExisting(t *testing.T) {
	t.Setenv("ITDX_API_KEY", "from-shell")
	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("ITDX_API_KEY=from-file\n"), 0o600); err != nil {
		t.Fatalf("write env: %v", err)
	}
	if err := LoadEnv(path); err != nil {
		t.Fatalf("load env: %v", err)
	}
	if got := os.Getenv("ITDX_API_KEY"); got != "from-shell" {
		t.Fatalf("shell value must win, got %q", got)
	}
}

func TestLoadEnvMissingFileIsFine(t *testing.T) {
	if err := LoadEnv(filepath.Join(t.TempDir(), "absent.env")); err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	if old, ok := os.LookupEnv(key); ok {
		t.Cleanup(func() { _ = os.Setenv(key, old) })
	} else {
		t.Cleanup(func() { _ = os.Unsetenv(key) })
	}
	_ = os.Unsetenv(key)
}
