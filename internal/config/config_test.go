package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", DefaultFile)

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open on missing file: %v", err)
	}
	if got := s.Get(KeyKiCadPath); got != "" {
		t.Errorf("empty store returned %q", got)
	}

	if err := s.Set(KeyKiCadPath, "/usr/share/kicad/"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := s.Set("theme", "dark"); err != nil {
		t.Fatal(err)
	}

	again, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if got := again.Get(KeyKiCadPath); got != "/usr/share/kicad/" {
		t.Errorf("Get after reopen = %q", got)
	}
	if keys := again.Keys(); !reflect.DeepEqual(keys, []string{KeyKiCadPath, "theme"}) {
		t.Errorf("Keys() = %v", keys)
	}

	if err := again.Set("theme", ""); err != nil {
		t.Fatal(err)
	}
	if _, src := again.Lookup("theme"); src != "" {
		t.Errorf("cleared key still has source %q", src)
	}
}

func TestEnvOverride(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), DefaultFile))
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Set(KeyKiCadCLI, "/from/store"); err != nil {
		t.Fatal(err)
	}

	t.Setenv("KIBUILD_KICAD_CLI", "/from/env")
	v, src := s.Lookup(KeyKiCadCLI)
	if v != "/from/env" || src != "KIBUILD_KICAD_CLI" {
		t.Errorf("Lookup = %q from %q", v, src)
	}

	t.Setenv("KIBUILD_KICAD_CLI", "")
	if v, src := s.Lookup(KeyKiCadCLI); v != "/from/store" || src != s.Path() {
		t.Errorf("Lookup = %q from %q", v, src)
	}
}

func TestOpenInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFile)
	if err := os.WriteFile(path, []byte("{oops"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Open(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	env := filepath.Join(dir, ".env")
	if err := os.WriteFile(env, []byte("KIBUILD_KICAD_PATH=/opt/kicad/\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("KIBUILD_KICAD_PATH", "")
	os.Unsetenv("KIBUILD_KICAD_PATH")

	if err := LoadEnv(filepath.Join(dir, "missing.env"), env); err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if got := os.Getenv("KIBUILD_KICAD_PATH"); got != "/opt/kicad/" {
		t.Errorf("KIBUILD_KICAD_PATH = %q", got)
	}
}
