// Package config persists kibuild settings in a small JSON file and applies
// environment overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-json"
	"github.com/joho/godotenv"
)

// DefaultFile is the store kept in the working directory.
const DefaultFile = "kibuild.json"

const (
	KeyKiCadPath = "kicad_path"
	KeyKiCadCLI  = "kicad_cli"
	KeyBuildDir  = "build_dir"
)

// envKeys maps store keys to the environment variables that override them.
var envKeys = map[string]string{
	KeyKiCadPath: "KIBUILD_KICAD_PATH",
	KeyKiCadCLI:  "KIBUILD_KICAD_CLI",
	KeyBuildDir:  "KIBUILD_BUILD_DIR",
}

// Getter reads a configuration value. A missing key reads as "".
type Getter interface {
	Get(key string) string
}

// Store is a flat key/value file.
type Store struct {
	path   string
	values map[string]string
}

// Open reads the store at path. A file that does not exist yet is an empty
// store.
func Open(path string) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if len(data) == 0 {
		return s, nil
	}
	if err := json.Unmarshal(data, &s.values); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return s, nil
}

// Path returns the file backing the store.
func (s *Store) Path() string { return s.path }

// Get returns the value of key, with its environment override applied.
func (s *Store) Get(key string) string {
	v, _ := s.Lookup(key)
	return v
}

// Lookup returns the value of key and where it came from: the environment
// variable name, the store path, or "" when unset.
func (s *Store) Lookup(key string) (string, string) {
	if env, ok := envKeys[key]; ok {
		if v := os.Getenv(env); v != "" {
			return v, env
		}
	}
	if v, ok := s.values[key]; ok {
		return v, s.path
	}
	return "", ""
}

// Set stores value under key and writes the whole store back to disk.
// An empty value removes the key.
func (s *Store) Set(key, value string) error {
	if value == "" {
		delete(s.values, key)
	} else {
		s.values[key] = value
	}
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("config: %w", err)
		}
	}
	if err := os.WriteFile(s.path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Keys returns the stored keys in sorted order.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadEnv loads .env style files into the process environment. Files that
// do not exist are skipped and variables already set are left alone. With
// no arguments ".env" in the working directory is tried.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: load %s: %w", f, err)
		}
	}
	return nil
}
