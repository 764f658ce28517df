// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets reads credentials from a directory of plain-text files.
// The filename is the key and the trimmed contents are the value. A key
// absent from the directory falls back to an environment variable named
// after it: anthropic-api-key becomes ANTHROPIC_API_KEY.
package secrets

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// AnthropicKey names the inference service credential.
const AnthropicKey = "anthropic-api-key"

// Store holds loaded secrets.
type Store struct {
	values map[string]string
	getenv func(string) string
}

// Load reads every regular, non-hidden file in dir. A missing directory
// yields an empty Store. Unreadable files are logged and skipped.
func Load(dir string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	s := &Store{values: make(map[string]string), getenv: os.Getenv}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			logger.Warn("unreadable secret", "name", name, "error", err)
			continue
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			s.values[name] = v
		}
	}
	return s, nil
}

// Get returns the value for key, checking the directory first and the
// environment second.
func (s *Store) Get(key string) string {
	if s == nil {
		return os.Getenv(EnvName(key))
	}
	if v, ok := s.values[key]; ok {
		return v
	}
	return strings.TrimSpace(s.getenv(EnvName(key)))
}

// Names returns the keys loaded from the directory.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.values))
	for k := range s.values {
		names = append(names, k)
	}
	return names
}

// EnvName maps a secret key to its environment variable.
func EnvName(key string) string {
	return strings.ToUpper(strings.ReplaceAll(key, "-", "_"))
}
