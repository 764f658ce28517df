// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// ReadDigest loads a digest JSON file. A missing file yields an empty
// digest.
func ReadDigest(path string) (types.Digest, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return types.Digest{}, nil
	}
	if err != nil {
		return nil, err
	}
	digest := types.Digest{}
	if err := json.Unmarshal(data, &digest); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return digest, nil
}

// WriteDigest writes digest as indented JSON, creating parent directories.
func WriteDigest(path string, digest types.Digest) error {
	if digest == nil {
		digest = types.Digest{}
	}
	data, err := json.MarshalIndent(digest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling digest: %w", err)
	}
	return writeFile(path, data)
}

// WriteDigestYAML writes digest as YAML.
func WriteDigestYAML(path string, digest types.Digest) error {
	data, err := yaml.Marshal(digest)
	if err != nil {
		return fmt.Errorf("marshaling digest: %w", err)
	}
	return writeFile(path, data)
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
