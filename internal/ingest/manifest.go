package ingest

import (
	"fmt"
	"os"

	"github.com/MeKo-Tech/census-contrib/internal/metadata"
	"gopkg.in/yaml.v3"
)

// Manifest is written next to the staged embedding.
type Manifest struct {
	Metadata *metadata.Metadata `yaml:"metadata"`
	Summary  *Result            `yaml:"summary"`
	Files    []string           `yaml:"files"`
}

func writeManifest(path string, md *metadata.Metadata, result *Result) error {
	data, err := yaml.Marshal(Manifest{
		Metadata: md,
		Summary:  result,
		Files:    []string{EmbeddingFile},
	})
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// ReadManifest loads a manifest written by Run.
func ReadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is supplied by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	return &m, nil
}
