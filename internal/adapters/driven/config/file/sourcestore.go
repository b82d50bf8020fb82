package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/pelletier/go-toml/v2"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driven"
)

// Ensure SourceStore implements the interface.
var _ driven.SourceConfigStore = (*SourceStore)(nil)

// SourceStore is a TOML-file implementation of driven.SourceConfigStore.
type SourceStore struct {
	mu       sync.Mutex
	filePath string
}

// sourceRecord is the on-disk shape of one source.
type sourceRecord struct {
	Name         string            `toml:"name"`
	Enabled      string            `toml:"enabled"`
	Fallback     string            `toml:"fallback"`
	APIKeyEnvVar string            `toml:"api_key_env,omitempty"`
	Priority     int               `toml:"priority"`
	Metadata     map[string]string `toml:"metadata,omitempty"`
}

type sourcesFile struct {
	Sources []sourceRecord `toml:"sources"`
}

// NewSourceStore creates a TOML-based source config store.
// If configDir is empty, defaults to ~/.vigil/sources.toml.
func NewSourceStore(configDir string) (*SourceStore, error) {
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(home, ".vigil")
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, err
	}

	return &SourceStore{
		filePath: filepath.Join(configDir, "sources.toml"),
	}, nil
}

// Load reads all source configurations from the TOML file.
// Returns domain.ErrNotFound when the file does not exist yet.
func (s *SourceStore) Load(_ context.Context) ([]domain.SourceConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s: %w", s.filePath, domain.ErrNotFound)
		}
		return nil, err
	}

	var parsed sourcesFile
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.filePath, err)
	}

	configs := make([]domain.SourceConfig, 0, len(parsed.Sources))
	for _, rec := range parsed.Sources {
		cfg, err := recordToConfig(rec)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", rec.Name, err)
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// Save persists the full source configuration set, replacing the file.
func (s *SourceStore) Save(_ context.Context, configs []domain.SourceConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := sourcesFile{Sources: make([]sourceRecord, 0, len(configs))}
	for _, cfg := range configs {
		out.Sources = append(out.Sources, sourceRecord{
			Name:         cfg.Name,
			Enabled:      string(cfg.Enabled),
			Fallback:     string(cfg.Fallback),
			APIKeyEnvVar: cfg.APIKeyEnvVar,
			Priority:     cfg.Priority,
			Metadata:     cfg.Metadata,
		})
	}

	data, err := toml.Marshal(out)
	if err != nil {
		return fmt.Errorf("encoding sources: %w", err)
	}

	// Restricted permissions: metadata may reference credential env vars.
	return os.WriteFile(s.filePath, data, 0600)
}

// Path returns the configuration file path.
func (s *SourceStore) Path() string {
	return s.filePath
}

func recordToConfig(rec sourceRecord) (domain.SourceConfig, error) {
	enabled, err := domain.ParseEnablement(rec.Enabled)
	if err != nil {
		return domain.SourceConfig{}, err
	}
	fallback, err := domain.ParseFallbackMode(rec.Fallback)
	if err != nil {
		return domain.SourceConfig{}, err
	}
	return domain.SourceConfig{
		Name:         rec.Name,
		Enabled:      enabled,
		Fallback:     fallback,
		APIKeyEnvVar: rec.APIKeyEnvVar,
		Priority:     rec.Priority,
		Metadata:     rec.Metadata,
	}, nil
}
