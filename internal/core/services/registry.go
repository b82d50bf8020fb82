package services

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/pharmos-labs/vigil-cli/internal/connectors/ctgov"
	"github.com/pharmos-labs/vigil-cli/internal/connectors/fhir"
	"github.com/pharmos-labs/vigil-cli/internal/connectors/medwatch"
	"github.com/pharmos-labs/vigil-cli/internal/connectors/openfda"
	"github.com/pharmos-labs/vigil-cli/internal/connectors/pubmed"
	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driven"
)

// RegistryOption customises registry construction.
type RegistryOption func(*SourceRegistry)

// WithRetryPolicy overrides the per-client retry policy.
func WithRetryPolicy(p domain.RetryPolicy) RegistryOption {
	return func(r *SourceRegistry) { r.policy = p }
}

// WithCircuitBreaker turns on the optional per-source circuit breaker.
// Off by default: the base design re-evaluates every source fresh on
// each fetch cycle.
func WithCircuitBreaker() RegistryOption {
	return func(r *SourceRegistry) { r.breakerEnabled = true }
}

// SourceRegistry instantiates and tracks every known source client.
// Built once at startup from declarative configuration and treated as
// read-mostly afterwards; Register exists for tests and dynamic
// extension.
type SourceRegistry struct {
	log      *zap.Logger
	executor *SafeExecutor
	policy   domain.RetryPolicy

	breakerEnabled bool

	mu       sync.RWMutex
	builders map[string]driven.ClientBuilder
	handles  map[string]*Handle
}

// NewSourceRegistry creates a registry with the built-in client
// builders registered.
func NewSourceRegistry(log *zap.Logger, executor *SafeExecutor, opts ...RegistryOption) *SourceRegistry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &SourceRegistry{
		log:      log,
		executor: executor,
		policy:   domain.DefaultRetryPolicy(),
		builders: make(map[string]driven.ClientBuilder),
		handles:  make(map[string]*Handle),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.registerBuiltinBuilders()
	return r
}

func (r *SourceRegistry) registerBuiltinBuilders() {
	r.builders["openfda"] = openfda.New
	r.builders["pubmed"] = pubmed.New
	r.builders["ctgov"] = ctgov.New
	r.builders["fhir"] = fhir.New
	r.builders["medwatch"] = medwatch.New
}

// RegisterBuilder adds a client builder for a source name.
func (r *SourceRegistry) RegisterBuilder(name string, builder driven.ClientBuilder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = builder
}

// Load builds handles for every configured source.
//
// A missing configuration falls back to the built-in default source
// list. A single malformed entry or failing builder is logged and that
// source omitted; loading of the remaining sources always proceeds.
func (r *SourceRegistry) Load(ctx context.Context, store driven.SourceConfigStore) error {
	configs, err := store.Load(ctx)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		r.log.Warn("no source configuration found, using built-in defaults",
			zap.String("path", store.Path()))
		configs = DefaultSourceConfigs()
	case err != nil:
		return domain.ConfigError(err)
	}

	for _, cfg := range configs {
		if addErr := r.Add(cfg); addErr != nil {
			r.log.Error("skipping source",
				zap.String("source", cfg.Name),
				zap.String("kind", domain.KindOf(addErr).String()),
				zap.Error(addErr))
		}
	}
	return nil
}

// Add validates cfg, instantiates its client and registers the handle.
func (r *SourceRegistry) Add(cfg domain.SourceConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	builder, ok := r.builders[cfg.Name]
	if !ok {
		return domain.ConfigError(domain.ErrUnsupportedType)
	}

	client, err := builder(cfg)
	if err != nil {
		return domain.ConfigError(err)
	}

	r.handles[cfg.Name] = r.newHandle(client, cfg)
	return nil
}

// Register binds an already-constructed client under cfg.
// Intended for tests and dynamic extension.
func (r *SourceRegistry) Register(client driven.SourceClient, cfg domain.SourceConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg.Name = client.Name()
	r.handles[cfg.Name] = r.newHandle(client, cfg)
}

func (r *SourceRegistry) newHandle(client driven.SourceClient, cfg domain.SourceConfig) *Handle {
	hasKey := hasCredential(cfg)
	h := &Handle{
		client:   client,
		executor: r.executor,
		cfg:      cfg,
		policy:   r.policy,
		enabled:  resolveEnabled(cfg.Enabled, hasKey, cfg.APIKeyEnvVar),
		hasKey:   hasKey,
	}
	if r.breakerEnabled {
		h.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:     cfg.Name,
			Interval: 30 * time.Second,
			Timeout:  60 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures > 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				r.log.Warn("circuit breaker state change",
					zap.String("source", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()))
			},
		})
	}
	return h
}

// Enabled returns handles for enabled sources, priority-descending.
func (r *SourceRegistry) Enabled() []*Handle {
	all := r.All()
	enabled := make([]*Handle, 0, len(all))
	for _, h := range all {
		if h.Enabled() {
			enabled = append(enabled, h)
		}
	}
	return enabled
}

// All returns every registered handle, priority-descending.
// Ties are broken by name for a stable order.
func (r *SourceRegistry) All() []*Handle {
	r.mu.RLock()
	handles := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	sort.Slice(handles, func(i, j int) bool {
		pi, pj := handles[i].Priority(), handles[j].Priority()
		if pi != pj {
			return pi > pj
		}
		return handles[i].Name() < handles[j].Name()
	})
	return handles
}

// Get returns the handle for a source name.
func (r *SourceRegistry) Get(name string) (*Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handles[name]
	return h, ok
}

// IsAvailable reports whether the named source exists and is enabled.
func (r *SourceRegistry) IsAvailable(name string) bool {
	h, ok := r.Get(name)
	return ok && h.Enabled()
}

// Configs returns the current configuration set, priority-descending.
func (r *SourceRegistry) Configs() []domain.SourceConfig {
	all := r.All()
	configs := make([]domain.SourceConfig, 0, len(all))
	for _, h := range all {
		configs = append(configs, h.Config())
	}
	return configs
}

// Close releases all clients.
func (r *SourceRegistry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var errs []error
	for _, h := range r.handles {
		if err := h.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// hasCredential reports whether the source's API key environment
// variable holds a non-empty value. Sources that require no key
// trivially have their credential.
func hasCredential(cfg domain.SourceConfig) bool {
	if cfg.APIKeyEnvVar == "" {
		return true
	}
	return os.Getenv(cfg.APIKeyEnvVar) != ""
}

// DefaultSourceConfigs is the built-in source list used when no
// configuration file exists yet.
func DefaultSourceConfigs() []domain.SourceConfig {
	return []domain.SourceConfig{
		{
			Name:         "openfda",
			Enabled:      domain.EnabledAuto,
			Fallback:     domain.FallbackWarning,
			APIKeyEnvVar: "OPENFDA_API_KEY",
			Priority:     100,
		},
		{
			Name:     "pubmed",
			Enabled:  domain.EnabledOn,
			Fallback: domain.FallbackSilent,
			Priority: 80,
		},
		{
			Name:     "ctgov",
			Enabled:  domain.EnabledOn,
			Fallback: domain.FallbackSilent,
			Priority: 60,
		},
		{
			Name:     "fhir",
			Enabled:  domain.EnabledAuto,
			Fallback: domain.FallbackWarning,
			Priority: 40,
			Metadata: map[string]string{"base_url": "https://hapi.fhir.org/baseR4"},
		},
		{
			Name:     "medwatch",
			Enabled:  domain.EnabledOn,
			Fallback: domain.FallbackSilent,
			Priority: 20,
		},
	}
}
