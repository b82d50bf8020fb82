package services

import (
	"context"
	"errors"
	"sync"

	"github.com/sony/gobreaker"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driven"
	"github.com/pharmos-labs/vigil-cli/internal/normalisers/unified"
)

// Handle binds one source client to its configuration, retry policy and
// safe-fetch machinery. The registry owns handle creation; the manager
// only ever talks to sources through handles, which is what guarantees
// that no concrete source implementation can break the pipeline.
type Handle struct {
	client   driven.SourceClient
	executor *SafeExecutor
	breaker  *gobreaker.CircuitBreaker

	mu      sync.RWMutex
	cfg     domain.SourceConfig
	policy  domain.RetryPolicy
	enabled bool
	hasKey  bool
}

// Name returns the source key.
func (h *Handle) Name() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg.Name
}

// Config returns a copy of the source configuration.
func (h *Handle) Config() domain.SourceConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// Enabled reports the resolved enablement state.
func (h *Handle) Enabled() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.enabled
}

// HasKey reports whether the source's credential was present at load time.
func (h *Handle) HasKey() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.hasKey
}

// Priority returns the configured fetch priority.
func (h *Handle) Priority() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg.Priority
}

// SafeFetch queries the source without ever raising.
//
// Disabled sources return their fallback immediately, never touching
// Fetch. Enabled sources fetch through the SafeExecutor with bounded
// retries; on exhaustion the configured fallback is served. The
// returned error reports the underlying failure (if any) purely for
// bookkeeping - the entry slice is always usable.
func (h *Handle) SafeFetch(ctx context.Context, query domain.Query) ([]domain.RawEntry, error) {
	h.mu.RLock()
	cfg := h.cfg
	policy := h.policy
	enabled := h.enabled
	h.mu.RUnlock()

	if !enabled {
		return cfg.FallbackEntries(), nil
	}

	op := func(ctx context.Context) ([]domain.RawEntry, error) {
		return h.client.Fetch(ctx, query)
	}
	if h.breaker != nil {
		op = h.throughBreaker(op)
	}

	return h.executor.ExecuteWithFallback(ctx, cfg.Name, policy, op, cfg.FallbackEntries)
}

// throughBreaker wraps op in the optional circuit breaker. An open
// breaker fails fast and is classified as a client fault so the
// executor aborts straight to fallback instead of burning retries.
func (h *Handle) throughBreaker(op Operation) Operation {
	return func(ctx context.Context) ([]domain.RawEntry, error) {
		res, err := h.breaker.Execute(func() (any, error) {
			return op(ctx)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return nil, domain.ClientError(err)
			}
			return nil, err
		}
		return res.([]domain.RawEntry), nil
	}
}

// Normalise maps one raw payload to the unified schema, using the
// client's own normaliser when it provides one.
func (h *Handle) Normalise(raw domain.RawEntry) (*domain.UnifiedEntry, error) {
	if n, ok := h.client.(driven.EntryNormaliser); ok {
		return n.Normalise(raw)
	}
	return unified.Normalise(raw, h.Name())
}

// BreakerState returns the breaker position as a gauge value:
// 0 closed, 0.5 half-open, 1 open. Returns 0 when no breaker is bound.
func (h *Handle) BreakerState() float64 {
	if h.breaker == nil {
		return 0
	}
	switch h.breaker.State() {
	case gobreaker.StateOpen:
		return 1
	case gobreaker.StateHalfOpen:
		return 0.5
	default:
		return 0
	}
}

// Close releases the underlying client's resources.
func (h *Handle) Close() error {
	return h.client.Close()
}

func (h *Handle) setEnabled(e domain.Enablement) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg.Enabled = e
	h.enabled = resolveEnabled(e, h.hasKey, h.cfg.APIKeyEnvVar)
}

func (h *Handle) setPriority(p int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg.Priority = p
}

func (h *Handle) setFallback(m domain.FallbackMode) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg.Fallback = m
}

// resolveEnabled turns the tri-state flag into a concrete decision.
// "auto" means: enabled exactly when no key is required or the key is
// present. Evaluated at load time; credentials are assumed stable for
// the process lifetime.
func resolveEnabled(e domain.Enablement, hasKey bool, keyEnvVar string) bool {
	switch e {
	case domain.EnabledOn:
		return true
	case domain.EnabledOff:
		return false
	case domain.EnabledAuto:
		return keyEnvVar == "" || hasKey
	default:
		return false
	}
}
