package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pharmos-labs/vigil-cli/internal/core/domain"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driven"
	"github.com/pharmos-labs/vigil-cli/internal/core/ports/driving"
	"github.com/pharmos-labs/vigil-cli/internal/metrics"
)

// Ensure IngestionManager implements the interface.
var _ driving.IngestionManager = (*IngestionManager)(nil)

// defaultMaxConcurrent bounds the fetch fan-out when the caller does
// not configure a limit.
const defaultMaxConcurrent = 4

// ManagerOption customises manager construction.
type ManagerOption func(*IngestionManager)

// WithEntryStore wires an optional sink that persists fetched entries.
func WithEntryStore(store driven.EntryStore) ManagerOption {
	return func(m *IngestionManager) { m.entryStore = store }
}

// WithMetrics wires Prometheus instrumentation.
func WithMetrics(mx *metrics.Metrics) ManagerOption {
	return func(m *IngestionManager) { m.metrics = mx }
}

// WithMaxConcurrent bounds how many sources are fetched in parallel.
func WithMaxConcurrent(n int) ManagerOption {
	return func(m *IngestionManager) {
		if n > 0 {
			m.maxConcurrent = n
		}
	}
}

// IngestionManager orchestrates fetching across all configured sources.
//
// Sources are independent: they are fetched in parallel (bounded by a
// worker limit) and one source's total failure never prevents others
// from contributing. The manager exclusively owns the per-source
// runtime stats and the merged output buffer of a single FetchAll call.
type IngestionManager struct {
	log         *zap.Logger
	registry    *SourceRegistry
	configStore driven.SourceConfigStore
	entryStore  driven.EntryStore
	metrics     *metrics.Metrics

	maxConcurrent int

	statsMu sync.Mutex
	stats   map[string]*domain.RuntimeStats
}

// NewIngestionManager creates a manager over a loaded registry.
// Runtime stats start at zero for every registered source and are
// never reset except by constructing a new manager.
func NewIngestionManager(
	log *zap.Logger,
	registry *SourceRegistry,
	configStore driven.SourceConfigStore,
	opts ...ManagerOption,
) *IngestionManager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &IngestionManager{
		log:           log,
		registry:      registry,
		configStore:   configStore,
		metrics:       metrics.New(nil),
		maxConcurrent: defaultMaxConcurrent,
		stats:         make(map[string]*domain.RuntimeStats),
	}
	for _, opt := range opts {
		opt(m)
	}
	for _, h := range registry.All() {
		m.stats[h.Name()] = &domain.RuntimeStats{}
	}
	return m
}

// FetchAll queries every configured source and returns the merged
// unified list. Disabled sources contribute their fallback output.
// Entries are merged in source priority order; within one source the
// emission order is preserved.
func (m *IngestionManager) FetchAll(ctx context.Context, query domain.Query) ([]domain.UnifiedEntry, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	handles := m.registry.All()
	results := make([][]domain.UnifiedEntry, len(handles))

	g := new(errgroup.Group)
	g.SetLimit(m.maxConcurrent)

	for i, h := range handles {
		i, h := i, h
		g.Go(func() error {
			results[i] = m.fetchOne(ctx, h, query)
			return nil
		})
	}
	// Tasks never return errors; failures are recorded in stats.
	_ = g.Wait()

	var merged []domain.UnifiedEntry
	for _, entries := range results {
		merged = append(merged, entries...)
	}

	m.persist(ctx, merged)

	m.log.Info("fetch cycle complete",
		zap.String("drug", query.DrugName),
		zap.Int("sources", len(handles)),
		zap.Int("entries", len(merged)))
	return merged, nil
}

// FetchBySource queries one named source through the same safe path.
// Unknown or disabled sources yield an empty list.
func (m *IngestionManager) FetchBySource(ctx context.Context, name string, query domain.Query) ([]domain.UnifiedEntry, error) {
	if err := query.Validate(); err != nil {
		return nil, err
	}

	h, ok := m.registry.Get(name)
	if !ok || !h.Enabled() {
		return []domain.UnifiedEntry{}, nil
	}

	entries := m.fetchOne(ctx, h, query)
	m.persist(ctx, entries)
	return entries, nil
}

// fetchOne runs the full safe path for one source: safe fetch,
// normalisation, stats and metrics. It never panics outward - a bug in
// a client's code (or even in its fallback) is caught here so the
// remaining sources still run.
func (m *IngestionManager) fetchOne(ctx context.Context, h *Handle, query domain.Query) (entries []domain.UnifiedEntry) {
	name := h.Name()
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			m.log.Error("source panicked",
				zap.String("source", name),
				zap.Any("panic", r))
			m.recordFetch(name, fmt.Errorf("panic: %v", r))
			m.metrics.ErrorsTotal.WithLabelValues(name, "panic").Inc()
			entries = nil
		}
	}()

	raws, degraded := h.SafeFetch(ctx, query)
	entries = m.normaliseBatch(h, raws)
	m.recordFetch(name, degraded)

	status := "ok"
	if degraded != nil {
		status = "degraded"
		m.metrics.ErrorsTotal.WithLabelValues(name, domain.KindOf(degraded).String()).Inc()
	}
	m.metrics.FetchDuration.WithLabelValues(name, status).Observe(time.Since(start).Seconds())
	m.metrics.EntriesTotal.WithLabelValues(name).Add(float64(len(entries)))
	m.metrics.BreakerState.WithLabelValues(name).Set(h.BreakerState())

	return entries
}

// normaliseBatch maps raw entries to the unified schema.
// A malformed entry is dropped individually; it never discards the
// rest of the source's batch.
func (m *IngestionManager) normaliseBatch(h *Handle, raws []domain.RawEntry) []domain.UnifiedEntry {
	entries := make([]domain.UnifiedEntry, 0, len(raws))
	for _, raw := range raws {
		entry, err := h.Normalise(raw)
		if err != nil {
			m.log.Debug("dropping entry",
				zap.String("source", h.Name()),
				zap.Error(err))
			continue
		}
		entries = append(entries, *entry)
	}
	return entries
}

// recordFetch updates the source's runtime stats after an attempt.
// FetchCount always advances; ErrorCount only when the underlying
// fetch failed even after fallback.
func (m *IngestionManager) recordFetch(name string, degraded error) {
	m.statsMu.Lock()
	defer m.statsMu.Unlock()

	stats, ok := m.stats[name]
	if !ok {
		stats = &domain.RuntimeStats{}
		m.stats[name] = stats
	}
	stats.LastFetchAt = time.Now()
	stats.FetchCount++
	if degraded != nil {
		stats.ErrorCount++
		stats.LastError = degraded.Error()
	}
}

// persist writes entries to the optional sink. Sink failures are
// logged, never surfaced: the caller already has the data.
func (m *IngestionManager) persist(ctx context.Context, entries []domain.UnifiedEntry) {
	if m.entryStore == nil || len(entries) == 0 {
		return
	}
	if err := m.entryStore.SaveEntries(ctx, entries); err != nil {
		m.log.Warn("failed to persist entries", zap.Error(err))
	}
}

// SourceStatus returns the read-only snapshot for one source.
func (m *IngestionManager) SourceStatus(name string) (*domain.SourceStatus, error) {
	h, ok := m.registry.Get(name)
	if !ok {
		return nil, domain.ErrNotFound
	}
	status := m.snapshot(h)
	return &status, nil
}

// AllSourcesStatus returns snapshots for every configured source,
// priority-descending.
func (m *IngestionManager) AllSourcesStatus() []domain.SourceStatus {
	handles := m.registry.All()
	statuses := make([]domain.SourceStatus, 0, len(handles))
	for _, h := range handles {
		statuses = append(statuses, m.snapshot(h))
	}
	return statuses
}

func (m *IngestionManager) snapshot(h *Handle) domain.SourceStatus {
	cfg := h.Config()
	status := domain.SourceStatus{
		Name:     cfg.Name,
		Enabled:  h.Enabled(),
		HasKey:   h.HasKey(),
		Priority: cfg.Priority,
		Fallback: cfg.Fallback,
	}

	m.statsMu.Lock()
	if stats, ok := m.stats[cfg.Name]; ok {
		status.LastFetchAt = stats.LastFetchAt
		status.FetchCount = stats.FetchCount
		status.ErrorCount = stats.ErrorCount
		status.LastError = stats.LastError
	}
	m.statsMu.Unlock()

	return status
}

// Enable forces a source on. Not durable until SaveConfig.
func (m *IngestionManager) Enable(name string) error {
	return m.edit(name, func(h *Handle) { h.setEnabled(domain.EnabledOn) })
}

// Disable forces a source off. Not durable until SaveConfig.
func (m *IngestionManager) Disable(name string) error {
	return m.edit(name, func(h *Handle) { h.setEnabled(domain.EnabledOff) })
}

// SetPriority changes a source's fetch priority. Not durable until SaveConfig.
func (m *IngestionManager) SetPriority(name string, priority int) error {
	return m.edit(name, func(h *Handle) { h.setPriority(priority) })
}

// SetFallbackMode changes a source's degraded-output policy.
// Not durable until SaveConfig.
func (m *IngestionManager) SetFallbackMode(name string, mode domain.FallbackMode) error {
	if _, err := domain.ParseFallbackMode(string(mode)); err != nil {
		return err
	}
	return m.edit(name, func(h *Handle) { h.setFallback(mode) })
}

func (m *IngestionManager) edit(name string, apply func(*Handle)) error {
	h, ok := m.registry.Get(name)
	if !ok {
		return domain.ErrNotFound
	}
	apply(h)
	return nil
}

// SaveConfig serialises the full current source configuration set back
// to persistent storage. This is the only way enablement, fallback-mode
// and priority edits survive a restart.
func (m *IngestionManager) SaveConfig(ctx context.Context) error {
	if m.configStore == nil {
		return errors.New("config store not configured")
	}
	return m.configStore.Save(ctx, m.registry.Configs())
}
