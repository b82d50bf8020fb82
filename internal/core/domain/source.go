package domain

import (
	"fmt"
	"time"
)

// Enablement is the tri-state enabled flag for a source.
// Besides literal on/off, a source may be enabled automatically
// based on whether its credential is present in the environment.
type Enablement string

const (
	// EnabledOn forces the source on.
	EnabledOn Enablement = "true"

	// EnabledOff forces the source off.
	EnabledOff Enablement = "false"

	// EnabledAuto enables the source when its API key environment
	// variable holds a non-empty value. Sources that require no key
	// resolve to enabled.
	EnabledAuto Enablement = "auto"
)

// ParseEnablement converts a configuration string into an Enablement.
func ParseEnablement(s string) (Enablement, error) {
	switch Enablement(s) {
	case EnabledOn, EnabledOff, EnabledAuto:
		return Enablement(s), nil
	default:
		return "", fmt.Errorf("%w: enabled must be true, false or auto, got %q", ErrInvalidInput, s)
	}
}

// FallbackMode declares what a disabled or failed source returns
// instead of real data.
type FallbackMode string

const (
	// FallbackSilent returns no entries.
	FallbackSilent FallbackMode = "silent"

	// FallbackWarning returns a single synthetic "unavailable" marker entry.
	FallbackWarning FallbackMode = "warning"

	// FallbackDummy returns synthetic sample entries tagged isDummy.
	FallbackDummy FallbackMode = "dummy"
)

// ParseFallbackMode converts a configuration string into a FallbackMode.
func ParseFallbackMode(s string) (FallbackMode, error) {
	switch FallbackMode(s) {
	case FallbackSilent, FallbackWarning, FallbackDummy:
		return FallbackMode(s), nil
	default:
		return "", fmt.Errorf("%w: fallback must be silent, warning or dummy, got %q", ErrInvalidInput, s)
	}
}

// SourceConfig is the declarative configuration for one data source.
// It is loaded once at startup and only mutated through an explicit
// save-configuration operation, never by a fetch.
type SourceConfig struct {
	// Name is the unique source key (e.g. "openfda").
	Name string

	// Enabled is the tri-state enablement flag.
	Enabled Enablement

	// Fallback declares the source's degraded-output policy.
	Fallback FallbackMode

	// APIKeyEnvVar names the environment variable holding the
	// source's credential. Empty for keyless sources.
	APIKeyEnvVar string

	// Priority orders sources; higher is fetched first.
	Priority int

	// Metadata carries free-form source-specific settings
	// (base URLs, page sizes, feed URLs).
	Metadata map[string]string
}

// Validate checks the config for structural errors.
func (c SourceConfig) Validate() error {
	if c.Name == "" {
		return ConfigError(fmt.Errorf("%w: source name is required", ErrInvalidInput))
	}
	if _, err := ParseEnablement(string(c.Enabled)); err != nil {
		return ConfigError(err)
	}
	if _, err := ParseFallbackMode(string(c.Fallback)); err != nil {
		return ConfigError(err)
	}
	return nil
}

// FallbackEntries builds the degraded output for this source as a pure
// function of its fallback mode. It never touches the network and
// cannot fail, which is what keeps a broken source from taking the
// pipeline down with it.
func (c SourceConfig) FallbackEntries() []RawEntry {
	switch c.Fallback {
	case FallbackWarning:
		return []RawEntry{{
			"text":     fmt.Sprintf("source %s unavailable", c.Name),
			"reaction": "",
			"warning":  true,
			"source":   c.Name,
		}}
	case FallbackDummy:
		return []RawEntry{{
			"drug":     "sample-drug",
			"reaction": "sample reaction",
			"text":     fmt.Sprintf("synthetic sample entry from %s", c.Name),
			"isDummy":  true,
			"source":   c.Name,
		}}
	default: // FallbackSilent and anything unrecognised
		return []RawEntry{}
	}
}

// RuntimeStats holds per-source operational counters.
// Owned exclusively by the ingestion manager; created at startup with
// zero values and never reset except by manager restart.
type RuntimeStats struct {
	// LastFetchAt is when the source was last queried.
	LastFetchAt time.Time

	// FetchCount is incremented on every fetch attempt, success or not.
	FetchCount int64

	// ErrorCount is incremented only when the underlying fetch failed
	// even after retries, regardless of fallback output served.
	ErrorCount int64

	// LastError describes the most recent underlying failure.
	LastError string
}

// SourceStatus is the read-only admin snapshot for one source,
// combining configuration with runtime counters.
type SourceStatus struct {
	Name        string       `json:"name"`
	Enabled     bool         `json:"enabled"`
	HasKey      bool         `json:"has_key"`
	Priority    int          `json:"priority"`
	Fallback    FallbackMode `json:"fallback"`
	LastFetchAt time.Time    `json:"last_fetch_at"`
	FetchCount  int64        `json:"fetch_count"`
	ErrorCount  int64        `json:"error_count"`
	LastError   string       `json:"last_error,omitempty"`
}
