package types

import (
	"errors"
	"time"
)

// Config selects the backend and view parameters used by a session.
type Config struct {
	Backend     string         `json:"backend" yaml:"backend" mapstructure:"backend"`
	DataDir     string         `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
	APIURL      string         `json:"api_url" yaml:"api_url" mapstructure:"api_url"`
	Token       string         `json:"-" yaml:"token" mapstructure:"token"`
	DSN         string         `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
	Timeout     time.Duration  `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
	PageSize    int            `json:"page_size" yaml:"page_size" mapstructure:"page_size"`
	PageSizes   map[string]int `json:"page_sizes" yaml:"page_sizes" mapstructure:"page_sizes"`
	Concurrency string         `json:"concurrency" yaml:"concurrency" mapstructure:"concurrency"`
}

// Supported backend names.
const (
	BackendSQLite   = "sqlite"
	BackendREST     = "rest"
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// In-flight policies for the action controller.
const (
	ConcurrencySingle    = "single"
	ConcurrencyPerAction = "per_action"
)

// Defaults applied when the corresponding Config field is zero.
const (
	DefaultPageSize = 10
	DefaultTimeout  = 30 * time.Second
)

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrPageSizeInvalid    = errors.New("page size must be positive")
	ErrAPIURLMissing      = errors.New("rest backend requires api_url")
	ErrDSNMissing         = errors.New("postgres backend requires dsn")
	ErrConcurrencyUnknown = errors.New("unknown concurrency policy")
	ErrTimeoutInvalid     = errors.New("timeout must not be negative")
)

// knownBackends lists the backends that Validate accepts.
var knownBackends = map[string]bool{
	BackendSQLite:   true,
	BackendREST:     true,
	BackendPostgres: true,
	BackendMemory:   true,
}

// Validate checks that the Config is well-formed. It returns a sentinel error
// from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.Backend == BackendREST && c.APIURL == "" {
		return ErrAPIURLMissing
	}
	if c.Backend == BackendPostgres && c.DSN == "" {
		return ErrDSNMissing
	}
	if c.PageSize < 0 {
		return ErrPageSizeInvalid
	}
	for _, size := range c.PageSizes {
		if size <= 0 {
			return ErrPageSizeInvalid
		}
	}
	switch c.Concurrency {
	case "", ConcurrencySingle, ConcurrencyPerAction:
	default:
		return ErrConcurrencyUnknown
	}
	if c.Timeout < 0 {
		return ErrTimeoutInvalid
	}
	return nil
}

// PageSizeFor returns the page size of a collection: an explicit per-collection
// override, then the collection's own size, then the configured default.
func (c Config) PageSizeFor(spec CollectionSpec) int {
	if size, ok := c.PageSizes[spec.Name]; ok && size > 0 {
		return size
	}
	if spec.PageSize > 0 {
		return spec.PageSize
	}
	if c.PageSize > 0 {
		return c.PageSize
	}
	return DefaultPageSize
}

// RequestTimeout returns the configured timeout or DefaultTimeout.
func (c Config) RequestTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return DefaultTimeout
}
