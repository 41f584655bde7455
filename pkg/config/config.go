package config

import (
	"fmt"
	"slices"
	"time"

	"github.com/ethereum/go-ethereum/common"
	internalcommon "github.com/goran-ethernal/DDOIndexor/internal/common"
	"github.com/goran-ethernal/DDOIndexor/internal/logger"
)

const (
	CheckpointBackendSQLite = "sqlite"
	CheckpointBackendBadger = "badger"
)

// Config represents the complete configuration for the DDOIndexor node.
type Config struct {
	// Networks lists every chain the node indexes, one crawler worker each
	Networks []NetworkConfig `yaml:"networks" json:"networks" toml:"networks"`

	// Crawler holds crawl defaults shared by all networks
	Crawler CrawlerConfig `yaml:"crawler" json:"crawler" toml:"crawler"`

	// DB is the document store database
	DB DatabaseConfig `yaml:"db" json:"db" toml:"db"`

	// Checkpoint selects where crawl progress is persisted
	Checkpoint CheckpointConfig `yaml:"checkpoint" json:"checkpoint" toml:"checkpoint"`

	// Maintenance contains optional database maintenance settings
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"`

	// Supervisor configures how exited workers are handled
	Supervisor *SupervisorConfig `yaml:"supervisor,omitempty" json:"supervisor,omitempty" toml:"supervisor,omitempty"`

	// Events configures which indexing events are republished and where
	Events *EventsConfig `yaml:"events,omitempty" json:"events,omitempty" toml:"events,omitempty"`

	// Logging contains logging configuration
	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`

	// Metrics contains Prometheus metrics configuration
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`

	// API contains the admin HTTP API configuration
	API *APIConfig `yaml:"api,omitempty" json:"api,omitempty" toml:"api,omitempty"`
}

// NetworkConfig describes one chain to index.
type NetworkConfig struct {
	// ChainID identifies the network and keys its checkpoint
	ChainID uint64 `yaml:"chain_id" json:"chain_id" toml:"chain_id"`

	// Name is a human readable label used in logs and metrics
	Name string `yaml:"name" json:"name" toml:"name"`

	// RPCURLs are tried in order; later entries are failover endpoints
	RPCURLs []string `yaml:"rpc_urls" json:"rpc_urls" toml:"rpc_urls"`

	// Addresses restricts log queries to these contracts.
	// Empty means every contract emitting a known event topic.
	Addresses []string `yaml:"addresses,omitempty" json:"addresses,omitempty" toml:"addresses,omitempty"`

	// StartBlock is the genesis block used when no checkpoint exists
	StartBlock uint64 `yaml:"start_block" json:"start_block" toml:"start_block"`

	// Crawler overrides the global crawler settings for this network
	Crawler *CrawlerConfig `yaml:"crawler,omitempty" json:"crawler,omitempty" toml:"crawler,omitempty"`
}

// ContractAddresses parses Addresses.
func (n *NetworkConfig) ContractAddresses() []common.Address {
	addrs := make([]common.Address, 0, len(n.Addresses))
	for _, a := range n.Addresses {
		addrs = append(addrs, common.HexToAddress(a))
	}
	return addrs
}

// DisplayName returns Name, or the chain id when no name is set.
func (n *NetworkConfig) DisplayName() string {
	if n.Name != "" {
		return n.Name
	}
	return fmt.Sprintf("chain-%d", n.ChainID)
}

// EffectiveCrawler merges the network override on top of the global defaults.
func (n *NetworkConfig) EffectiveCrawler(defaults CrawlerConfig) CrawlerConfig {
	if n.Crawler == nil {
		return defaults
	}
	merged := *n.Crawler
	merged.fillFrom(defaults)
	return merged
}

// CrawlerConfig controls the crawl loop pacing of a worker.
type CrawlerConfig struct {
	// ChunkSize is the maximum block range per eth_getLogs call while catching up
	ChunkSize uint64 `yaml:"chunk_size" json:"chunk_size" toml:"chunk_size"`

	// TailWindow is the maximum block range per call once caught up
	TailWindow uint64 `yaml:"tail_window" json:"tail_window" toml:"tail_window"`

	// FinalityDepth is the number of trailing blocks not trusted while tailing
	FinalityDepth uint64 `yaml:"finality_depth" json:"finality_depth" toml:"finality_depth"`

	// PollInterval is the wait between tail batches once caught up
	PollInterval internalcommon.Duration `yaml:"poll_interval" json:"poll_interval" toml:"poll_interval"`

	// ReindexDrainLimit is how many reindex items are handled between two tail batches
	ReindexDrainLimit int `yaml:"reindex_drain_limit" json:"reindex_drain_limit" toml:"reindex_drain_limit"`

	// InboxCapacity bounds the number of distinct pending reindex items
	InboxCapacity int `yaml:"inbox_capacity" json:"inbox_capacity" toml:"inbox_capacity"`

	// DecodeFailureThreshold is the run of consecutive undecodable logs that stops the worker
	DecodeFailureThreshold int `yaml:"decode_failure_threshold" json:"decode_failure_threshold" toml:"decode_failure_threshold"` //nolint:lll

	// RequestTimeout bounds every single RPC call
	RequestTimeout internalcommon.Duration `yaml:"request_timeout" json:"request_timeout" toml:"request_timeout"`

	// Retry contains RPC retry configuration with exponential backoff
	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`

	// StoreRetry is the backoff used when persisting a batch fails
	StoreRetry *RetryConfig `yaml:"store_retry,omitempty" json:"store_retry,omitempty" toml:"store_retry,omitempty"`
}

// ApplyDefaults sets default values for optional crawler configuration fields.
func (c *CrawlerConfig) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 1000
	}
	if c.TailWindow == 0 {
		c.TailWindow = 1
	}
	// FinalityDepth defaults to 0 (zero value)
	if c.PollInterval.Duration == 0 {
		c.PollInterval = internalcommon.NewDuration(10 * time.Second) //nolint:mnd
	}
	if c.ReindexDrainLimit == 0 {
		c.ReindexDrainLimit = 1
	}
	if c.InboxCapacity == 0 {
		c.InboxCapacity = 1000
	}
	if c.DecodeFailureThreshold == 0 {
		c.DecodeFailureThreshold = 50
	}
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout = internalcommon.NewDuration(30 * time.Second) //nolint:mnd
	}
	if c.Retry == nil {
		c.Retry = &RetryConfig{}
	}
	c.Retry.ApplyDefaults()
	if c.StoreRetry == nil {
		c.StoreRetry = &RetryConfig{}
	}
	c.StoreRetry.ApplyDefaults()
}

// fillFrom copies every unset field from defaults.
func (c *CrawlerConfig) fillFrom(defaults CrawlerConfig) {
	if c.ChunkSize == 0 {
		c.ChunkSize = defaults.ChunkSize
	}
	if c.TailWindow == 0 {
		c.TailWindow = defaults.TailWindow
	}
	if c.FinalityDepth == 0 {
		c.FinalityDepth = defaults.FinalityDepth
	}
	if c.PollInterval.Duration == 0 {
		c.PollInterval = defaults.PollInterval
	}
	if c.ReindexDrainLimit == 0 {
		c.ReindexDrainLimit = defaults.ReindexDrainLimit
	}
	if c.InboxCapacity == 0 {
		c.InboxCapacity = defaults.InboxCapacity
	}
	if c.DecodeFailureThreshold == 0 {
		c.DecodeFailureThreshold = defaults.DecodeFailureThreshold
	}
	if c.RequestTimeout.Duration == 0 {
		c.RequestTimeout = defaults.RequestTimeout
	}
	if c.Retry == nil {
		c.Retry = defaults.Retry
	}
	if c.StoreRetry == nil {
		c.StoreRetry = defaults.StoreRetry
	}
}

// Validate checks if the crawler configuration is valid.
func (c *CrawlerConfig) Validate() error {
	if c.ChunkSize == 0 {
		return fmt.Errorf("chunk_size must be greater than 0")
	}
	if c.TailWindow == 0 || c.TailWindow > c.ChunkSize {
		return fmt.Errorf("tail_window must be between 1 and chunk_size (%d)", c.ChunkSize)
	}
	if c.ReindexDrainLimit < 1 {
		return fmt.Errorf("reindex_drain_limit must be at least 1")
	}
	if c.InboxCapacity < 1 {
		return fmt.Errorf("inbox_capacity must be at least 1")
	}
	if c.DecodeFailureThreshold < 1 {
		return fmt.Errorf("decode_failure_threshold must be at least 1")
	}
	if c.PollInterval.Duration <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	return nil
}

// RetryConfig represents retry configuration with exponential backoff.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial request)
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts"`

	// InitialBackoff is the initial backoff duration before first retry
	InitialBackoff internalcommon.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`

	// MaxBackoff is the maximum backoff duration
	MaxBackoff internalcommon.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier is the multiplier for exponential backoff
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier"`
}

// ApplyDefaults sets default values for retry configuration.
func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = internalcommon.NewDuration(1 * time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = internalcommon.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2.0
	}
}

// DatabaseConfig represents database configuration.
type DatabaseConfig struct {
	// Path is the file path to the SQLite database
	Path string `yaml:"path" json:"path" toml:"path"`

	// JournalMode sets the SQLite journal mode (e.g., "WAL", "DELETE")
	JournalMode string `yaml:"journal_mode" json:"journal_mode" toml:"journal_mode"`

	// Synchronous sets the synchronization level ("FULL", "NORMAL", "OFF")
	Synchronous string `yaml:"synchronous" json:"synchronous" toml:"synchronous"`

	// BusyTimeout is the time in milliseconds to wait when the database is locked
	BusyTimeout int `yaml:"busy_timeout" json:"busy_timeout" toml:"busy_timeout"`

	// CacheSize is the size of the page cache (negative = KB, positive = pages)
	CacheSize int `yaml:"cache_size" json:"cache_size" toml:"cache_size"`

	// MaxOpenConnections is the maximum number of open database connections
	MaxOpenConnections int `yaml:"max_open_connections" json:"max_open_connections" toml:"max_open_connections"`

	// MaxIdleConnections is the maximum number of idle connections in the pool
	MaxIdleConnections int `yaml:"max_idle_connections" json:"max_idle_connections" toml:"max_idle_connections"`

	// EnableForeignKeys enables foreign key constraint enforcement
	EnableForeignKeys bool `yaml:"enable_foreign_keys" json:"enable_foreign_keys" toml:"enable_foreign_keys"`
}

// ApplyDefaults sets default values for optional database configuration fields.
func (d *DatabaseConfig) ApplyDefaults() {
	if d.JournalMode == "" {
		d.JournalMode = "WAL"
	}
	if d.Synchronous == "" {
		d.Synchronous = "NORMAL"
	}
	if d.BusyTimeout == 0 {
		d.BusyTimeout = 5000
	}
	if d.CacheSize == 0 {
		d.CacheSize = 10000
	}
	if d.MaxOpenConnections == 0 {
		d.MaxOpenConnections = 25
	}
	if d.MaxIdleConnections == 0 {
		d.MaxIdleConnections = 5
	}
}

// Validate checks if the database configuration is valid.
func (d *DatabaseConfig) Validate() error {
	if d.Path == "" {
		return fmt.Errorf("path is required")
	}
	if d.JournalMode != "" &&
		!slices.Contains([]string{"WAL", "DELETE", "TRUNCATE", "PERSIST", "MEMORY"}, d.JournalMode) {
		return fmt.Errorf("journal_mode must be one of: WAL, DELETE, TRUNCATE, PERSIST, MEMORY")
	}
	if d.Synchronous != "" && !slices.Contains([]string{"FULL", "NORMAL", "OFF"}, d.Synchronous) {
		return fmt.Errorf("synchronous must be one of: FULL, NORMAL, OFF")
	}
	return nil
}

// CheckpointConfig selects the checkpoint store backend.
type CheckpointConfig struct {
	// Backend is "sqlite" (shares the document database) or "badger"
	Backend string `yaml:"backend" json:"backend" toml:"backend"`

	// Path is the badger directory; ignored for the sqlite backend
	Path string `yaml:"path,omitempty" json:"path,omitempty" toml:"path,omitempty"`
}

// ApplyDefaults sets default values for checkpoint configuration.
func (c *CheckpointConfig) ApplyDefaults() {
	if c.Backend == "" {
		c.Backend = CheckpointBackendSQLite
	}
}

// Validate checks if the checkpoint configuration is valid.
func (c *CheckpointConfig) Validate() error {
	switch c.Backend {
	case CheckpointBackendSQLite:
	case CheckpointBackendBadger:
		if c.Path == "" {
			return fmt.Errorf("path is required for the badger backend")
		}
	default:
		return fmt.Errorf("backend must be one of: sqlite, badger")
	}
	return nil
}

// EventsConfig configures republishing of indexing events.
type EventsConfig struct {
	// Forward lists the event kinds republished on the event bus
	Forward []string `yaml:"forward,omitempty" json:"forward,omitempty" toml:"forward,omitempty"`

	// SubscriberBuffer is the per-subscriber queue length of the event bus
	SubscriberBuffer int `yaml:"subscriber_buffer" json:"subscriber_buffer" toml:"subscriber_buffer"`

	// NATS optionally bridges bus notifications to a NATS server
	NATS *NATSConfig `yaml:"nats,omitempty" json:"nats,omitempty" toml:"nats,omitempty"`
}

// ApplyDefaults sets default values for events configuration.
func (e *EventsConfig) ApplyDefaults() {
	if len(e.Forward) == 0 {
		e.Forward = []string{"metadata-created"}
	}
	if e.SubscriberBuffer == 0 {
		e.SubscriberBuffer = 256
	}
	if e.NATS != nil {
		e.NATS.ApplyDefaults()
	}
}

// NATSConfig configures the NATS bridge.
type NATSConfig struct {
	URL string `yaml:"url" json:"url" toml:"url"`

	// SubjectPrefix is prepended to the event kind, e.g. "ddo.metadata-created"
	SubjectPrefix string `yaml:"subject_prefix" json:"subject_prefix" toml:"subject_prefix"`

	ReconnectWait internalcommon.Duration `yaml:"reconnect_wait" json:"reconnect_wait" toml:"reconnect_wait"`
}

// ApplyDefaults sets default values for NATS configuration.
func (n *NATSConfig) ApplyDefaults() {
	if n.SubjectPrefix == "" {
		n.SubjectPrefix = "ddo"
	}
	if n.ReconnectWait.Duration == 0 {
		n.ReconnectWait = internalcommon.NewDuration(2 * time.Second) //nolint:mnd
	}
}

const (
	RestartPolicyNone    = "none"
	RestartPolicyBackoff = "backoff"
)

// SupervisorConfig selects the restart policy applied to workers that exit with an error.
type SupervisorConfig struct {
	// RestartPolicy is "none" (default) or "backoff"
	RestartPolicy string `yaml:"restart_policy" json:"restart_policy" toml:"restart_policy"`

	// MaxRestarts bounds the restarts of one network; 0 means unlimited
	MaxRestarts int `yaml:"max_restarts" json:"max_restarts" toml:"max_restarts"`

	// Backoff is the delay schedule between restarts
	Backoff *RetryConfig `yaml:"backoff,omitempty" json:"backoff,omitempty" toml:"backoff,omitempty"`
}

// ApplyDefaults sets default values for supervisor configuration.
func (s *SupervisorConfig) ApplyDefaults() {
	if s.RestartPolicy == "" {
		s.RestartPolicy = RestartPolicyNone
	}
	if s.Backoff == nil {
		s.Backoff = &RetryConfig{}
	}
	s.Backoff.ApplyDefaults()
}

// Validate checks if the supervisor configuration is valid.
func (s *SupervisorConfig) Validate() error {
	switch s.RestartPolicy {
	case "", RestartPolicyNone, RestartPolicyBackoff:
	default:
		return fmt.Errorf("restart_policy must be one of: none, backoff")
	}
	if s.MaxRestarts < 0 {
		return fmt.Errorf("max_restarts must not be negative")
	}
	return nil
}

// MaintenanceConfig configures database maintenance behavior.
type MaintenanceConfig struct {
	// Enabled controls whether background maintenance runs
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// CheckInterval is how often to run maintenance (e.g., "30m", "1h")
	CheckInterval internalcommon.Duration `yaml:"check_interval" json:"check_interval" toml:"check_interval"`

	// VacuumOnStartup runs maintenance immediately on startup
	VacuumOnStartup bool `yaml:"vacuum_on_startup" json:"vacuum_on_startup" toml:"vacuum_on_startup"`

	// WALCheckpointMode controls the WAL checkpoint aggressiveness
	// Options: PASSIVE, FULL, RESTART, TRUNCATE
	WALCheckpointMode string `yaml:"wal_checkpoint_mode" json:"wal_checkpoint_mode" toml:"wal_checkpoint_mode"`
}

// ApplyDefaults sets default values for optional maintenance configuration fields.
func (m *MaintenanceConfig) ApplyDefaults() {
	if m.CheckInterval.Duration == 0 {
		m.CheckInterval = internalcommon.NewDuration(30 * time.Minute) //nolint:mnd
	}
	if m.WALCheckpointMode == "" {
		m.WALCheckpointMode = "TRUNCATE"
	}
}

// Validate checks if the maintenance configuration is valid.
func (m *MaintenanceConfig) Validate() error {
	if m.WALCheckpointMode != "" {
		validModes := []string{"PASSIVE", "FULL", "RESTART", "TRUNCATE"}
		if !slices.Contains(validModes, m.WALCheckpointMode) {
			return fmt.Errorf("wal_checkpoint_mode: must be one of: PASSIVE, FULL, RESTART, TRUNCATE")
		}
	}
	return nil
}

// LoggingConfig configures logging behavior with per-component log levels.
type LoggingConfig struct {
	// DefaultLevel is the default log level for all components
	// Options: "debug", "info", "warn", "error"
	DefaultLevel string `yaml:"default_level" json:"default_level" toml:"default_level"`

	// Development enables development mode (stack traces, console encoder)
	Development bool `yaml:"development" json:"development" toml:"development"`

	// ComponentLevels sets log levels for specific components
	// Available components: supervisor, crawler, rpc, checkpoint-store,
	// document-store, event-bus, maintenance, api
	ComponentLevels map[string]string `yaml:"component_levels,omitempty" json:"component_levels,omitempty" toml:"component_levels,omitempty"` //nolint:lll
}

// ApplyDefaults sets default values for optional logging configuration fields.
func (l *LoggingConfig) ApplyDefaults() {
	if l.DefaultLevel == "" {
		l.DefaultLevel = "info"
	}
	if l.ComponentLevels == nil {
		l.ComponentLevels = make(map[string]string)
	}
}

// Validate checks if the logging configuration is valid.
func (l *LoggingConfig) Validate() error {
	if l.DefaultLevel != "" {
		if _, valid := logger.ValidLogLevels[internalcommon.ToLowerWithTrim(l.DefaultLevel)]; !valid {
			return fmt.Errorf("logging.default_level: must be one of: debug, info, warn, error")
		}
	}

	for component, level := range l.ComponentLevels {
		if _, validComponent := internalcommon.AllComponents[internalcommon.ToLowerWithTrim(component)]; !validComponent {
			return fmt.Errorf("logging.component_levels: unknown component '%s'", component)
		}

		if _, valid := logger.ValidLogLevels[internalcommon.ToLowerWithTrim(level)]; !valid {
			return fmt.Errorf("logging.component_levels[%s]: must be one of: debug, info, warn, error", component)
		}
	}

	return nil
}

// GetComponentLevel returns the log level for a specific component.
// Falls back to DefaultLevel if no component-specific level is set.
func (l *LoggingConfig) GetComponentLevel(component string) string {
	if level, ok := l.ComponentLevels[component]; ok {
		return internalcommon.ToLowerWithTrim(level)
	}
	return internalcommon.ToLowerWithTrim(l.DefaultLevel)
}

// GetDefaultLevel returns the default log level.
func (l *LoggingConfig) GetDefaultLevel() string {
	return internalcommon.ToLowerWithTrim(l.DefaultLevel)
}

// IsDevelopment returns whether development mode is enabled.
func (l *LoggingConfig) IsDevelopment() bool {
	return l.Development
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP endpoint are active
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the metrics HTTP server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// Path is the HTTP path where metrics are exposed
	Path string `yaml:"path" json:"path" toml:"path"`
}

// ApplyDefaults sets default values for optional metrics configuration fields.
func (m *MetricsConfig) ApplyDefaults() {
	if m.ListenAddress == "" {
		m.ListenAddress = ":9090"
	}
	if m.Path == "" {
		m.Path = "/metrics"
	}
}

// Validate checks if the metrics configuration is valid.
func (m *MetricsConfig) Validate() error {
	if m.Enabled {
		if m.ListenAddress == "" {
			return fmt.Errorf("listen_address is required when metrics are enabled")
		}
		if m.Path == "" || m.Path[0] != '/' {
			return fmt.Errorf("path must start with '/'")
		}
	}
	return nil
}

// APIConfig configures the admin HTTP API.
type APIConfig struct {
	// Enabled controls whether the API server is started
	Enabled bool `yaml:"enabled" json:"enabled" toml:"enabled"`

	// ListenAddress is the address to bind the API server to
	ListenAddress string `yaml:"listen_address" json:"listen_address" toml:"listen_address"`

	// ReadTimeout and WriteTimeout bound single requests
	ReadTimeout  internalcommon.Duration `yaml:"read_timeout" json:"read_timeout" toml:"read_timeout"`
	WriteTimeout internalcommon.Duration `yaml:"write_timeout" json:"write_timeout" toml:"write_timeout"`

	// CORS configures cross-origin access
	CORS *CORSConfig `yaml:"cors,omitempty" json:"cors,omitempty" toml:"cors,omitempty"`
}

// CORSConfig lists allowed origins. "*" allows all.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" json:"allowed_origins" toml:"allowed_origins"`
}

// ApplyDefaults sets default values for API configuration.
func (a *APIConfig) ApplyDefaults() {
	if a.ListenAddress == "" {
		a.ListenAddress = ":8080"
	}
	if a.ReadTimeout.Duration == 0 {
		a.ReadTimeout = internalcommon.NewDuration(15 * time.Second) //nolint:mnd
	}
	if a.WriteTimeout.Duration == 0 {
		a.WriteTimeout = internalcommon.NewDuration(15 * time.Second) //nolint:mnd
	}
}

// ApplyDefaults sets default values for optional configuration fields.
func (c *Config) ApplyDefaults() {
	c.Crawler.ApplyDefaults()
	c.DB.ApplyDefaults()
	c.Checkpoint.ApplyDefaults()

	if c.Maintenance != nil {
		c.Maintenance.ApplyDefaults()
	}
	if c.Supervisor == nil {
		c.Supervisor = &SupervisorConfig{}
	}
	c.Supervisor.ApplyDefaults()
	if c.Events == nil {
		c.Events = &EventsConfig{}
	}
	c.Events.ApplyDefaults()
	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	c.Logging.ApplyDefaults()
	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
	if c.API != nil {
		c.API.ApplyDefaults()
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if len(c.Networks) == 0 {
		return fmt.Errorf("at least one network must be configured")
	}

	if err := c.Crawler.Validate(); err != nil {
		return fmt.Errorf("crawler: %w", err)
	}

	seen := make(map[uint64]struct{}, len(c.Networks))
	for i, n := range c.Networks {
		if n.ChainID == 0 {
			return fmt.Errorf("networks[%d]: chain_id is required", i)
		}
		if _, dup := seen[n.ChainID]; dup {
			return fmt.Errorf("networks[%d]: duplicate chain_id %d", i, n.ChainID)
		}
		seen[n.ChainID] = struct{}{}

		if len(n.RPCURLs) == 0 {
			return fmt.Errorf("networks[%d] (%s): at least one rpc url is required", i, n.DisplayName())
		}
		for j, addr := range n.Addresses {
			if !common.IsHexAddress(addr) {
				return fmt.Errorf("networks[%d] (%s), addresses[%d]: invalid address %q", i, n.DisplayName(), j, addr)
			}
		}
		if n.Crawler != nil {
			effective := n.EffectiveCrawler(c.Crawler)
			if err := effective.Validate(); err != nil {
				return fmt.Errorf("networks[%d] (%s).crawler: %w", i, n.DisplayName(), err)
			}
		}
	}

	if err := c.DB.Validate(); err != nil {
		return fmt.Errorf("db: %w", err)
	}

	if err := c.Checkpoint.Validate(); err != nil {
		return fmt.Errorf("checkpoint: %w", err)
	}

	if c.Maintenance != nil {
		if err := c.Maintenance.Validate(); err != nil {
			return fmt.Errorf("maintenance: %w", err)
		}
	}

	if c.Supervisor != nil {
		if err := c.Supervisor.Validate(); err != nil {
			return fmt.Errorf("supervisor: %w", err)
		}
	}

	if c.Events != nil && c.Events.NATS != nil && c.Events.NATS.URL == "" {
		return fmt.Errorf("events.nats.url is required when nats is configured")
	}

	if c.Logging != nil {
		if err := c.Logging.Validate(); err != nil {
			return err
		}
	}

	if c.Metrics != nil {
		if err := c.Metrics.Validate(); err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
	}

	return nil
}
