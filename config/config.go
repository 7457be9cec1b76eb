// Package config loads and validates the engine's configuration,
// following the teacher's viper + mapstructure + go:embed pattern: a
// default config.yaml is embedded in the binary and used to seed a new
// config file the first time the engine runs.
package config

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/viper"
)

//go:embed config.yaml
var defaultConfigFS embed.FS

// CollectorConfig configures the Latency Collector hot loop.
type CollectorConfig struct {
	IntervalNs                  int64 `mapstructure:"interval_ns"`
	SpikeThresholdGeneralNs     int64 `mapstructure:"spike_threshold_general_ns"`
	SpikeThresholdCalibrationNs int64 `mapstructure:"spike_threshold_calibration_ns"`
	WarmupSamples               uint64 `mapstructure:"warmup_samples"`
	SampleRingCapacity          int   `mapstructure:"sample_ring_capacity"`
	EventRingCapacity           int   `mapstructure:"event_ring_capacity"`
	MeasurementCore             int   `mapstructure:"measurement_core"`
}

// BenchmarkConfig holds the benchmark section of the config file. The
// Benchmark Orchestrator runs fixed-length phases and does not read
// PhaseDurationSecs.
type BenchmarkConfig struct {
	PhaseDurationSecs int `mapstructure:"phase_duration_secs"`
}

// ArchiveConfig configures the Run Archive's two store subpaths.
type ArchiveConfig struct {
	PerformanceSubpath string `mapstructure:"performance_subpath"`
	BenchmarkSubpath   string `mapstructure:"benchmark_subpath"`
}

// WatchdogConfig holds the watchdog section of the config file (poll
// cadence and timeout). The Controller builds its Watchdog with
// watchdog.New's built-in defaults and does not read these values.
type WatchdogConfig struct {
	PollIntervalMs int `mapstructure:"poll_interval_ms"`
	TimeoutSecs    int `mapstructure:"timeout_secs"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level       string `mapstructure:"level"`
	ToFile      bool   `mapstructure:"to_file"`
	FilePath    string `mapstructure:"file_path"`
	MaxSize     string `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days"`
}

// MetricsConfig configures the optional Prometheus exporter.
type MetricsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	ListenAddr string `mapstructure:"listen_addr"`
}

// Config is the engine's complete configuration.
type Config struct {
	Collector CollectorConfig `mapstructure:"collector"`
	Benchmark BenchmarkConfig `mapstructure:"benchmark"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Watchdog  WatchdogConfig  `mapstructure:"watchdog"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
}

// Validate checks every field the engine's invariants depend on,
// returning every violation found rather than stopping at the first.
func (c *Config) Validate() []error {
	var errs []error
	if c.Collector.IntervalNs <= 0 {
		errs = append(errs, fmt.Errorf("collector.interval_ns must be positive"))
	}
	if c.Collector.SampleRingCapacity <= 0 {
		errs = append(errs, fmt.Errorf("collector.sample_ring_capacity must be positive"))
	}
	if c.Benchmark.PhaseDurationSecs <= 0 {
		errs = append(errs, fmt.Errorf("benchmark.phase_duration_secs must be positive"))
	}
	if c.Watchdog.TimeoutSecs <= 0 {
		errs = append(errs, fmt.Errorf("watchdog.timeout_secs must be positive"))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug/info/warn/error", c.Logging.Level))
	}
	return errs
}

// Manager is a process-wide singleton wrapping a loaded Config, mirroring
// the teacher's config.Manager.
type Manager struct {
	mu  sync.RWMutex
	cfg *Config
	path string
}

var (
	managerOnce sync.Once
	manager     *Manager
)

// GetManager returns the process-wide Manager singleton.
func GetManager() *Manager {
	managerOnce.Do(func() {
		manager = &Manager{}
	})
	return manager
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/goatdkernel/config.yaml,
// falling back the same way the Run Archive does.
func DefaultConfigPath() string {
	root := os.Getenv("XDG_CONFIG_HOME")
	if root == "" {
		if home, err := os.UserHomeDir(); err == nil && home != "" {
			root = filepath.Join(home, ".config")
		} else {
			root = filepath.Join(os.TempDir(), ".config")
		}
	}
	return filepath.Join(root, "goatdkernel", "config.yaml")
}

// Load reads configPath (creating it from the embedded default if
// missing), unmarshals it and validates it.
func (m *Manager) Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigPath()
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := createDefaultConfig(configPath); err != nil {
			return nil, fmt.Errorf("create default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	f, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	if err := v.ReadConfig(f); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid config: %v", errs)
	}

	m.mu.Lock()
	m.cfg = &cfg
	m.path = configPath
	m.mu.Unlock()
	return &cfg, nil
}

func createDefaultConfig(path string) error {
	data, err := defaultConfigFS.ReadFile("config.yaml")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Get returns the currently loaded Config, or nil if Load has not been
// called yet.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Save writes the current Config back to its loaded path.
func (m *Manager) Save() error {
	m.mu.RLock()
	cfg := m.cfg
	path := m.path
	m.mu.RUnlock()
	if cfg == nil {
		return fmt.Errorf("no config loaded")
	}
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetConfigFile(path)
	v.Set("collector", cfg.Collector)
	v.Set("benchmark", cfg.Benchmark)
	v.Set("archive", cfg.Archive)
	v.Set("watchdog", cfg.Watchdog)
	v.Set("logging", cfg.Logging)
	v.Set("metrics", cfg.Metrics)
	return v.WriteConfigAs(path)
}

// Update applies modifier to the loaded config under the write lock.
func (m *Manager) Update(modifier func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cfg == nil {
		return
	}
	modifier(m.cfg)
}
