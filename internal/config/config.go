// Package config loads the adaptive load manager's tunables from YAML, with
// environment-variable indirection on select fields.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadManagerConfig holds every knob described in spec.md §6.
type LoadManagerConfig struct {
	// LoadThresholdMS is the wait-time (pool wait or permit wait, whichever
	// is larger) above which the system is considered overloaded. Zero
	// disables load management entirely.
	LoadThresholdMS int `yaml:"load_threshold_ms"`

	// JailThreshold is the per-query effort ratio above which a query shape
	// is permanently jailed while the system is overloaded.
	JailThreshold float64 `yaml:"jail_threshold"`

	// JailEnabled toggles jailing. Defaults to true when JailThreshold was
	// explicitly set in YAML (see Load).
	JailEnabled bool `yaml:"jail_enabled"`

	// Simulate converts what would be rejections into logged-and-allowed
	// decisions.
	Simulate bool `yaml:"simulate"`

	// ExtraQueryPermits is additive capacity on top of PoolSize+NumCPU.
	ExtraQueryPermits int `yaml:"extra_query_permits"`

	// WindowSize and BinSize parametrize every MovingStats this process
	// creates (query effort, semaphore wait, and any caller-supplied pool
	// wait stats that reuse the default).
	WindowSize time.Duration `yaml:"window_size"`
	BinSize    time.Duration `yaml:"bin_size"`

	// PoolSize is the downstream connection pool size used to size the
	// permit gate: MaxConcurrent = PoolSize + runtime.NumCPU() + ExtraQueryPermits.
	PoolSize int `yaml:"pool_size"`

	// BlockedShapeHashes is the fixed deny-list, set once at construction.
	BlockedShapeHashes []uint64 `yaml:"blocked_shape_hashes"`

	// LoggingLevel controls the slog level used by internal/logger.
	LoggingLevel string `yaml:"logging_level"`

	// MetricsEnabled toggles whether the Prometheus registry actually
	// records anything (mirrors monitoring.Metrics.enabled in the ambient
	// stack's style).
	MetricsEnabled bool `yaml:"metrics_enabled"`

	// DeploymentID labels every stopwatch section counter, so one process's
	// sections don't collide with another's in a shared Prometheus instance.
	DeploymentID string `yaml:"deployment_id"`
}

const (
	defaultWindowSize    = 10 * time.Minute
	defaultBinSize       = 10 * time.Second
	defaultJailThreshold = 1e9
	defaultLoggingLevel  = "info"
	defaultDeploymentID  = "default"
)

// rawConfig backs the custom unmarshaling needed to tell "absent" apart from
// "explicitly zero", since JailEnabled defaults based on presence.
type rawConfig struct {
	LoadThresholdMS    string   `yaml:"load_threshold_ms"`
	JailThreshold      *string  `yaml:"jail_threshold"`
	JailEnabled        *string  `yaml:"jail_enabled"`
	Simulate           string   `yaml:"simulate"`
	ExtraQueryPermits  string   `yaml:"extra_query_permits"`
	WindowSize         string   `yaml:"window_size"`
	BinSize            string   `yaml:"bin_size"`
	PoolSize           string   `yaml:"pool_size"`
	BlockedShapeHashes []uint64 `yaml:"blocked_shape_hashes"`
	LoggingLevel       string   `yaml:"logging_level"`
	MetricsEnabled     string   `yaml:"metrics_enabled"`
	DeploymentID       string   `yaml:"deployment_id"`
}

// Load reads a LoadManagerConfig from a YAML file, resolving
// "os.environ/VAR_NAME" indirections along the way and applying defaults.
func Load(path string) (*LoadManagerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a LoadManagerConfig.
func Parse(data []byte) (*LoadManagerConfig, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg := &LoadManagerConfig{
		WindowSize:         defaultWindowSize,
		BinSize:            defaultBinSize,
		JailThreshold:      defaultJailThreshold,
		LoggingLevel:       defaultLoggingLevel,
		DeploymentID:       defaultDeploymentID,
		BlockedShapeHashes: raw.BlockedShapeHashes,
	}

	var err error
	if cfg.LoadThresholdMS, err = resolveEnvInt(raw.LoadThresholdMS, 0); err != nil {
		return nil, fmt.Errorf("invalid load_threshold_ms: %w", err)
	}
	if raw.JailThreshold != nil {
		if cfg.JailThreshold, err = resolveEnvFloat(*raw.JailThreshold, defaultJailThreshold); err != nil {
			return nil, fmt.Errorf("invalid jail_threshold: %w", err)
		}
		cfg.JailEnabled = true
	}
	if raw.JailEnabled != nil {
		if cfg.JailEnabled, err = resolveEnvBool(*raw.JailEnabled, cfg.JailEnabled); err != nil {
			return nil, fmt.Errorf("invalid jail_enabled: %w", err)
		}
	}
	if cfg.Simulate, err = resolveEnvBool(raw.Simulate, false); err != nil {
		return nil, fmt.Errorf("invalid simulate: %w", err)
	}
	if cfg.ExtraQueryPermits, err = resolveEnvInt(raw.ExtraQueryPermits, 0); err != nil {
		return nil, fmt.Errorf("invalid extra_query_permits: %w", err)
	}
	if raw.WindowSize != "" {
		if cfg.WindowSize, err = resolveEnvDuration(raw.WindowSize, defaultWindowSize); err != nil {
			return nil, fmt.Errorf("invalid window_size: %w", err)
		}
	}
	if raw.BinSize != "" {
		if cfg.BinSize, err = resolveEnvDuration(raw.BinSize, defaultBinSize); err != nil {
			return nil, fmt.Errorf("invalid bin_size: %w", err)
		}
	}
	if cfg.PoolSize, err = resolveEnvInt(raw.PoolSize, 0); err != nil {
		return nil, fmt.Errorf("invalid pool_size: %w", err)
	}
	if raw.LoggingLevel != "" {
		cfg.LoggingLevel = resolveEnvString(raw.LoggingLevel)
	}
	if cfg.MetricsEnabled, err = resolveEnvBool(raw.MetricsEnabled, true); err != nil {
		return nil, fmt.Errorf("invalid metrics_enabled: %w", err)
	}
	if raw.DeploymentID != "" {
		cfg.DeploymentID = resolveEnvString(raw.DeploymentID)
	}

	return cfg, nil
}

// FromEnv builds a LoadManagerConfig entirely from environment variables,
// for deployments that don't ship a YAML file (mirrors the teacher's
// preference for "os.environ/VAR" indirection by just reading the vars
// directly when there's no YAML layer at all).
func FromEnv() (*LoadManagerConfig, error) {
	jailThreshold := "os.environ/JAIL_THRESHOLD"
	yamlDoc := fmt.Sprintf(`
load_threshold_ms: %q
jail_threshold: %q
simulate: %q
extra_query_permits: %q
pool_size: %q
window_size: %q
bin_size: %q
logging_level: %q
metrics_enabled: %q
`,
		"os.environ/LOAD_THRESHOLD_MS",
		jailThreshold,
		"os.environ/LOAD_SIMULATE",
		"os.environ/EXTRA_QUERY_PERMITS",
		"os.environ/POOL_SIZE",
		"os.environ/WINDOW_SIZE",
		"os.environ/BIN_SIZE",
		"os.environ/LOGGING_LEVEL",
		"os.environ/METRICS_ENABLED",
	)

	// jail_threshold presence (not just value) drives JailEnabled's default,
	// so only include the key when the env var is actually set.
	if _, ok := os.LookupEnv("JAIL_THRESHOLD"); !ok {
		yamlDoc = fmt.Sprintf(`
load_threshold_ms: %q
simulate: %q
extra_query_permits: %q
pool_size: %q
window_size: %q
bin_size: %q
logging_level: %q
metrics_enabled: %q
`,
			"os.environ/LOAD_THRESHOLD_MS",
			"os.environ/LOAD_SIMULATE",
			"os.environ/EXTRA_QUERY_PERMITS",
			"os.environ/POOL_SIZE",
			"os.environ/WINDOW_SIZE",
			"os.environ/BIN_SIZE",
			"os.environ/LOGGING_LEVEL",
			"os.environ/METRICS_ENABLED",
		)
	}

	return Parse([]byte(yamlDoc))
}
