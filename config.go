package corecaller

import (
	"log/slog"
	"time"

	"github.com/InjectiveLabs/corecaller/callerfinder"
)

const (
	defaultEnvName              = "local"
	defaultServiceName          = "unknown"
	defaultServiceVersion       = "dev"
	defaultClusterID            = "svc-us-east"
	defaultStuckFunctionTimeout = 5 * time.Minute
	minStuckFunctionTimeout     = time.Second
	defaultMaxStackDepth        = 32
)

// Config is passed to Enable and to every ExporterInitFn.
// Zero fields are replaced by defaults.
type Config struct {
	// Enabled is set by Enable.
	Enabled bool

	EnvName        string
	ServiceName    string
	ServiceVersion string
	ClusterID      string

	// CollectorDSN is the exporter endpoint, e.g. "localhost:4317" for OTLP.
	CollectorDSN       string
	CollectorSecureSSL bool
	// CollectorHeaders are sent with every export request.
	CollectorHeaders map[string]string

	// StuckFunctionWatchdog marks spans still open after StuckFunctionTimeout
	// as failed. Timeouts below one second fall back to the default.
	StuckFunctionWatchdog bool
	StuckFunctionTimeout  time.Duration

	// MaxStackDepth bounds the stack recorded with errors and the virtual
	// parent spans of traceless spans. callerfinder.Unbounded records all frames.
	MaxStackDepth int

	// Logger receives the tracer's own diagnostics. Defaults to slog.Default().
	Logger BasicLogger
}

// BasicLogger is the subset of *slog.Logger the tracer logs through.
type BasicLogger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// GlobalTagsMap returns the resource tags describing the service.
// A nil Config yields the defaults.
func (c *Config) GlobalTagsMap() map[string]string {
	if c == nil {
		c = DefaultConfig()
	}

	globalTags := make(map[string]string, 4)

	for k, v := range map[string]string{
		"deployment.environment": c.EnvName,
		"deployment.cluster_id":  c.ClusterID,
		"service.name":           c.ServiceName,
		"service.version":        c.ServiceVersion,
	} {
		if len(v) > 0 {
			globalTags[k] = v
		}
	}

	return globalTags
}

func DefaultConfig() *Config {
	return validateConfig(nil)
}

// validateConfig fills in defaults in place and returns cfg,
// or a new Config when cfg is nil.
func validateConfig(cfg *Config) *Config {
	if cfg == nil {
		cfg = &Config{}
	}

	if cfg.StuckFunctionTimeout < minStuckFunctionTimeout {
		cfg.StuckFunctionTimeout = defaultStuckFunctionTimeout
	}

	if cfg.MaxStackDepth == 0 || cfg.MaxStackDepth < callerfinder.Unbounded {
		cfg.MaxStackDepth = defaultMaxStackDepth
	}

	setDefault(&cfg.EnvName, defaultEnvName)
	setDefault(&cfg.ServiceName, defaultServiceName)
	setDefault(&cfg.ServiceVersion, defaultServiceVersion)
	setDefault(&cfg.ClusterID, defaultClusterID)

	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return cfg
}

func setDefault(field *string, value string) {
	if len(*field) == 0 {
		*field = value
	}
}
