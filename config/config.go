package config

// TriggerKind selects how the scheduling loop is paced: by wall-clock
// seconds or by externally-reported steps.
type TriggerKind string

const (
	TriggerSeconds TriggerKind = "seconds"
	TriggerSteps   TriggerKind = "steps"
)

// Config defines the interface the rest of the code uses to get items from the
// config. There are different implementations of the config using different
// backends to store the config.
type Config interface {
	// RegisterReloadCallback takes a function that will be called whenever
	// the configuration is reloaded. This will happen infrequently. If
	// consumers of configuration set config values on startup, they should
	// check their values haven't changed and re-start anything that needs
	// restarting with the new values.
	RegisterReloadCallback(callback func())

	// Reload forces the config to re-read its backing store and fire the
	// reload callbacks.
	Reload()

	// GetListenAddr returns the address and port on which to listen for
	// incoming organic requests.
	GetListenAddr() (string, error)

	// GetLoggerType returns the type of the logger to use. Valid types are
	// in the logger package.
	GetLoggerType() (string, error)

	// GetLoggingLevel returns the level of the logger to use.
	GetLoggingLevel() (string, error)

	// GetMetricsType returns the type of metrics to use. Valid types are in
	// the metrics package.
	GetMetricsType() (string, error)

	// GetPrometheusListenAddr returns the address on which the prometheus
	// metrics endpoint is served.
	GetPrometheusListenAddr() (string, error)

	// GetTriggerKind returns the pacing mode for the scheduling loop.
	GetTriggerKind() (TriggerKind, error)

	// GetTriggerFrequency returns the base trigger frequency: seconds
	// between sampling cycles in seconds mode, steps between cycles in
	// steps mode.
	GetTriggerFrequency() (float64, error)

	// GetTriggerFrequencyMin returns the floor the annealed frequency never
	// drops below.
	GetTriggerFrequencyMin() (float64, error)

	// GetTriggerScalingFactor returns the sensitivity of the annealed
	// frequency to queue growth. Guaranteed > 0 by validation at load time.
	GetTriggerScalingFactor() (float64, error)

	// GetMaxQueueSize returns the maximum organic queue depth; 0 means
	// unbounded.
	GetMaxQueueSize() (int, error)

	// GetContentRepoURL returns the git repository URL used by the content
	// store handler.
	GetContentRepoURL() (string, error)

	// GetObjectStoreBucket returns the bucket name used by the object store
	// handler.
	GetObjectStoreBucket() (string, error)

	// GetOtherConfig unmarshals an arbitrary config subtree into iface.
	GetOtherConfig(name string, iface interface{}) error
}
