package config

import (
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	viper "github.com/spf13/viper"
)

type fileConfig struct {
	config    *viper.Viper
	conf      *configContents
	callbacks []func()
	mux       sync.Mutex
}

type configContents struct {
	ListenAddr            string
	Logger                string
	LoggingLevel          string
	Metrics               string
	PrometheusListenAddr  string
	Trigger               string
	TriggerFrequency      float64
	TriggerFrequencyMin   float64
	TriggerScalingFactor  float64
	MaxQueueSize          int
	ContentRepoURL        string
	ObjectStoreBucket     string
}

// NewConfig creates a new config struct from the file at the given path. The
// trigger section is validated immediately so that misconfiguration surfaces
// at startup rather than once the loop is running.
func NewConfig(config string) (Config, error) {
	c := viper.New()
	c.SetDefault("Logger", "logrus")
	c.SetDefault("LoggingLevel", "info")
	c.SetDefault("Metrics", "prometheus")
	c.SetDefault("ListenAddr", "0.0.0.0:8080")
	c.SetDefault("PrometheusListenAddr", "0.0.0.0:2112")
	c.SetDefault("Trigger", string(TriggerSeconds))
	c.SetDefault("TriggerFrequencyMin", 2.0)
	c.SetDefault("TriggerScalingFactor", 5.0)
	c.SetConfigFile(config)
	err := c.ReadInConfig()

	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	fc := &fileConfig{
		config:    c,
		conf:      &configContents{},
		callbacks: make([]func(), 0),
	}

	if err := fc.unmarshal(); err != nil {
		return nil, err
	}

	if err := fc.validate(); err != nil {
		return nil, err
	}

	c.WatchConfig()
	c.OnConfigChange(fc.onChange)

	return fc, nil
}

func (f *fileConfig) onChange(in fsnotify.Event) {
	f.Reload()
}

func (f *fileConfig) Reload() {
	if err := f.unmarshal(); err != nil {
		// a bad reload keeps the previous values; startup validation has
		// already guaranteed we hold a usable config
		return
	}
	for _, cb := range f.callbacks {
		cb()
	}
}

func (f *fileConfig) unmarshal() error {
	f.mux.Lock()
	defer f.mux.Unlock()
	if err := f.config.Unmarshal(f.conf); err != nil {
		return errors.Wrap(err, "failed to unmarshal config")
	}
	return nil
}

func (f *fileConfig) validate() error {
	switch TriggerKind(f.conf.Trigger) {
	case TriggerSeconds, TriggerSteps:
	default:
		return errors.Errorf("unknown trigger kind %q (want %q or %q)",
			f.conf.Trigger, TriggerSeconds, TriggerSteps)
	}
	if f.conf.TriggerFrequency <= 0 {
		return errors.Errorf("trigger frequency must be greater than 0, got %f", f.conf.TriggerFrequency)
	}
	if f.conf.TriggerFrequencyMin < 0 {
		return errors.Errorf("minimum trigger frequency must not be negative, got %f", f.conf.TriggerFrequencyMin)
	}
	if f.conf.TriggerScalingFactor <= 0 {
		return errors.Errorf("the scaling factor must be higher than 0, got %f", f.conf.TriggerScalingFactor)
	}
	return nil
}

func (f *fileConfig) RegisterReloadCallback(cb func()) {
	f.callbacks = append(f.callbacks, cb)
}

func (f *fileConfig) GetListenAddr() (string, error) {
	return f.conf.ListenAddr, nil
}

func (f *fileConfig) GetLoggerType() (string, error) {
	return f.conf.Logger, nil
}

func (f *fileConfig) GetLoggingLevel() (string, error) {
	return f.conf.LoggingLevel, nil
}

func (f *fileConfig) GetMetricsType() (string, error) {
	return f.conf.Metrics, nil
}

func (f *fileConfig) GetPrometheusListenAddr() (string, error) {
	return f.conf.PrometheusListenAddr, nil
}

func (f *fileConfig) GetTriggerKind() (TriggerKind, error) {
	return TriggerKind(f.conf.Trigger), nil
}

func (f *fileConfig) GetTriggerFrequency() (float64, error) {
	return f.conf.TriggerFrequency, nil
}

func (f *fileConfig) GetTriggerFrequencyMin() (float64, error) {
	return f.conf.TriggerFrequencyMin, nil
}

func (f *fileConfig) GetTriggerScalingFactor() (float64, error) {
	return f.conf.TriggerScalingFactor, nil
}

func (f *fileConfig) GetMaxQueueSize() (int, error) {
	return f.conf.MaxQueueSize, nil
}

func (f *fileConfig) GetContentRepoURL() (string, error) {
	return f.conf.ContentRepoURL, nil
}

func (f *fileConfig) GetObjectStoreBucket() (string, error) {
	return f.conf.ObjectStoreBucket, nil
}

func (f *fileConfig) GetOtherConfig(name string, iface interface{}) error {
	if sub := f.config.Sub(name); sub != nil {
		return sub.Unmarshal(iface)
	}
	return errors.Errorf("failed to find config tree for %s", name)
}
