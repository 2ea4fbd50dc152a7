package config

import "encoding/json"

// MockConfig will respond with whatever config it's set to do during
// initialization
type MockConfig struct {
	GetListenAddrErr            error
	GetListenAddrVal            string
	GetLoggerTypeErr            error
	GetLoggerTypeVal            string
	GetLoggingLevelErr          error
	GetLoggingLevelVal          string
	GetMetricsTypeErr           error
	GetMetricsTypeVal           string
	GetPrometheusListenAddrErr  error
	GetPrometheusListenAddrVal  string
	GetTriggerKindErr           error
	GetTriggerKindVal           TriggerKind
	GetTriggerFrequencyErr      error
	GetTriggerFrequencyVal      float64
	GetTriggerFrequencyMinErr   error
	GetTriggerFrequencyMinVal   float64
	GetTriggerScalingFactorErr  error
	GetTriggerScalingFactorVal  float64
	GetMaxQueueSizeErr          error
	GetMaxQueueSizeVal          int
	GetContentRepoURLErr        error
	GetContentRepoURLVal        string
	GetObjectStoreBucketErr     error
	GetObjectStoreBucketVal     string
	GetOtherConfigErr           error
	// GetOtherConfigVal must be a JSON representation of the config struct
	// to be populated.
	GetOtherConfigVal string

	Callbacks []func()
}

func (m *MockConfig) Reload() {
	for _, cb := range m.Callbacks {
		cb()
	}
}

func (m *MockConfig) RegisterReloadCallback(cb func()) {
	m.Callbacks = append(m.Callbacks, cb)
}

func (m *MockConfig) GetListenAddr() (string, error) { return m.GetListenAddrVal, m.GetListenAddrErr }
func (m *MockConfig) GetLoggerType() (string, error) { return m.GetLoggerTypeVal, m.GetLoggerTypeErr }
func (m *MockConfig) GetLoggingLevel() (string, error) {
	return m.GetLoggingLevelVal, m.GetLoggingLevelErr
}
func (m *MockConfig) GetMetricsType() (string, error) { return m.GetMetricsTypeVal, m.GetMetricsTypeErr }
func (m *MockConfig) GetPrometheusListenAddr() (string, error) {
	return m.GetPrometheusListenAddrVal, m.GetPrometheusListenAddrErr
}
func (m *MockConfig) GetTriggerKind() (TriggerKind, error) {
	return m.GetTriggerKindVal, m.GetTriggerKindErr
}
func (m *MockConfig) GetTriggerFrequency() (float64, error) {
	return m.GetTriggerFrequencyVal, m.GetTriggerFrequencyErr
}
func (m *MockConfig) GetTriggerFrequencyMin() (float64, error) {
	return m.GetTriggerFrequencyMinVal, m.GetTriggerFrequencyMinErr
}
func (m *MockConfig) GetTriggerScalingFactor() (float64, error) {
	return m.GetTriggerScalingFactorVal, m.GetTriggerScalingFactorErr
}
func (m *MockConfig) GetMaxQueueSize() (int, error) {
	return m.GetMaxQueueSizeVal, m.GetMaxQueueSizeErr
}
func (m *MockConfig) GetContentRepoURL() (string, error) {
	return m.GetContentRepoURLVal, m.GetContentRepoURLErr
}
func (m *MockConfig) GetObjectStoreBucket() (string, error) {
	return m.GetObjectStoreBucketVal, m.GetObjectStoreBucketErr
}
func (m *MockConfig) GetOtherConfig(name string, iface interface{}) error {
	if err := json.Unmarshal([]byte(m.GetOtherConfigVal), iface); err != nil {
		return err
	}
	return m.GetOtherConfigErr
}
