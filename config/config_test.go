package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "atom.toml")
	err := os.WriteFile(path, []byte(contents), 0644)
	require.NoError(t, err)
	return path
}

func TestNewConfig(t *testing.T) {
	path := writeConfigFile(t, `
ListenAddr = "127.0.0.1:8080"
Trigger = "steps"
TriggerFrequency = 10.0
TriggerFrequencyMin = 2.0
TriggerScalingFactor = 5.0
MaxQueueSize = 100
`)
	c, err := NewConfig(path)
	require.NoError(t, err)

	addr, err := c.GetListenAddr()
	assert.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8080", addr)

	kind, err := c.GetTriggerKind()
	assert.NoError(t, err)
	assert.Equal(t, TriggerSteps, kind)

	freq, err := c.GetTriggerFrequency()
	assert.NoError(t, err)
	assert.Equal(t, 10.0, freq)

	size, err := c.GetMaxQueueSize()
	assert.NoError(t, err)
	assert.Equal(t, 100, size)
}

func TestConfigDefaults(t *testing.T) {
	path := writeConfigFile(t, `
TriggerFrequency = 60.0
`)
	c, err := NewConfig(path)
	require.NoError(t, err)

	kind, err := c.GetTriggerKind()
	assert.NoError(t, err)
	assert.Equal(t, TriggerSeconds, kind)

	min, err := c.GetTriggerFrequencyMin()
	assert.NoError(t, err)
	assert.Equal(t, 2.0, min)

	scaling, err := c.GetTriggerScalingFactor()
	assert.NoError(t, err)
	assert.Equal(t, 5.0, scaling)

	loggerType, err := c.GetLoggerType()
	assert.NoError(t, err)
	assert.Equal(t, "logrus", loggerType)
}

func TestConfigRejectsZeroScalingFactor(t *testing.T) {
	path := writeConfigFile(t, `
TriggerFrequency = 10.0
TriggerScalingFactor = 0.0
`)
	_, err := NewConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scaling factor")
}

func TestConfigRejectsNegativeScalingFactor(t *testing.T) {
	path := writeConfigFile(t, `
TriggerFrequency = 10.0
TriggerScalingFactor = -3.0
`)
	_, err := NewConfig(path)
	require.Error(t, err)
}

func TestConfigRejectsUnknownTrigger(t *testing.T) {
	path := writeConfigFile(t, `
Trigger = "minutes"
TriggerFrequency = 10.0
`)
	_, err := NewConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trigger kind")
}

func TestConfigRejectsMissingFrequency(t *testing.T) {
	path := writeConfigFile(t, `
Trigger = "seconds"
`)
	_, err := NewConfig(path)
	require.Error(t, err)
}
