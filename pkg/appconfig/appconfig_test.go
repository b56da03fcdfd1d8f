package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "gateway.ini")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestLoadAppliesDefaultsWhenSectionsMissing(t *testing.T) {
	path := writeTemp(t, "")
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint16(1), cfg.Radio.LocalAddress)
	assert.Equal(t, 2*time.Second, cfg.Radio.ReceiveWindow)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Device)
	assert.Equal(t, 115200, cfg.Serial.Baud)
	assert.Equal(t, 5, cfg.Producer.Retries)
	assert.False(t, cfg.Metrics.Enabled)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadOverlaysProvidedSections(t *testing.T) {
	path := writeTemp(t, `
[radio]
local_address = 7
loss_rate = 0.1
receive_window_ms = 500

[serial]
device = /dev/ttyACM0
baud = 57600

[producer]
retries = 10
retry_backoff_ms = 250

[metrics]
enabled = true
listen = :9102

[redis]
enabled = true
addr = localhost:6379
key_format = loraota:node:%d
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, uint16(7), cfg.Radio.LocalAddress)
	assert.InDelta(t, 0.1, cfg.Radio.LossRate, 0.0001)
	assert.Equal(t, 500*time.Millisecond, cfg.Radio.ReceiveWindow)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Device)
	assert.Equal(t, 57600, cfg.Serial.Baud)
	assert.Equal(t, 10, cfg.Producer.Retries)
	assert.Equal(t, 250*time.Millisecond, cfg.Producer.RetryBackoff)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, ":9102", cfg.Metrics.Listen)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "loraota:node:%d", cfg.Redis.KeyFmt)
}

func TestLoadRejectsUnreadableFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	assert.Error(t, err)
}
