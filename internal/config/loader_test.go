package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 5*time.Second, cfg.Weather.Timeout)
	assert.Equal(t, "sensor/telemetry/+", cfg.MQTT.TelemetryTopic)
	assert.Equal(t, byte(1), cfg.MQTT.CommandQoS)
	assert.True(t, cfg.MQTT.RetainCommands)
	assert.Empty(t, cfg.MQTT.Broker)
	assert.Zero(t, cfg.ThingsBoard.SyncInterval)
	assert.Equal(t, entities.DefaultPolicy(), cfg.Field.Policy())
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("PORT", "8081")
	t.Setenv("CROP_TYPE", "Wheat")
	t.Setenv("GROWTH_STAGE", "Ripening")
	t.Setenv("FIELD_SIZE_HA", "3")
	t.Setenv("SYNC_INTERVAL", "30s")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.Server.Port)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 30*time.Second, cfg.ThingsBoard.SyncInterval)
	p := cfg.Field.Policy()
	assert.Equal(t, entities.CropWheat, p.CropType)
	assert.Equal(t, entities.StageRipening, p.Stage)
	assert.Equal(t, 3.0, p.FieldSizeHa)
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("DEVICE_ID=from-file\nLOG_LEVEL=debug\n"), 0o600))
	t.Setenv("LOG_LEVEL", "warn")
	t.Cleanup(func() { os.Unsetenv("DEVICE_ID") })

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Field.DeviceID)
	assert.Equal(t, "warn", cfg.LogLevel)
}

func TestLoad_ValidationFails(t *testing.T) {
	cases := map[string][2]string{
		"bad stage":      {"GROWTH_STAGE", "Flowering"},
		"zero field":     {"FIELD_SIZE_HA", "0"},
		"bad latitude":   {"LATITUDE", "123"},
		"bad port":       {"PORT", "http"},
		"bad qos":        {"MQTT_COMMAND_QOS", "3"},
		"unparseable":    {"WEATHER_TIMEOUT", "soon"},
		"bad influx url": {"INFLUX_URL", "not a url"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}
