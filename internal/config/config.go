// Package config holds the process configuration. It is read once at startup
// from the environment (optionally seeded from a .env file) and is immutable
// afterwards.
package config

import (
	"time"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
)

type Config struct {
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	Server      ServerConfig
	Field       FieldConfig
	Weather     WeatherConfig
	MQTT        MQTTConfig
	Influx      InfluxConfig
	ThingsBoard ThingsBoardConfig
}

type ServerConfig struct {
	Port        string   `envconfig:"PORT" default:"3000" validate:"required,numeric"`
	GRPCPort    string   `envconfig:"GRPC_PORT" default:"50051" validate:"required,numeric"`
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`
}

// FieldConfig describes the single field the live controller manages.
type FieldConfig struct {
	DeviceID          string  `envconfig:"DEVICE_ID" default:"field-1" validate:"required"`
	CropType          string  `envconfig:"CROP_TYPE" default:"Rice (Paddy)" validate:"required"`
	Stage             string  `envconfig:"GROWTH_STAGE" default:"Vegetative" validate:"oneof=Vegetative Reproductive Ripening"`
	FieldSizeHa       float64 `envconfig:"FIELD_SIZE_HA" default:"1.5" validate:"gt=0"`
	MoistureThreshold int     `envconfig:"MOISTURE_THRESHOLD" default:"40" validate:"min=0,max=100"`
	Latitude          float64 `envconfig:"LATITUDE" default:"28.61" validate:"latitude"`
	Longitude         float64 `envconfig:"LONGITUDE" default:"77.20" validate:"longitude"`
}

// Policy converts the field settings into the controller's policy.
func (f FieldConfig) Policy() entities.IrrigationPolicy {
	return entities.IrrigationPolicy{
		CropType:          f.CropType,
		Stage:             entities.Stage(f.Stage),
		FieldSizeHa:       f.FieldSizeHa,
		MoistureThreshold: f.MoistureThreshold,
		Latitude:          f.Latitude,
		Longitude:         f.Longitude,
	}
}

type WeatherConfig struct {
	BaseURL            string        `envconfig:"WEATHER_URL" default:"https://api.open-meteo.com" validate:"omitempty,url"`
	Timeout            time.Duration `envconfig:"WEATHER_TIMEOUT" default:"5s" validate:"gt=0"`
	BreakerMaxFailures uint32        `envconfig:"WEATHER_BREAKER_FAILURES" default:"3" validate:"min=1"`
	BreakerOpenFor     time.Duration `envconfig:"WEATHER_BREAKER_OPEN_FOR" default:"30s" validate:"gt=0"`
}

// MQTTConfig is optional: an empty Broker disables the device bridge.
type MQTTConfig struct {
	Broker         string        `envconfig:"MQTT_BROKER"`
	ClientID       string        `envconfig:"MQTT_CLIENT_ID" default:"irrigation-gateway"`
	Username       string        `envconfig:"MQTT_USERNAME"`
	Password       string        `envconfig:"MQTT_PASSWORD"`
	TelemetryTopic string        `envconfig:"MQTT_TELEMETRY_TOPIC" default:"sensor/telemetry/+"`
	CommandTopic   string        `envconfig:"MQTT_COMMAND_TOPIC" default:"device/{device}/command"`
	ConnectTimeout time.Duration `envconfig:"MQTT_CONNECT_TIMEOUT" default:"60s" validate:"gt=0"`
	DedupTTL       time.Duration `envconfig:"MQTT_DEDUP_TTL" default:"10m" validate:"gt=0"`
	DedupCapacity  int           `envconfig:"MQTT_DEDUP_CAPACITY" default:"20000" validate:"min=1"`
	RetainCommands bool          `envconfig:"MQTT_RETAIN_COMMANDS" default:"true"`
	CommandQoS     byte          `envconfig:"MQTT_COMMAND_QOS" default:"1" validate:"max=2"`
	TelemetryQoS   byte          `envconfig:"MQTT_TELEMETRY_QOS" default:"1" validate:"max=2"`
}

// InfluxConfig is optional: an empty URL switches the event sink to a no-op.
type InfluxConfig struct {
	URL    string `envconfig:"INFLUX_URL" validate:"omitempty,url"`
	Token  string `envconfig:"INFLUX_TOKEN"`
	Org    string `envconfig:"INFLUX_ORG" default:"irrigation"`
	Bucket string `envconfig:"INFLUX_BUCKET" default:"events"`
}

type ThingsBoardConfig struct {
	URL          string        `envconfig:"TB_URL"`
	DeviceID     string        `envconfig:"TB_DEVICE_ID"`
	Token        string        `envconfig:"TB_TOKEN"`
	SyncInterval time.Duration `envconfig:"SYNC_INTERVAL" default:"0s" validate:"gte=0"`
}
