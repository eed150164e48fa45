// Package device bridges field hardware over MQTT: telemetry in, pump commands out.
package device

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/metrics"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/irrigation"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/dedup"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/mqttbus"
)

const telemetrySource = "mqtt"

// Ingester accepts a telemetry reading and re-evaluates the plan.
type Ingester interface {
	Ingest(ctx context.Context, t messages.Telemetry, source string) (*irrigation.DailyPlan, error)
}

type DeviceService struct {
	client   mqtt.Client
	topic    string
	qos      byte
	ingester Ingester
	deduper  *dedup.Deduper
	validate *validator.Validate
	logger   *zap.Logger
}

func NewDeviceService(client mqtt.Client, topic string, qos byte, ingester Ingester, deduper *dedup.Deduper, logger *zap.Logger) *DeviceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DeviceService{
		client:   client,
		topic:    topic,
		qos:      qos,
		ingester: ingester,
		deduper:  deduper,
		validate: validator.New(),
		logger:   logger.Named("device"),
	}
}

// Start consumes telemetry until ctx is cancelled.
func (d *DeviceService) Start(ctx context.Context) error {
	c := mqttbus.NewConsumer(d.client, d.topic, d.qos, func(topic string, msg mqtt.Message) error {
		return d.handleTelemetry(ctx, topic, msg)
	}, d.logger)
	return c.Consume(ctx)
}

func (d *DeviceService) handleTelemetry(ctx context.Context, topic string, msg mqtt.Message) error {
	if msg.Duplicate() {
		metrics.MQTTDuplicates.Inc()
		d.logger.Debug("redelivered telemetry dropped", zap.String("topic", topic))
		return nil
	}

	var t messages.Telemetry
	if err := json.Unmarshal(msg.Payload(), &t); err != nil {
		return fmt.Errorf("decode telemetry on %s: %w", topic, err)
	}
	if err := d.validate.Struct(t); err != nil {
		return fmt.Errorf("invalid telemetry on %s: %w", topic, err)
	}
	if t.DeviceID == "" {
		t.DeviceID = deviceFromTopic(topic)
	}

	// a steady probe repeats its payload, so only timestamped readings have an identity
	if d.deduper != nil && !t.Timestamp.IsZero() && !d.deduper.ShouldProcess(readingKey(t)) {
		metrics.MQTTDuplicates.Inc()
		d.logger.Debug("duplicate telemetry dropped", zap.String("device_id", t.DeviceID))
		return nil
	}

	plan, err := d.ingester.Ingest(ctx, t, telemetrySource)
	if err != nil {
		return fmt.Errorf("ingest telemetry from %s: %w", t.DeviceID, err)
	}
	if plan != nil {
		d.logger.Debug("telemetry evaluated",
			zap.String("device_id", t.DeviceID),
			zap.String("action", string(plan.Action)))
	}
	return nil
}

func readingKey(t messages.Telemetry) string {
	return t.DeviceID + "@" + t.Timestamp.UTC().Format(time.RFC3339Nano)
}

// deviceFromTopic takes the last level of sensor/telemetry/{device}.
func deviceFromTopic(topic string) string {
	if i := strings.LastIndexByte(topic, '/'); i >= 0 {
		return topic[i+1:]
	}
	return topic
}
