package sensor_simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/entities"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/device"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/dedup"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/mqttbus"
)

// Transport is how the virtual device talks to the gateway.
type Transport interface {
	Upload(ctx context.Context, t messages.Telemetry) error
	// Command returns the latest pump command, or "" when none is known yet.
	Command(ctx context.Context) (entities.PumpState, error)
}

// HTTPTransport uploads to /api/upload and polls /api/command.
type HTTPTransport struct {
	client *resty.Client
}

func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{client: resty.New().SetBaseURL(baseURL).SetTimeout(timeout)}
}

func (h *HTTPTransport) Upload(ctx context.Context, t messages.Telemetry) error {
	res, err := h.client.R().SetContext(ctx).SetBody(t).Post("/api/upload")
	if err != nil {
		return err
	}
	if res.IsError() {
		return fmt.Errorf("upload: HTTP %d: %s", res.StatusCode(), res.String())
	}
	return nil
}

func (h *HTTPTransport) Command(ctx context.Context) (entities.PumpState, error) {
	var out struct {
		Command string `json:"command"`
	}
	res, err := h.client.R().SetContext(ctx).SetResult(&out).Get("/api/command")
	if err != nil {
		return "", err
	}
	if res.IsError() {
		return "", fmt.Errorf("command: HTTP %d", res.StatusCode())
	}
	p, _ := entities.ParsePumpState(out.Command)
	return p, nil
}

// MQTTTransport publishes telemetry and follows the retained command topic.
type MQTTTransport struct {
	client         mqtt.Client
	pub            *mqttbus.Publisher
	deviceID       string
	telemetryTopic string
	commandTopic   string
	qos            byte
	deduper        *dedup.Deduper
	logger         *zap.Logger

	mu   sync.Mutex
	last entities.PumpState
}

func NewMQTTTransport(client mqtt.Client, deviceID, commandTmpl string, qos byte, logger *zap.Logger) *MQTTTransport {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MQTTTransport{
		client:         client,
		pub:            mqttbus.NewPublisher(client, 5*time.Second),
		deviceID:       deviceID,
		telemetryTopic: "sensor/telemetry/" + deviceID,
		commandTopic:   device.CommandTopic(commandTmpl, deviceID),
		qos:            qos,
		deduper:        dedup.New(2*time.Minute, 1000),
		logger:         logger.Named("mqtt-transport"),
	}
}

// Listen follows the command topic until ctx is done.
func (m *MQTTTransport) Listen(ctx context.Context) error {
	return mqttbus.NewConsumer(m.client, m.commandTopic, m.qos, m.handleCommand, m.logger).Consume(ctx)
}

func (m *MQTTTransport) handleCommand(_ string, msg mqtt.Message) error {
	if !m.deduper.ShouldProcess(dedup.Key(msg.Payload())) {
		return nil
	}
	var cmd messages.PumpCommandEvent
	if err := json.Unmarshal(msg.Payload(), &cmd); err != nil {
		return fmt.Errorf("invalid pump command: %w", err)
	}
	if cmd.DeviceID != "" && cmd.DeviceID != m.deviceID {
		return nil
	}
	// AUTO only releases the override; the next ON/OFF follows.
	p, ok := entities.ParsePumpState(cmd.Command)
	if !ok {
		return nil
	}
	m.mu.Lock()
	m.last = p
	m.mu.Unlock()
	return nil
}

func (m *MQTTTransport) Upload(_ context.Context, t messages.Telemetry) error {
	return m.pub.PublishJSON(m.telemetryTopic, m.qos, false, t)
}

func (m *MQTTTransport) Command(context.Context) (entities.PumpState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last, nil
}
