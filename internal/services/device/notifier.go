package device

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/model/messages"
)

// Publisher is the subset of mqttbus.Publisher the notifier needs.
type Publisher interface {
	PublishJSON(topic string, qos byte, retained bool, v any) error
}

// Notifier publishes pump commands to device/{id}/command. Commands are retained
// so a device that reconnects sees the latest one immediately.
type Notifier struct {
	pub       Publisher
	topicTmpl string
	qos       byte
	retained  bool
	logger    *zap.Logger
}

func NewNotifier(pub Publisher, topicTmpl string, qos byte, retained bool, logger *zap.Logger) *Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	if topicTmpl == "" {
		topicTmpl = "device/{device}/command"
	}
	return &Notifier{pub: pub, topicTmpl: topicTmpl, qos: qos, retained: retained, logger: logger.Named("notifier")}
}

func (n *Notifier) NotifyPump(_ context.Context, cmd messages.PumpCommandEvent) error {
	topic := CommandTopic(n.topicTmpl, cmd.DeviceID)
	if err := n.pub.PublishJSON(topic, n.qos, n.retained, cmd); err != nil {
		return err
	}
	n.logger.Info("pump command published",
		zap.String("topic", topic),
		zap.String("command", cmd.Command),
		zap.Bool("manual", cmd.Manual))
	return nil
}

// CommandTopic fills the {device} placeholder.
func CommandTopic(tmpl, deviceID string) string {
	return strings.ReplaceAll(tmpl, "{device}", deviceID)
}
