// Package mqttbus is the thin layer over paho used by every MQTT producer and
// consumer in the module: connection with retry, topic publishing and
// subscription loops.
package mqttbus

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

type ConnConfig struct {
	Broker         string // tcp://host:1883
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration // total time spent retrying the first connect
}

// Connect dials the broker, retrying with exponential backoff until it succeeds,
// ConnectTimeout elapses or ctx is cancelled. Once connected paho reconnects on
// its own. The client is disconnected when ctx is done.
func Connect(ctx context.Context, cfg ConnConfig, logger *zap.Logger) (mqtt.Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	log := logger.Named("mqtt").With(zap.String("broker", cfg.Broker))

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetCleanSession(false)
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Warn("connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.Info("connected")
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = cfg.ConnectTimeout
	if bo.MaxElapsedTime <= 0 {
		bo.MaxElapsedTime = 10 * time.Second
	}

	var client mqtt.Client
	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		client = mqtt.NewClient(opts)
		token := client.Connect()
		token.Wait()
		if err := token.Error(); err != nil {
			log.Warn("connect failed", zap.Int("attempt", attempt), zap.Error(err))
			return err
		}
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		return nil, fmt.Errorf("mqtt connect %s after %d attempts: %w", cfg.Broker, attempt, err)
	}

	go func() {
		<-ctx.Done()
		Close(client)
		log.Info("connection closed")
	}()
	return client, nil
}

// Close disconnects, leaving 250ms for in-flight work.
func Close(client mqtt.Client) {
	if client != nil && client.IsConnected() {
		client.Disconnect(250)
	}
}
