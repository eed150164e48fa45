package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/logger"
	sensorSimulator "github.com/LeonardoBeccarini/smart-irrigation/internal/sensor-simulator"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/mqttbus"
)

func main() {
	deviceID := flag.String("device-id", "field-1", "device identifier")
	gateway := flag.String("gateway", "http://localhost:3000", "gateway base URL (HTTP mode)")
	broker := flag.String("mqtt-broker", "", "MQTT broker, e.g. tcp://localhost:1883; empty uses HTTP")
	clientID := flag.String("client-id", "virtual-device-1", "MQTT client ID")
	commandTopic := flag.String("command-topic", "device/{device}/command", "MQTT command topic template")
	interval := flag.Duration("interval", 5*time.Second, "cycle interval")
	seed := flag.Int("seed", 50, "initial soil moisture percent")
	soilGrids := flag.Bool("soilgrids", false, "seed moisture from SoilGrids at -lat/-lon")
	lat := flag.Float64("lat", 28.61, "latitude")
	lon := flag.Float64("lon", 77.20, "longitude")
	level := flag.String("log-level", "info", "log level")
	flag.Parse()

	lg, err := logger.New(*level)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := sensorSimulator.NewDataGenerator(*seed)
	if *soilGrids {
		sg := resty.New().SetBaseURL(sensorSimulator.SoilGridsURL).SetTimeout(8 * time.Second)
		if err := gen.SeedFromSoilGrids(ctx, sg, *lat, *lon); err != nil {
			lg.Warn("soilgrids seed failed, keeping default", zap.Int("seed", *seed), zap.Error(err))
		}
	}
	lg.Info("virtual device starting", zap.String("device_id", *deviceID), zap.Int("moisture", gen.Moisture()))

	var tr sensorSimulator.Transport
	if *broker == "" {
		tr = sensorSimulator.NewHTTPTransport(*gateway, 5*time.Second)
	} else {
		client, err := mqttbus.Connect(ctx, mqttbus.ConnConfig{Broker: *broker, ClientID: *clientID}, lg)
		if err != nil {
			lg.Fatal("mqtt connect failed", zap.Error(err))
		}
		defer mqttbus.Close(client)

		mt := sensorSimulator.NewMQTTTransport(client, *deviceID, *commandTopic, 1, lg)
		go func() {
			if err := mt.Listen(ctx); err != nil {
				lg.Error("command subscription failed", zap.Error(err))
			}
		}()
		tr = mt
	}

	sensorSimulator.NewSensorSimulator(*deviceID, gen, tr, lg).Start(ctx, *interval)
}
