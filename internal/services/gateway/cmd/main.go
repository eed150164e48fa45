package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/LeonardoBeccarini/smart-irrigation/internal/config"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/logger"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/cloud"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/device"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/event"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/gateway/app"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/irrigation"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/poller"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/services/weather"
	"github.com/LeonardoBeccarini/smart-irrigation/internal/state"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/dedup"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/mqttbus"
	"github.com/LeonardoBeccarini/smart-irrigation/pkg/upstream"
)

const (
	publishTimeout     = 5 * time.Second
	influxErrorWindow  = 30 * time.Second
	healthPollInterval = 10 * time.Second
)

func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("gateway: %v", err)
	}
	lg, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("gateway: logger: %v", err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Error("gateway stopped", zap.Error(err))
		return
	}
	lg.Info("gateway: shutdown complete")
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	store := state.New(state.WithThreshold(cfg.Field.MoistureThreshold))

	wc := weather.NewClient(cfg.Weather.BaseURL, cfg.Weather.Timeout, upstream.BreakerSettings{
		MaxFailures: cfg.Weather.BreakerMaxFailures,
		OpenFor:     cfg.Weather.BreakerOpenFor,
	}, lg.Named("weather"))
	probes := []event.Probe{{Name: "weather", Check: wc.Ready}}

	// --- InfluxDB event sink (optional) ---
	var (
		recorder irrigation.Recorder = event.Nop{}
		history  http.Handler
	)
	if cfg.Influx.URL != "" {
		influx := influxdb2.NewClient(cfg.Influx.URL, cfg.Influx.Token)
		defer influx.Close()
		writer := event.NewWriter(influx.WriteAPI(cfg.Influx.Org, cfg.Influx.Bucket), lg)
		defer writer.Flush()

		recorder = writer
		history = event.NewDecisionHistoryHandler(influx.QueryAPI(cfg.Influx.Org), cfg.Influx.Bucket)
		probes = append(probes, event.WriterProbe(writer, influxErrorWindow, false))
		lg.Info("event sink enabled", zap.String("url", cfg.Influx.URL), zap.String("bucket", cfg.Influx.Bucket))
	}

	// --- device layer: cloud stub always, MQTT when a broker is configured ---
	tb := cloud.NewThingsBoard(cfg.ThingsBoard.URL, lg)
	notifiers := irrigation.Notifiers{tb}

	var mq mqtt.Client
	if cfg.MQTT.Broker != "" {
		c, err := mqttbus.Connect(ctx, mqttbus.ConnConfig{
			Broker:         cfg.MQTT.Broker,
			ClientID:       cfg.MQTT.ClientID,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			ConnectTimeout: cfg.MQTT.ConnectTimeout,
		}, lg)
		if err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
		defer mqttbus.Close(c)
		mq = c

		pub := mqttbus.NewPublisher(mq, publishTimeout)
		notifiers = append(notifiers, device.NewNotifier(pub, cfg.MQTT.CommandTopic, cfg.MQTT.CommandQoS, cfg.MQTT.RetainCommands, lg))
		probes = append(probes, event.MQTTProbe(mq, true))
	}

	ctrl := irrigation.NewController(store, wc, notifiers, recorder, cfg.Field.Policy(), lg,
		irrigation.WithDeviceID(cfg.Field.DeviceID),
		irrigation.WithWeatherTimeout(cfg.Weather.Timeout),
	)
	cloudSync := poller.New(tb, ctrl, cfg.ThingsBoard.DeviceID, cfg.ThingsBoard.Token, cfg.ThingsBoard.SyncInterval, lg)

	// --- HTTP ---
	gw := app.NewGateway(ctrl, store, app.Config{
		CORSOrigins: cfg.Server.CORSOrigins,
		Probes:      probes,
		History:     history,
		Logger:      lg,
	})
	srv := app.NewServer(":"+cfg.Server.Port, gw.Handler(), lg)

	// --- gRPC health ---
	grpcSrv := grpc.NewServer()
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, hs)
	lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)
	g.Go(func() error {
		lg.Info("starting gRPC health server", zap.String("addr", lis.Addr().String()))
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		reportHealth(gctx, hs, probes)
		return nil
	})
	g.Go(func() error { return cloudSync.Start(gctx) })
	if mq != nil {
		devices := device.NewDeviceService(mq, cfg.MQTT.TelemetryTopic, cfg.MQTT.TelemetryQoS, ctrl,
			dedup.New(cfg.MQTT.DedupTTL, cfg.MQTT.DedupCapacity), lg)
		g.Go(func() error { return devices.Start(gctx) })
	}

	g.Go(func() error {
		<-gctx.Done()
		lg.Info("shutting down")
		hs.Shutdown()

		shCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		stopGRPC(shCtx, grpcSrv)
		return srv.Shutdown(shCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// stopGRPC drains in-flight RPCs; open health watch streams are cut when ctx expires.
func stopGRPC(ctx context.Context, s *grpc.Server) {
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.Stop()
	}
}

// reportHealth mirrors HTTP readiness into the gRPC health service until ctx is done.
func reportHealth(ctx context.Context, hs *health.Server, probes []event.Probe) {
	set := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if !event.Ready(probes...) {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
	}
	set()

	t := time.NewTicker(healthPollInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			set()
		}
	}
}
