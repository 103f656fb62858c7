// cmd/collector/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/harperreed/houseagent/internal/alerting"
	"github.com/harperreed/houseagent/internal/api"
	"github.com/harperreed/houseagent/internal/config"
	"github.com/harperreed/houseagent/internal/pipeline"
	"github.com/harperreed/houseagent/internal/situation"
	"github.com/harperreed/houseagent/internal/storage"
	"github.com/harperreed/houseagent/internal/transport"
	"github.com/harperreed/houseagent/internal/websocket"
)

const recentMessageCapacity = 100

func main() {
	configPath := flag.String("config", ".", "Path to the configuration file directory")
	flag.Parse()

	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("error loading config", zap.Error(err))
	}

	plan, err := situation.LoadFloorPlan(cfg.FloorPlan.Path)
	if err != nil {
		logger.Warn("error loading floor plan, continuing without spatial context", zap.Error(err))
		plan = &situation.FloorPlan{}
	}

	client, err := transport.Connect(cfg.MQTT, cfg.MQTT.ClientID+"-collector", logger)
	if err != nil {
		logger.Fatal("error connecting to mqtt broker", zap.Error(err))
	}
	defer client.Disconnect()

	hub := websocket.NewHub(logger)
	go hub.Run()

	recent := storage.NewRecent(recentMessageCapacity)
	alerter := alerting.NewAlerter(hub, recent, logger)

	noise := pipeline.NewNoiseFilter(cfg.Noise.DedupWindow(), logger)
	detector := pipeline.NewAnomalyDetector(cfg.Anomaly.ZThreshold, logger)

	batcher := pipeline.NewBatcher(pipeline.BatcherConfig{
		Timeout:            cfg.Batch.Timeout(),
		BatchSizeThreshold: cfg.Batch.SizeThreshold,
		IdleTimeThreshold:  cfg.Batch.IdleTime(),
		BundleTopic:        cfg.MQTT.BundleTopic,
	}, client, noise, detector, plan.ZoneMap(), alerter, logger)

	if err := client.Subscribe(cfg.MQTT.SubscribeTopic, batcher.HandleRaw); err != nil {
		logger.Fatal("error subscribing", zap.Error(err))
	}

	go batcher.Run()

	handler := api.NewHandler(recent, batcher, hub, logger)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Dashboard.Port),
		Handler: api.SetupRouter(handler),
	}

	go func() {
		logger.Info("starting dashboard server", zap.Int("port", cfg.Dashboard.Port))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("dashboard server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	batcher.Stop()
	batcher.Flush()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("dashboard shutdown error", zap.Error(err))
	}

	logger.Info("bye")
}

func newLogger() *zap.Logger {
	var logger *zap.Logger
	var err error
	if os.Getenv("DEBUG") != "" {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}
