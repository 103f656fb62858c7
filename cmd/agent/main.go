// cmd/agent/main.go
package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/harperreed/houseagent/internal/agent"
	"github.com/harperreed/houseagent/internal/config"
	"github.com/harperreed/houseagent/internal/memory"
	"github.com/harperreed/houseagent/internal/situation"
	"github.com/harperreed/houseagent/internal/storage"
	"github.com/harperreed/houseagent/internal/transport"
)

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

	client, err := transport.Connect(cfg.MQTT, cfg.MQTT.ClientID+"-agent", logger)
	if err != nil {
		logger.Fatal("error connecting to mqtt broker", zap.Error(err))
	}
	defer client.Disconnect()

	openaiClient := agent.NewOpenAIClient(cfg.OpenAI.APIKey)
	bot := agent.NewHouseBot(openaiClient, cfg.OpenAI, logger)

	var mem *memory.SemanticMemory
	if cfg.Memory.Enabled {
		mem, err = memory.New(cfg.Memory, openaiClient, logger)
		if err != nil {
			logger.Warn("semantic memory unavailable, continuing without it", zap.Error(err))
			mem = nil
		} else {
			defer mem.Close()
		}
	}

	listener := agent.NewListener(
		situation.NewBuilder(logger),
		plan,
		bot,
		storage.NewHistory(cfg.History.MaxTurns),
		mem,
		client,
		cfg.MQTT.NotificationTopic,
		logger,
	)

	if err := client.Subscribe(cfg.MQTT.BundleTopic, listener.HandleBundle); err != nil {
		logger.Fatal("error subscribing", zap.Error(err))
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

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
