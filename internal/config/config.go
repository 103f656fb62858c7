// internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Batch     BatchConfig     `mapstructure:"batch"`
	Noise     NoiseConfig     `mapstructure:"noise"`
	Anomaly   AnomalyConfig   `mapstructure:"anomaly"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	FloorPlan FloorPlanConfig `mapstructure:"floor_plan"`
	OpenAI    OpenAIConfig    `mapstructure:"openai"`
	Memory    MemoryConfig    `mapstructure:"memory"`
	History   HistoryConfig   `mapstructure:"history"`
}

type MQTTConfig struct {
	Broker            string `mapstructure:"broker"`
	ClientID          string `mapstructure:"client_id"`
	KeepAliveSeconds  int    `mapstructure:"keep_alive_seconds"`
	SubscribeTopic    string `mapstructure:"subscribe_topic"`
	BundleTopic       string `mapstructure:"bundle_topic"`
	NotificationTopic string `mapstructure:"notification_topic"`
}

type BatchConfig struct {
	TimeoutSeconds  int `mapstructure:"timeout_seconds"`
	SizeThreshold   int `mapstructure:"size_threshold"`
	IdleTimeSeconds int `mapstructure:"idle_time_seconds"`
}

type NoiseConfig struct {
	DedupWindowSeconds int `mapstructure:"dedup_window_seconds"`
}

type AnomalyConfig struct {
	ZThreshold float64 `mapstructure:"z_threshold"`
}

type DashboardConfig struct {
	Port int `mapstructure:"port"`
}

type FloorPlanConfig struct {
	Path string `mapstructure:"path"`
}

type OpenAIConfig struct {
	APIKey          string  `mapstructure:"api_key"`
	ClassifierModel string  `mapstructure:"classifier_model"`
	SynthesisModel  string  `mapstructure:"synthesis_model"`
	Temperature     float64 `mapstructure:"temperature"`
	PromptDir       string  `mapstructure:"prompt_dir"`
}

type MemoryConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	RedisAddr       string `mapstructure:"redis_addr"`
	RedisPassword   string `mapstructure:"redis_password"`
	RedisDB         int    `mapstructure:"redis_db"`
	Collection      string `mapstructure:"collection"`
	TimeWindowHours int    `mapstructure:"time_window_hours"`
}

type HistoryConfig struct {
	MaxTurns int `mapstructure:"max_turns"`
}

func (c *BatchConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *BatchConfig) IdleTime() time.Duration {
	return time.Duration(c.IdleTimeSeconds) * time.Second
}

func (c *NoiseConfig) DedupWindow() time.Duration {
	return time.Duration(c.DedupWindowSeconds) * time.Second
}

// Load reads config.yaml from path, with environment variables (dots
// replaced by underscores, e.g. BATCH_TIMEOUT_SECONDS) overriding file
// values. A missing file is fine; defaults cover everything.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(path)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "houseagent")
	v.SetDefault("mqtt.keep_alive_seconds", 60)
	v.SetDefault("mqtt.subscribe_topic", "sensors/+/events")
	v.SetDefault("mqtt.bundle_topic", "houseagent/bundles")
	v.SetDefault("mqtt.notification_topic", "houseagent/notifications")

	v.SetDefault("batch.timeout_seconds", 60)
	v.SetDefault("batch.size_threshold", 50)
	v.SetDefault("batch.idle_time_seconds", 60)

	v.SetDefault("noise.dedup_window_seconds", 60)
	v.SetDefault("anomaly.z_threshold", 2.5)

	v.SetDefault("dashboard.port", 8081)
	v.SetDefault("floor_plan.path", "config/floor_plan.json")

	v.SetDefault("openai.classifier_model", "gpt-5-mini")
	v.SetDefault("openai.synthesis_model", "gpt-5")
	v.SetDefault("openai.temperature", 0.0)
	v.SetDefault("openai.prompt_dir", "prompts")

	v.SetDefault("memory.enabled", false)
	v.SetDefault("memory.redis_addr", "localhost:6379")
	v.SetDefault("memory.redis_db", 0)
	v.SetDefault("memory.collection", "houseagent_memory")
	v.SetDefault("memory.time_window_hours", 2)

	v.SetDefault("history.max_turns", 20)
}
