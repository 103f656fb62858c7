// internal/transport/mqtt.go
package transport

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/harperreed/houseagent/internal/config"
)

// Client wraps the paho MQTT client with the two operations the pipeline
// needs: subscribe a raw-payload handler, and fire-and-forget publish.
type Client struct {
	inner  mqtt.Client
	logger *zap.Logger
}

// Connect dials the broker and blocks until the connection is up or fails.
func Connect(cfg config.MQTTConfig, clientID string, logger *zap.Logger) (*Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetKeepAlive(time.Duration(cfg.KeepAliveSeconds) * time.Second).
		SetAutoReconnect(true)

	opts.OnConnect = func(mqtt.Client) {
		logger.Info("connected to mqtt broker", zap.String("broker", cfg.Broker))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost", zap.Error(err))
	}

	inner := mqtt.NewClient(opts)
	token := inner.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to broker %s: %w", cfg.Broker, err)
	}

	return &Client{inner: inner, logger: logger}, nil
}

// Subscribe registers handler for every payload delivered on topic. The
// handler runs on paho's callback goroutine.
func (c *Client) Subscribe(topic string, handler func(payload []byte)) error {
	token := c.inner.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Payload())
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribing to %s: %w", topic, err)
	}
	c.logger.Info("subscribed", zap.String("topic", topic))
	return nil
}

// Publish is fire-and-forget: delivery errors are logged, never returned,
// and the core does not retry.
func (c *Client) Publish(topic string, payload []byte) {
	token := c.inner.Publish(topic, 0, false, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			c.logger.Error("publish failed", zap.String("topic", topic), zap.Error(err))
		}
	}()
}

func (c *Client) Disconnect() {
	c.inner.Disconnect(250)
	c.logger.Info("disconnected from mqtt broker")
}
