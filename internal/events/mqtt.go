package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
)

// MQTTConfig addresses the broker. Events go to <Topic>/<kind>.
type MQTTConfig struct {
	Broker   string
	Topic    string
	ClientID string
	QoS      byte
	Timeout  time.Duration
}

// client is the part of mqtt.Client the publisher uses.
type client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// MQTT publishes events as JSON to an MQTT broker.
type MQTT struct {
	c       client
	topic   string
	qos     byte
	timeout time.Duration
	log     *slog.Logger
}

// DialMQTT connects to the broker and returns a publisher.
func DialMQTT(cfg MQTTConfig, log *slog.Logger) (*MQTT, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "biopass-" + uuid.NewString()
	}
	if log == nil {
		log = slog.Default()
	}

	opts := mqtt.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(5 * time.Second)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(mqtt.Client) {
		log.Info("connected to MQTT", slog.String("broker", cfg.Broker))
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Warn("MQTT connection lost", slog.Any("error", err))
	}

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, token.Error())
	}
	return newMQTT(c, cfg, log), nil
}

func newMQTT(c client, cfg MQTTConfig, log *slog.Logger) *MQTT {
	if cfg.Topic == "" {
		cfg.Topic = "biopass/access"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &MQTT{c: c, topic: cfg.Topic, qos: cfg.QoS, timeout: cfg.Timeout, log: log}
}

// TopicFor returns the topic an event of kind k is published to.
func (m *MQTT) TopicFor(k Kind) string {
	return m.topic + "/" + string(k)
}

func (m *MQTT) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	topic := m.TopicFor(e.Kind)
	token := m.c.Publish(topic, m.qos, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(m.timeout):
		return errors.New("timed out publishing to " + topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}
	m.log.Debug("event published", slog.String("topic", topic), slog.String("id", e.ID))
	return nil
}

// Close disconnects, allowing 250ms for in-flight messages.
func (m *MQTT) Close() {
	m.c.Disconnect(250)
}
