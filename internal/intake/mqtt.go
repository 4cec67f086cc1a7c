package intake

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// MQTTConfig configures the broker connection.
type MQTTConfig struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	Topics     []string
	QoS        byte
	MaxRetries uint64
	// HandleTimeout bounds the processing of one message.
	HandleTimeout time.Duration
}

// Subscriber consumes envelopes from MQTT topics and dispatches them.
type Subscriber struct {
	client     mqtt.Client
	cfg        MQTTConfig
	dispatcher *Dispatcher
	log        logrus.FieldLogger
	ctx        context.Context
}

// NewSubscriber prepares a subscriber. Call Connect to start consuming.
func NewSubscriber(ctx context.Context, cfg MQTTConfig, dispatcher *Dispatcher, logger logrus.FieldLogger) *Subscriber {
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = 30 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 5
	}
	return &Subscriber{
		cfg:        cfg,
		dispatcher: dispatcher,
		log:        logger.WithFields(logrus.Fields{"component": "mqtt", "broker": cfg.Broker}),
		ctx:        ctx,
	}
}

// Connect dials the broker with exponential backoff. Subscriptions are made in
// the on-connect callback so automatic reconnects restore them.
func (s *Subscriber) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(s.cfg.Broker)
	opts.SetClientID(s.cfg.ClientID)
	opts.SetUsername(s.cfg.Username)
	opts.SetPassword(s.cfg.Password)
	opts.SetCleanSession(false)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		s.subscribe(c)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		s.log.WithError(err).Warn("MQTT connection lost")
	})

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			s.log.WithError(token.Error()).Warn("Failed to connect to MQTT broker")
			return token.Error()
		}
		return nil
	}, backoff.WithContext(backoff.WithMaxRetries(bo, s.cfg.MaxRetries), s.ctx))
	if err != nil {
		return fmt.Errorf("could not establish MQTT connection after retries: %w", err)
	}

	s.client = client
	s.log.Info("Connected to MQTT broker")
	return nil
}

func (s *Subscriber) subscribe(c mqtt.Client) {
	for _, topic := range s.cfg.Topics {
		token := c.Subscribe(topic, s.cfg.QoS, s.handleMessage)
		token.Wait()
		if err := token.Error(); err != nil {
			s.log.WithField("topic", topic).WithError(err).Error("Error subscribing to topic")
			continue
		}
		s.log.WithField("topic", topic).Info("Subscribed to topic")
	}
}

func (s *Subscriber) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	ctx, cancel := context.WithTimeout(s.ctx, s.cfg.HandleTimeout)
	defer cancel()

	if err := s.dispatcher.Dispatch(ctx, msg.Payload()); err != nil {
		s.log.WithFields(logrus.Fields{
			"topic":      msg.Topic(),
			"message_id": msg.MessageID(),
		}).WithError(err).Error("Error handling message")
	}
}

// Close unsubscribes and disconnects.
func (s *Subscriber) Close() {
	if s.client == nil || !s.client.IsConnected() {
		return
	}
	if token := s.client.Unsubscribe(s.cfg.Topics...); token.WaitTimeout(time.Second) && token.Error() != nil {
		s.log.WithError(token.Error()).Warn("Failed to unsubscribe")
	}
	s.client.Disconnect(250)
	s.log.Info("MQTT connection closed")
}
