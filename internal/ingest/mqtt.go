// ABOUTME: MQTT subscriber that feeds decoded location reports into the façade
// ABOUTME: Wraps the paho client behind a small interface for testing

package ingest

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/harper/tagtrack/internal/config"
	"github.com/harper/tagtrack/internal/locations"
	"github.com/harper/tagtrack/internal/models"
)

const (
	tokenTimeout    = 10 * time.Second
	disconnectQuiet = 250 // milliseconds
)

// Client defines the subset of the paho client the ingester uses.
type Client interface {
	Connect() mqtt.Token
	Subscribe(topic string, qos byte, callback mqtt.MessageHandler) mqtt.Token
	Unsubscribe(topics ...string) mqtt.Token
	Disconnect(quiesce uint)
}

// Submitter accepts location submissions.
type Submitter interface {
	SubmitLocation(ctx context.Context, sub locations.Submission) (models.LocationRecord, error)
}

// Observer counts ingested messages.
type Observer interface {
	ObserveIngest(format string, success bool)
}

// NewClient creates a paho client from the mqtt section of cfg. It does not connect.
func NewClient(cfg *config.Config, logger zerolog.Logger) mqtt.Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.GetMQTTBroker())
	opts.SetClientID(cfg.GetMQTTClientID())
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		logger.Warn().Err(err).Msg("mqtt connection lost")
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		logger.Info().Str("broker", cfg.GetMQTTBroker()).Msg("mqtt connected")
	})
	return mqtt.NewClient(opts)
}

// Ingester subscribes to a topic filter and submits every decodable message.
type Ingester struct {
	client    Client
	topic     string
	qos       byte
	submitter Submitter
	logger    zerolog.Logger
	metrics   Observer
	now       func() time.Time
}

// Option configures an Ingester.
type Option func(*Ingester)

// WithMetrics counts messages by format and result.
func WithMetrics(o Observer) Option {
	return func(i *Ingester) { i.metrics = o }
}

// WithClock overrides the clock used to date GGA sentences.
func WithClock(now func() time.Time) Option {
	return func(i *Ingester) { i.now = now }
}

// New creates an Ingester for the given topic filter.
func New(client Client, topic string, qos byte, submitter Submitter, logger zerolog.Logger, opts ...Option) *Ingester {
	i := &Ingester{
		client:    client,
		topic:     topic,
		qos:       qos,
		submitter: submitter,
		logger:    logger.With().Str("component", "ingest").Logger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

func await(token mqtt.Token, what string) error {
	if !token.WaitTimeout(tokenTimeout) {
		return fmt.Errorf("mqtt %s: timed out after %s", what, tokenTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt %s: %w", what, err)
	}
	return nil
}

// Run connects, subscribes, and blocks until ctx is done.
func (i *Ingester) Run(ctx context.Context) error {
	if err := await(i.client.Connect(), "connect"); err != nil {
		return err
	}
	defer i.client.Disconnect(disconnectQuiet)

	handler := func(_ mqtt.Client, msg mqtt.Message) {
		_ = i.Handle(ctx, msg.Topic(), msg.Payload())
	}
	if err := await(i.client.Subscribe(i.topic, i.qos, handler), "subscribe"); err != nil {
		return err
	}
	i.logger.Info().Str("topic", i.topic).Int("qos", int(i.qos)).Msg("subscribed")

	<-ctx.Done()

	if err := await(i.client.Unsubscribe(i.topic), "unsubscribe"); err != nil {
		i.logger.Warn().Err(err).Msg("unsubscribe failed")
	}
	i.logger.Info().Msg("ingest stopped")
	return nil
}

// Handle decodes and submits one message. Failures are logged and returned.
func (i *Ingester) Handle(ctx context.Context, topic string, payload []byte) error {
	sub, format, err := Decode(topic, payload, i.now())
	if err == nil {
		var rec models.LocationRecord
		rec, err = i.submitter.SubmitLocation(ctx, sub)
		if err == nil {
			i.logger.Debug().Str("topic", topic).Str("format", format).Int64("id", rec.ID).Msg("ingested location")
		}
	}

	if i.metrics != nil {
		i.metrics.ObserveIngest(format, err == nil)
	}
	if err != nil {
		i.logger.Warn().Err(err).Str("topic", topic).Str("format", format).Msg("dropped message")
	}
	return err
}
