// Package kafka wraps segmentio/kafka-go with JSON payloads and string headers.
package kafka

//go:generate go run go.uber.org/mock/mockgen -source=./kafka.go -destination=./mocks/kafka_mock.go -package=mocks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slotwise/config"
	"time"

	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
)

const (
	batchTimeout = 50 * time.Millisecond
	retryBackoff = time.Second
)

// Message is a JSON encoded record. Messages with the same key land on the same partition.
type Message struct {
	Key     string
	Value   any
	Headers map[string]string
}

func (m Message) Encode(topic string) (kafkaGo.Message, error) {
	value, err := json.Marshal(m.Value)
	if err != nil {
		return kafkaGo.Message{}, fmt.Errorf("failed to encode message %q: %w", m.Key, err)
	}

	headers := make([]kafkaGo.Header, 0, len(m.Headers))
	for key, val := range m.Headers {
		headers = append(headers, kafkaGo.Header{Key: key, Value: []byte(val)})
	}

	return kafkaGo.Message{
		Topic:   topic,
		Key:     []byte(m.Key),
		Value:   value,
		Headers: headers,
	}, nil
}

func Decode[T any](msg kafkaGo.Message) (T, error) {
	var value T

	if err := json.Unmarshal(msg.Value, &value); err != nil {
		return value, fmt.Errorf("failed to decode message from %s: %w", msg.Topic, err)
	}

	return value, nil
}

// Header returns the first header with the given key.
func Header(msg kafkaGo.Message, key string) (string, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return string(header.Value), true
		}
	}

	return "", false
}

type Client interface {
	SendMessages(ctx context.Context, topic string, messages ...Message) (err error)
	// Consume blocks until ctx is done, calling handler for each message in order.
	Consume(ctx context.Context, consumerGroup, topic string, handler func(message kafkaGo.Message))
	Close() error
}

type client struct {
	brokers []string
	group   string
	dialer  *kafkaGo.Dialer
	writer  *kafkaGo.Writer
}

func New(cfg *config.Config) Client {
	dialer := &kafkaGo.Dialer{
		Timeout:   10 * time.Second,
		DualStack: true,
	}
	transport := &kafkaGo.Transport{}

	if sasl := cfg.Kafka.SASL; sasl.Username != "" {
		mechanism := plain.Mechanism{Username: sasl.Username, Password: sasl.Password}
		dialer.SASLMechanism = mechanism
		transport.SASL = mechanism
	}

	if cfg.Kafka.Enable {
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Msg("Kafka client initialized")
	}

	return &client{
		brokers: cfg.Kafka.Brokers,
		group:   cfg.Kafka.ConsumerGroup,
		dialer:  dialer,
		writer: &kafkaGo.Writer{
			Addr:                   kafkaGo.TCP(cfg.Kafka.Brokers...),
			Transport:              transport,
			Balancer:               &kafkaGo.Hash{},
			RequiredAcks:           kafkaGo.RequireOne,
			BatchTimeout:           batchTimeout,
			AllowAutoTopicCreation: true,
		},
	}
}

func (c *client) SendMessages(ctx context.Context, topic string, messages ...Message) error {
	if len(messages) == 0 {
		return nil
	}

	records := make([]kafkaGo.Message, 0, len(messages))

	for _, message := range messages {
		record, err := message.Encode(topic)
		if err != nil {
			return err
		}

		records = append(records, record)
	}

	if err := c.writer.WriteMessages(ctx, records...); err != nil {
		return fmt.Errorf("failed to write %d messages to %s: %w", len(records), topic, err)
	}

	log.Debug().Str("topic", topic).Int("count", len(records)).Msg("sent messages")

	return nil
}

// Consume starts from the latest offset. Read errors are retried after a short pause.
func (c *client) Consume(ctx context.Context, consumerGroup, topic string, handler func(message kafkaGo.Message)) {
	if topic == "" {
		log.Error().Msg("kafka consumer needs a topic")

		return
	}

	if consumerGroup == "" {
		consumerGroup = c.group
	}

	reader := kafkaGo.NewReader(kafkaGo.ReaderConfig{
		Brokers:     c.brokers,
		Topic:       topic,
		GroupID:     consumerGroup,
		Dialer:      c.dialer,
		StartOffset: kafkaGo.LastOffset,
	})

	defer func() {
		if err := reader.Close(); err != nil {
			log.Error().Err(err).Str("topic", topic).Msg("failed to close kafka reader")
		}
	}()

	for {
		msg, err := reader.ReadMessage(ctx)

		switch {
		case err == nil:
			handler(msg)
		case ctx.Err() != nil || errors.Is(err, context.Canceled):
			log.Info().Str("topic", topic).Msg("kafka consumer stopped")

			return
		default:
			log.Error().Err(err).Str("topic", topic).Msg("failed to read from kafka")

			select {
			case <-ctx.Done():
				return
			case <-time.After(retryBackoff):
			}
		}
	}
}

func (c *client) Close() error {
	if err := c.writer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka writer: %w", err)
	}

	return nil
}
