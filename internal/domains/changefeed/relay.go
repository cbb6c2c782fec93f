package changefeed

import (
	"context"
	"slotwise/config"
	"slotwise/infras/kafka"
	"slotwise/infras/otel"
	"slotwise/shared/constant"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	kafkaGo "github.com/segmentio/kafka-go"
)

const (
	defaultTopic = "slotwise.changefeed"
	originHeader = "origin"
)

// Relay publishes to the local feed and, when Kafka is enabled, mirrors events
// to the other instances so every session sees every change.
type Relay struct {
	feed    Feed
	client  kafka.Client
	otel    otel.Otel
	enabled bool
	topic   string
	group   string
	origin  string
}

func NewRelay(cfg *config.Config, feed Feed, client kafka.Client, otel otel.Otel) *Relay {
	topic := cfg.Kafka.Topic
	if topic == constant.Empty {
		topic = defaultTopic
	}

	origin := uuid.NewString()

	// every instance reads the whole topic, so the group is per instance
	group := cfg.Kafka.ConsumerGroup
	if group == constant.Empty {
		group = cfg.App.Name
	}

	return &Relay{
		feed:    feed,
		client:  client,
		otel:    otel,
		enabled: cfg.Kafka.Enable,
		topic:   topic,
		group:   group + "-" + origin,
		origin:  origin,
	}
}

// Publish implements Publisher. Kafka errors are logged; local delivery has already happened.
func (r *Relay) Publish(ctx context.Context, events ...Event) {
	ctx, scope := r.otel.NewScope(ctx, constant.OtelEventScopeName, constant.OtelEventScopeName+".Publish")
	defer scope.End()

	for idx := range events {
		events[idx].Origin = r.origin
	}

	r.feed.Publish(ctx, events...)

	if !r.enabled || len(events) == 0 {
		return
	}

	messages := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		messages = append(messages, kafka.Message{
			Key:     event.Table,
			Value:   event,
			Headers: map[string]string{originHeader: r.origin},
		})
	}

	if err := r.client.SendMessages(ctx, r.topic, messages...); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("topic", r.topic).Msg("failed to relay change events")
	}
}

// Run forwards events from other instances into the local feed until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	if !r.enabled {
		return
	}

	log.Info().Str("topic", r.topic).Str("group", r.group).Msg("Starting change feed relay")

	r.client.Consume(ctx, r.group, r.topic, r.forward)
}

func (r *Relay) forward(msg kafkaGo.Message) {
	if origin, ok := kafka.Header(msg, originHeader); ok && origin == r.origin {
		return
	}

	event, err := kafka.Decode[Event](msg)
	if err != nil {
		log.Error().Err(err).Str("topic", r.topic).Msg("failed to decode relayed change event")

		return
	}

	if event.Origin == r.origin {
		return
	}

	r.feed.Publish(context.Background(), event)
}
