package kafka_test

import (
	"context"
	"slotwise/config"
	"slotwise/infras/kafka"
	"testing"

	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Table string `json:"table"`
	Count int    `json:"count"`
}

func TestMessage_EncodeDecode(t *testing.T) {
	msg := kafka.Message{
		Key:     "requests",
		Value:   payload{Table: "requests", Count: 2},
		Headers: map[string]string{"origin": "instance-a"},
	}

	record, err := msg.Encode("changes")
	require.NoError(t, err)

	assert.Equal(t, "changes", record.Topic)
	assert.Equal(t, []byte("requests"), record.Key)
	assert.JSONEq(t, `{"table":"requests","count":2}`, string(record.Value))

	origin, ok := kafka.Header(record, "origin")
	assert.True(t, ok)
	assert.Equal(t, "instance-a", origin)

	_, ok = kafka.Header(record, "missing")
	assert.False(t, ok)

	decoded, err := kafka.Decode[payload](record)
	require.NoError(t, err)
	assert.Equal(t, payload{Table: "requests", Count: 2}, decoded)
}

func TestMessage_EncodeRejectsUnsupportedValues(t *testing.T) {
	_, err := kafka.Message{Key: "bad", Value: make(chan int)}.Encode("changes")
	assert.Error(t, err)
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := kafka.Decode[payload](kafkaGo.Message{Topic: "changes", Value: []byte("not json")})
	assert.ErrorContains(t, err, "changes")
}

func TestClient_SendNothing(t *testing.T) {
	client := kafka.New(&config.Config{})

	assert.NoError(t, client.SendMessages(context.Background(), "changes"))
	assert.NoError(t, client.Close())
}
