package kafka

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"gatherly/configs"

	kgo "github.com/segmentio/kafka-go"
)

type Writer interface {
	WriteJSON(ctx context.Context, key string, v any) error
	Close() error
}

type writer struct {
	w *kgo.Writer
}

// NewWriter creates a writer for topic. Durability follows cfg.RequiredAcks
// ("none", "one" or "all") and cfg.Async.
func NewWriter(cfg configs.KafkaConfig, topic string) Writer {
	addrs := strings.Split(cfg.Bootstrap, ",")
	for i := range addrs {
		addrs[i] = strings.TrimSpace(addrs[i])
	}
	return &writer{w: &kgo.Writer{
		Addr:         kgo.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kgo.Hash{},
		RequiredAcks: requiredAcks(cfg.RequiredAcks),
		Async:        cfg.Async,
		BatchTimeout: 50 * time.Millisecond,
	}}
}

func requiredAcks(s string) kgo.RequiredAcks {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return kgo.RequireNone
	case "all":
		return kgo.RequireAll
	}
	return kgo.RequireOne
}

// WriteJSON publishes v under key. Messages with the same key land on the
// same partition.
func (wr *writer) WriteJSON(ctx context.Context, key string, v any) error {
	b, err := marshal(v)
	if err != nil {
		return err
	}
	return wr.w.WriteMessages(ctx, kgo.Message{Key: []byte(key), Value: b, Time: time.Now()})
}

func (wr *writer) Close() error { return wr.w.Close() }

func marshal(v any) ([]byte, error) {
	if b, ok := v.([]byte); ok {
		return b, nil
	}
	return json.Marshal(v)
}

type nop struct{}

// Nop discards every message.
func Nop() Writer { return nop{} }

func (nop) WriteJSON(context.Context, string, any) error { return nil }
func (nop) Close() error                                 { return nil }
