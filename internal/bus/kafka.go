package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds configuration for the Kafka broker.
type KafkaConfig struct {
	Brokers       []string // broker addresses
	ConsumerGroup string   // consumer group id
}

// KafkaBroker implements Broker using Apache Kafka via segmentio/kafka-go.
type KafkaBroker struct {
	config  KafkaConfig
	writer  *kafka.Writer
	mu      sync.Mutex
	readers map[string]*kafkaSubscription
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
}

type kafkaSubscription struct {
	id      string
	reader  *kafka.Reader
	handler Handler
	cancel  context.CancelFunc
}

// NewKafkaBroker creates a KafkaBroker with a shared producer and
// per-subscription consumers. Call Close() to stop everything.
func NewKafkaBroker(config KafkaConfig) (*KafkaBroker, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker address is required")
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "notiproof-events"
	}

	ctx, cancel := context.WithCancel(context.Background())

	writer := &kafka.Writer{
		Addr:         kafka.TCP(config.Brokers...),
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		Async:        false,
	}

	return &KafkaBroker{
		config:  config,
		writer:  writer,
		readers: make(map[string]*kafkaSubscription),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Publish serializes the message to JSON and writes it to the Kafka topic.
func (b *KafkaBroker) Publish(topic string, msg Message) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("broker is closed")
	}
	b.mu.Unlock()

	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	kmsg := kafka.Message{
		Topic: topic,
		Key:   []byte(msg.ID),
		Value: value,
	}

	if err := b.writer.WriteMessages(b.ctx, kmsg); err != nil {
		return fmt.Errorf("write to kafka: %w", err)
	}
	return nil
}

// Subscribe starts a consumer goroutine for the topic.
func (b *KafkaBroker) Subscribe(topic string, handler Handler) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", fmt.Errorf("broker is closed")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  b.config.Brokers,
		GroupID:  b.config.ConsumerGroup,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})

	ctx, cancel := context.WithCancel(b.ctx)
	sub := &kafkaSubscription{
		id:      uuid.New().String(),
		reader:  reader,
		handler: handler,
		cancel:  cancel,
	}
	b.readers[sub.id] = sub

	go b.consume(ctx, sub)
	log.Printf("bus: kafka consumer subscribed to %s", topic)
	return sub.id, nil
}

func (b *KafkaBroker) consume(ctx context.Context, sub *kafkaSubscription) {
	for {
		kmsg, err := sub.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("bus: kafka read error: %v", err)
			continue
		}

		var msg Message
		if err := json.Unmarshal(kmsg.Value, &msg); err != nil {
			log.Printf("bus: skipping undecodable message on %s: %v", kmsg.Topic, err)
			continue
		}
		sub.handler(msg)
	}
}

// Close stops the producer and all consumers.
func (b *KafkaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	b.cancel()

	for _, sub := range b.readers {
		sub.cancel()
		if err := sub.reader.Close(); err != nil {
			log.Printf("bus: close kafka reader: %v", err)
		}
	}
	return b.writer.Close()
}
