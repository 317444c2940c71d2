package bus

import (
	"log"
	"strings"
)

// New creates a Broker from configuration. A non-empty brokers list selects
// Kafka; otherwise the in-memory broker serves single-node deployments.
func New(kafkaBrokers, consumerGroup string) (Broker, error) {
	if kafkaBrokers != "" {
		brokers := strings.Split(kafkaBrokers, ",")
		log.Printf("bus: using KafkaBroker with brokers=%v group=%s", brokers, consumerGroup)
		return NewKafkaBroker(KafkaConfig{
			Brokers:       brokers,
			ConsumerGroup: consumerGroup,
		})
	}

	log.Println("bus: using InMemoryBroker (KAFKA_BROKERS not set)")
	return NewInMemoryBroker(), nil
}
