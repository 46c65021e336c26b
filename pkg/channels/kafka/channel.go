// Package kafka provides the Kafka-backed channel for multi-node deployments.
package kafka

import (
	"errors"
	"os"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
)

// Config carries the connection settings for a Kafka channel. Brokers is
// required; ConsumerGroup defaults to "cg-" plus the service name.
type Config struct {
	Brokers       []string
	ConsumerGroup string
}

// ConfigFromEnv reads the broker list from KAFKA_BROKERS.
func ConfigFromEnv(serviceName string) (Config, error) {
	brokers := strings.Split(os.Getenv("KAFKA_BROKERS"), ",")
	if len(brokers) == 0 || brokers[0] == "" {
		return Config{}, errors.New("KAFKA_BROKERS environment variable is not set or empty")
	}

	return Config{Brokers: brokers, ConsumerGroup: "cg-" + serviceName}, nil
}

// CreateChannel builds the publisher and subscriber pair used by the event
// bus. Subscribers start from the oldest offset so touch events queued while
// a node was down are not lost.
func CreateChannel(logger watermill.LoggerAdapter, serviceName string) (*kafka.Publisher, *kafka.Subscriber, error) {
	cfg, err := ConfigFromEnv(serviceName)
	if err != nil {
		return nil, nil, err
	}

	subscriber, err := newSubscriber(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := newPublisher(cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	return publisher, subscriber, nil
}

func newSubscriber(cfg Config, logger watermill.LoggerAdapter) (*kafka.Subscriber, error) {
	saramaConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	return kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               cfg.Brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
			ConsumerGroup:         cfg.ConsumerGroup,
		},
		logger,
	)
}

func newPublisher(cfg Config, logger watermill.LoggerAdapter) (*kafka.Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true

	return kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               cfg.Brokers,
			Marshaler:             kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaConfig,
		},
		logger,
	)
}
