package app

import (
	"github.com/sirupsen/logrus"

	"delivery/internal/config"
	"delivery/internal/events"
)

// NewEventPublisher returns the Kafka publisher when enabled, otherwise a
// publisher that drops events.
func NewEventPublisher(cfg config.KafkaConfig, log logrus.FieldLogger) (events.Publisher, error) {
	if !cfg.Enabled {
		log.Info("Kafka disabled, delivery events will not be published")
		return events.NoopPublisher{}, nil
	}

	publisher, err := events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
	if err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"brokers": cfg.Brokers,
		"topic":   cfg.Topic,
	}).Info("Kafka producer created successfully")

	return publisher, nil
}
