package config

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"
)

var RabbitMQ *amqp.Connection

const (
	rabbitMaxRetries = 10
	rabbitRetryDelay = 3 * time.Second
)

// InitRabbitMQ RabbitMQ with retry logic
func InitRabbitMQ(cfg AppConfig) error {
	url := cfg.RabbitMQURL()
	if url == "" {
		return fmt.Errorf("RabbitMQ not configured")
	}

	var err error
	for i := 0; i < rabbitMaxRetries; i++ {
		var conn *amqp.Connection
		conn, err = amqp.Dial(url)
		if err == nil {
			RabbitMQ = conn
			log.Infof("Successfully connected to RabbitMQ at %s", cfg.RabbitMQHost)
			return nil
		}

		if i < rabbitMaxRetries-1 {
			log.Warnf("Failed to connect to RabbitMQ (attempt %d/%d): %v. Retrying in %v...", i+1, rabbitMaxRetries, err, rabbitRetryDelay)
			time.Sleep(rabbitRetryDelay)
		}
	}

	return fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", rabbitMaxRetries, err)
}

// declareQueue declares a durable queue on ch
func declareQueue(ch *amqp.Channel, queueName string) (amqp.Queue, error) {
	return ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
}
