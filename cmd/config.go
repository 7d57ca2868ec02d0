package cmd

import (
	"fmt"
	"strings"
)

// Config is read from the environment, with .env as a fallback.
type Config struct {
	HTTPPort   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSslMode  string

	JWTSecret         string
	PaymentServiceURL string
	PaymentTimeout    string

	// EventBroker selects the outbox publisher: "kafka" or "rabbitmq".
	EventBroker           string
	KafkaHost             string
	KafkaOrderEventsTopic string
	RabbitMQURL           string
	RabbitMQExchange      string

	PolicyFile string
	LogFormat  string
	LogLevel   string
}

const (
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
)

// DSN is the libpq connection string shared by gorm and goose.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSslMode)
}

// KafkaBrokers splits KafkaHost on commas.
func (c Config) KafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KafkaHost, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
