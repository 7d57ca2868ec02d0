package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"orderflow/cmd"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/log"
	"github.com/spf13/cobra"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "orderflow",
		Short:         "Order lifecycle and negotiation workflow engine",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			loadDotEnv()
		},
	}

	root.AddCommand(
		serveCmd(),
		migrateCmd(),
		tickCmd(),
		releaseQuarantineCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(c *cobra.Command, _ []string) {
				fmt.Fprintf(c.OutOrStdout(), "orderflow %s (build: %s)\n", Version, BuildTime)
			},
		},
	)
	return root
}

// loadDotEnv reads .env into the environment. Variables already set win,
// and a missing file is fine.
func loadDotEnv() {
	err := godotenv.Load(".env")
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Error loading .env file: %v", err)
	}
}

func getConfigs() cmd.Config {
	return cmd.Config{
		HTTPPort:              envOr("HTTP_PORT", "8080"),
		DBHost:                os.Getenv("DB_HOST"),
		DBPort:                envOr("DB_PORT", "5432"),
		DBUser:                os.Getenv("DB_USER"),
		DBPassword:            os.Getenv("DB_PASSWORD"),
		DBName:                os.Getenv("DB_NAME"),
		DBSslMode:             envOr("DB_SSLMODE", "disable"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		PaymentServiceURL:     os.Getenv("PAYMENT_SERVICE_URL"),
		PaymentTimeout:        os.Getenv("PAYMENT_TIMEOUT"),
		EventBroker:           envOr("EVENT_BROKER", cmd.BrokerKafka),
		KafkaHost:             os.Getenv("KAFKA_HOST"),
		KafkaOrderEventsTopic: envOr("KAFKA_ORDER_EVENTS_TOPIC", "order.events"),
		RabbitMQURL:           os.Getenv("RABBITMQ_URL"),
		RabbitMQExchange:      envOr("RABBITMQ_EXCHANGE", "orders"),
		PolicyFile:            os.Getenv("POLICY_FILE"),
		LogFormat:             envOr("LOG_FORMAT", "text"),
		LogLevel:              envOr("LOG_LEVEL", "info"),
	}
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func newLogger(configs cmd.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(configs.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler = slog.NewTextHandler(os.Stderr, opts)
	if configs.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func openDB(configs cmd.Config) (*gorm.DB, error) {
	return gorm.Open(gorm_postgres.Open(configs.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
}

// bootstrap loads configuration and builds the composition root shared by
// every command that touches orders.
func bootstrap() (*cmd.CompositionRoot, cmd.Config, *slog.Logger, func(), error) {
	configs := getConfigs()
	logger := newLogger(configs)

	settings, err := cmd.LoadSettings(configs.PolicyFile)
	if err != nil {
		return nil, configs, nil, nil, err
	}
	db, err := openDB(configs)
	if err != nil {
		return nil, configs, nil, nil, err
	}
	closeDB := func() {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
	}

	root, err := cmd.NewCompositionRoot(configs, settings, db, logger)
	if err != nil {
		closeDB()
		return nil, configs, nil, nil, err
	}
	return root, configs, logger, closeDB, nil
}

func commandContext(c *cobra.Command) context.Context {
	if ctx := c.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
