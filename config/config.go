// Package config loads the service configuration from environment variables.
package config

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// Config holds all application configuration.
type Config struct {
	TableName        string        `json:"table_name"`
	DynamoDBURL      string        `json:"dynamodb_url"`
	AWSRegion        string        `json:"aws_region"`
	ServerPort       int           `json:"server_port"`
	LogLevel         string        `json:"log_level"`
	LogFormat        string        `json:"log_format"`
	ShutdownTimeout  time.Duration `json:"shutdown_timeout"`
	DynamoDBPageSize int           `json:"dynamodb_page_size"`
	EventsQueueURL   string        `json:"events_queue_url"`
}

// Load reads the configuration from the environment, applies defaults and
// validates the result. TABLE_NAME is the only required variable.
func Load() (*Config, error) {
	cfg := &Config{
		TableName:        getEnvString("TABLE_NAME", ""),
		DynamoDBURL:      getEnvString("DYNAMODB_URL", ""),
		AWSRegion:        getEnvString("AWS_REGION", "us-east-1"),
		ServerPort:       getEnvInt("PORT", 8080),
		LogLevel:         getEnvString("LOG_LEVEL", "INFO"),
		LogFormat:        getEnvString("LOG_FORMAT", "text"),
		ShutdownTimeout:  getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		DynamoDBPageSize: getEnvInt("DYNAMODB_PAGE_SIZE", 0),
		EventsQueueURL:   getEnvString("EVENTS_QUEUE_URL", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Address returns the server address in host:port format.
func (c *Config) Address() string {
	return fmt.Sprintf(":%d", c.ServerPort)
}

// LoadAWS resolves the AWS configuration through the SDK's default chain
// (environment, shared config files, instance roles) in the configured region.
func (c *Config) LoadAWS(ctx context.Context) (aws.Config, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(c.AWSRegion))
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return awsCfg, nil
}

// NewLogger builds the process logger. LOG_FORMAT selects JSON or text
// output and LOG_LEVEL the minimum level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: parseLevel(c.LogLevel)}

	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch level {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func (c *Config) validate() error {
	c.TableName = strings.TrimSpace(c.TableName)
	if c.TableName == "" {
		return errors.New("TABLE_NAME must be set")
	}

	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port %d: must be between 1 and 65535", c.ServerPort)
	}

	validLevels := map[string]bool{
		"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true,
	}
	upperLevel := strings.ToUpper(strings.TrimSpace(c.LogLevel))
	if !validLevels[upperLevel] {
		return fmt.Errorf("invalid log level '%s': must be DEBUG, INFO, WARN or ERROR", c.LogLevel)
	}
	c.LogLevel = upperLevel

	lowerFormat := strings.ToLower(strings.TrimSpace(c.LogFormat))
	if lowerFormat != "text" && lowerFormat != "json" {
		return fmt.Errorf("invalid log format '%s': must be text or json", c.LogFormat)
	}
	c.LogFormat = lowerFormat

	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout %v: must be positive", c.ShutdownTimeout)
	}
	if c.ShutdownTimeout > 5*time.Minute {
		return fmt.Errorf("invalid shutdown timeout %v: must not exceed 5 minutes", c.ShutdownTimeout)
	}

	if c.DynamoDBPageSize < 0 || c.DynamoDBPageSize > 1000 {
		return fmt.Errorf("invalid DynamoDB page size %d: must be between 0 and 1000", c.DynamoDBPageSize)
	}

	if strings.TrimSpace(c.AWSRegion) == "" {
		return errors.New("AWS region cannot be empty")
	}

	return nil
}
