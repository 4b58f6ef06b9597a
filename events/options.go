package events

import (
	"errors"
	"log/slog"
	"time"
)

// Option is a functional option for configuring a [Publisher].
// Options are passed to [New] and applied before [Publisher.Init] is called.
type Option func(*Options)

// Options holds the resolved configuration for a [Publisher].
type Options struct {
	endpoint                   string
	sqsAPIMaxRetryAttempts     int
	sqsAPIMaxRetryBackoffDelay time.Duration
	sqsClient                  sqsClient
	clock                      func() time.Time
	logger                     *slog.Logger
}

func newOptions() *Options {
	return &Options{
		sqsAPIMaxRetryAttempts:     3,
		sqsAPIMaxRetryBackoffDelay: 2 * time.Second,
		clock:                      time.Now,
		logger:                     slog.New(slog.DiscardHandler),
	}
}

func (o *Options) validate() error {
	if o.sqsAPIMaxRetryAttempts < 0 || o.sqsAPIMaxRetryAttempts > 10 {
		return errors.New("max SQS API retry attempts must be between 0 and 10")
	}

	if o.sqsAPIMaxRetryBackoffDelay < 100*time.Millisecond || o.sqsAPIMaxRetryBackoffDelay > 30*time.Second {
		return errors.New("max SQS API retry backoff delay must be between 100 milliseconds and 30 seconds")
	}

	if o.clock == nil {
		return errors.New("clock cannot be nil")
	}

	if o.logger == nil {
		return errors.New("logger cannot be nil")
	}

	return nil
}

// WithEndpoint sets an alternate SQS endpoint, such as a local emulator.
func WithEndpoint(endpoint string) Option {
	return func(o *Options) {
		o.endpoint = endpoint
	}
}

// WithSqsAPIMaxRetryAttempts sets the maximum number of retry attempts for
// failed SQS API calls. Must be between 0 and 10. Default: 3.
func WithSqsAPIMaxRetryAttempts(n int) Option {
	return func(o *Options) {
		o.sqsAPIMaxRetryAttempts = n
	}
}

// WithSqsAPIMaxRetryBackoffDelay sets the maximum backoff delay between
// consecutive SQS API retry attempts. Must be between 100 milliseconds and
// 30 seconds. Default: 2 seconds.
func WithSqsAPIMaxRetryBackoffDelay(d time.Duration) Option {
	return func(o *Options) {
		o.sqsAPIMaxRetryBackoffDelay = d
	}
}

// WithSQSClient replaces the default AWS SQS client with a custom
// implementation. This option is intended for testing with mock clients.
func WithSQSClient(client sqsClient) Option {
	return func(o *Options) {
		o.sqsClient = client
	}
}

// WithClock sets the clock used to timestamp events. Defaults to [time.Now].
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.clock = clock
	}
}

// WithLogger sets the logger. It is enriched with "component" and "queue"
// fields. By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}
