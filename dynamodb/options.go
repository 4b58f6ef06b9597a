package dynamodb

import (
	"errors"
	"log/slog"
	"time"
)

// Option is a functional option for configuring a [Client].
type Option func(*Options)

// Options holds the configuration for a [Client]. Use [Option] functions
// (such as [WithEndpoint] or [WithPageSize]) to customise the defaults.
type Options struct {
	endpoint    string
	pageSize    int32
	dynamoDBAPI API
	clock       func() time.Time
	logger      *slog.Logger
}

func newOptions() *Options {
	return &Options{
		clock:  time.Now,
		logger: slog.New(slog.DiscardHandler),
	}
}

func (o *Options) validate() error {
	if o.pageSize < 0 {
		return errors.New("page size cannot be negative")
	}

	if o.clock == nil {
		return errors.New("clock cannot be nil")
	}

	if o.logger == nil {
		return errors.New("logger cannot be nil")
	}

	return nil
}

// WithEndpoint sets an alternate DynamoDB endpoint, such as a DynamoDB Local
// instance used in development and tests. The value is passed unchanged to
// the AWS SDK. The default is the regional AWS endpoint.
func WithEndpoint(endpoint string) Option {
	return func(o *Options) {
		o.endpoint = endpoint
	}
}

// WithPageSize sets the maximum number of items evaluated per index query
// page. Zero, the default, leaves the page size to DynamoDB (1 MB of data).
// Listing always reads every page regardless of this setting.
func WithPageSize(n int32) Option {
	return func(o *Options) {
		o.pageSize = n
	}
}

// WithAPI sets a custom [API] implementation. This is useful when a custom
// DynamoDB configuration is required, or for injecting mocks in tests.
func WithAPI(api API) Option {
	return func(o *Options) {
		o.dynamoDBAPI = api
	}
}

// WithClock sets a custom clock function used to stamp the index sort key.
// Defaults to [time.Now]. This is useful for controlling time in tests.
func WithClock(clock func() time.Time) Option {
	return func(o *Options) {
		o.clock = clock
	}
}

// WithLogger sets the logger used for debug output. By default nothing is
// logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.logger = logger
	}
}
