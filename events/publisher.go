package events

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/taskmgr/tasks/task"
)

// Type identifies a task lifecycle event.
type Type string

const (
	// TaskCreated is published after a new task has been stored.
	TaskCreated Type = "task.created"

	// TaskClosed is published after a task has been stored as CLOSED.
	TaskClosed Type = "task.closed"
)

// Event is the message body published for every lifecycle change.
type Event struct {
	Type      Type       `json:"type"`
	Task      *task.Task `json:"task"`
	Timestamp time.Time  `json:"timestamp"`
}

type sqsClient interface {
	GetQueueUrl(ctx context.Context, params *sqs.GetQueueUrlInput, optFns ...func(*sqs.Options)) (*sqs.GetQueueUrlOutput, error)
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Publisher sends task events to a single SQS queue.
//
// Create a Publisher with [New] and call [Publisher.Init] once before
// publishing. Init is not thread-safe; Publish is safe for concurrent use
// after Init returns.
type Publisher struct {
	client      sqsClient
	queue       string
	queueURL    string
	awsCfg      *aws.Config
	opts        *Options
	logger      *slog.Logger
	initialized bool
}

// New creates a Publisher for the given queue. The queue is either a full
// queue URL or a queue name, which is resolved to a URL by [Publisher.Init].
//
// New does not connect to AWS.
func New(awsCfg *aws.Config, queue string, opts ...Option) *Publisher {
	options := newOptions()

	for _, o := range opts {
		o(options)
	}

	return &Publisher{
		awsCfg: awsCfg,
		queue:  queue,
		opts:   options,
	}
}

// Init validates the options, constructs the SQS client and resolves the
// queue URL. It returns the receiver so that initialization can be chained
// with [New]:
//
//	publisher, err := events.New(&awsCfg, "task-events.fifo").Init(ctx)
//
// Init is idempotent. It is not thread-safe and must be called once during
// application startup before any concurrent access.
func (p *Publisher) Init(ctx context.Context) (*Publisher, error) {
	if p.initialized {
		return p, nil
	}

	if p.queue == "" {
		return nil, errors.New("SQS queue cannot be empty")
	}

	if err := p.opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid SQS options: %w", err)
	}

	// Use injected client if provided (for testing), otherwise create real client
	if p.opts.sqsClient != nil {
		p.client = p.opts.sqsClient
	} else {
		if p.awsCfg == nil {
			return nil, errors.New("AWS config cannot be nil")
		}

		p.client = sqs.NewFromConfig(*p.awsCfg, func(o *sqs.Options) {
			o.Retryer = retry.AddWithMaxBackoffDelay(o.Retryer, p.opts.sqsAPIMaxRetryBackoffDelay)
			o.Retryer = retry.AddWithMaxAttempts(o.Retryer, p.opts.sqsAPIMaxRetryAttempts)

			if p.opts.endpoint != "" {
				o.BaseEndpoint = aws.String(p.opts.endpoint)
			}
		})
	}

	if isQueueURL(p.queue) {
		p.queueURL = p.queue
	} else {
		resp, err := p.client.GetQueueUrl(ctx, &sqs.GetQueueUrlInput{QueueName: aws.String(p.queue)})
		if err != nil {
			return nil, fmt.Errorf("failed to get SQS queue URL for %s: %w", p.queue, err)
		}

		p.queueURL = aws.ToString(resp.QueueUrl)
	}

	p.logger = p.opts.logger.With("component", "events", "queue", p.queueURL)
	p.initialized = true

	return p, nil
}

// QueueURL returns the resolved queue URL. It is empty before Init.
func (p *Publisher) QueueURL() string {
	return p.queueURL
}

// Publish marshals an [Event] for t as JSON and sends it to the queue. The
// event is timestamped with the publisher's clock.
//
// Publish requires [Publisher.Init] to have been called successfully.
func (p *Publisher) Publish(ctx context.Context, eventType Type, t *task.Task) error {
	if !p.initialized {
		return errors.New("SQS publisher not initialized")
	}

	if t == nil {
		return errors.New("task cannot be nil")
	}

	event := &Event{
		Type:      eventType,
		Task:      t,
		Timestamp: p.opts.clock().UTC(),
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", eventType, err)
	}

	if strings.HasSuffix(p.queueURL, ".fifo") {
		groupID := t.Owner
		dedupID := hash(string(eventType), t.ID.String(), t.Owner, event.Timestamp.Format(time.RFC3339Nano))

		return p.sendToFifoQueue(ctx, groupID, dedupID, string(body))
	}

	return p.sendToStdQueue(ctx, string(body))
}

func (p *Publisher) sendToFifoQueue(ctx context.Context, groupID, dedupID, body string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:               &p.queueURL,
		MessageGroupId:         &groupID,
		MessageDeduplicationId: &dedupID,
		MessageBody:            &body,
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send SQS message: %w", err)
	}

	p.logger.Debug("Event sent to FIFO SQS queue", "group_id", groupID, "dedup_id", dedupID)

	return nil
}

func (p *Publisher) sendToStdQueue(ctx context.Context, body string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    &p.queueURL,
		MessageBody: &body,
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("failed to send SQS message: %w", err)
	}

	p.logger.Debug("Event sent to standard SQS queue")

	return nil
}

// Noop discards every event. It is used when no queue is configured.
type Noop struct{}

// Publish does nothing and returns nil.
func (Noop) Publish(context.Context, Type, *task.Task) error {
	return nil
}

func isQueueURL(queue string) bool {
	return strings.HasPrefix(queue, "https://") || strings.HasPrefix(queue, "http://")
}

func hash(input ...string) string {
	h := sha256.New()

	for _, s := range input {
		h.Write([]byte(s))
		h.Write([]byte{0}) // null byte delimiter to prevent hash collisions
	}

	return base64.URLEncoding.EncodeToString(h.Sum(nil))
}
