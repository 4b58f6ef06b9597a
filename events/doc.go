// Package events publishes task lifecycle notifications to an Amazon SQS
// queue.
//
// Every successful create and close produces one [Event]. The message body is
// the JSON encoding of the event:
//
//	{"type":"task.created","task":{"id":"…","title":"…","status":"OPEN","owner":"…"},"timestamp":"…"}
//
// # Queue types
//
// The queue type is detected from the queue URL. For FIFO queues (URL ends
// with ".fifo") the message group ID is the task owner, so events of one owner
// are delivered in order, and the deduplication ID is a SHA-256 hash of the
// event type, task id, owner and timestamp. Standard queues receive the body
// only.
//
// # Getting Started
//
//	publisher, err := events.New(&awsCfg, queueURL, events.WithLogger(logger)).Init(ctx)
//	if err != nil {
//		return err
//	}
//
//	err = publisher.Publish(ctx, events.TaskCreated, t)
//
// When no queue is configured, use [Noop] instead.
package events
