package dynamodb

import (
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/taskmgr/tasks/task"
)

// indexTimestampLayout is the ISO-8601 form used for GS1SK. It has no zone
// suffix; the value is always UTC.
const indexTimestampLayout = "2006-01-02T15:04:05.000000"

// record is the stored form of a task. The key attributes are derived from
// the payload; only the payload is read back.
type record struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	GS1PK  string `dynamodbav:"GS1PK"`
	GS1SK  string `dynamodbav:"GS1SK"`
	ID     string `dynamodbav:"id"`
	Title  string `dynamodbav:"title"`
	Owner  string `dynamodbav:"owner"`
	Status string `dynamodbav:"status"`
}

func newRecord(t *task.Task, writtenAt time.Time) *record {
	return &record{
		PK:     buildPartitionKey(t.Owner),
		SK:     buildSortKey(t.ID),
		GS1PK:  buildIndexPartitionKey(t.Owner, t.Status),
		GS1SK:  buildIndexSortKey(writtenAt),
		ID:     t.ID.String(),
		Title:  t.Title,
		Owner:  t.Owner,
		Status: t.Status.String(),
	}
}

func encodeTask(t *task.Task, writtenAt time.Time) (map[string]dynamodbtypes.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(newRecord(t, writtenAt))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task %s: %w", t.ID, err)
	}

	return item, nil
}

// decodeTask rebuilds a task from the payload attributes of an item. Any
// missing or unparsable payload field yields ErrMalformedRecord.
func decodeTask(item map[string]dynamodbtypes.AttributeValue) (*task.Task, error) {
	var rec record

	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedRecord, err)
	}

	if rec.ID == "" {
		return nil, fmt.Errorf("%w: missing %s attribute", ErrMalformedRecord, IDAttr)
	}

	if rec.Title == "" {
		return nil, fmt.Errorf("%w: missing %s attribute on task %s", ErrMalformedRecord, TitleAttr, rec.ID)
	}

	if rec.Owner == "" {
		return nil, fmt.Errorf("%w: missing %s attribute on task %s", ErrMalformedRecord, OwnerAttr, rec.ID)
	}

	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid task id %q: %w", ErrMalformedRecord, rec.ID, err)
	}

	status, err := task.ParseStatus(rec.Status)
	if err != nil {
		return nil, fmt.Errorf("%w: task %s: %w", ErrMalformedRecord, rec.ID, err)
	}

	return &task.Task{
		ID:     id,
		Title:  rec.Title,
		Status: status,
		Owner:  rec.Owner,
	}, nil
}

func buildPartitionKey(owner string) string {
	return "#" + owner
}

func buildSortKey(id uuid.UUID) string {
	return "#" + id.String()
}

func buildIndexPartitionKey(owner string, status task.Status) string {
	return "#" + owner + "#" + status.String()
}

func buildIndexSortKey(t time.Time) string {
	return "#" + t.UTC().Format(indexTimestampLayout)
}
