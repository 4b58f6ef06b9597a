package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/taskmgr/tasks/task"
	"golang.org/x/sync/errgroup"
)

const (
	// GSI1 is the name of the Global Secondary Index used to list an owner's
	// tasks by status. Partition key: GS1PK, sort key: GS1SK, projection: ALL.
	GSI1 = "GS1"

	// PartitionKey is the DynamoDB partition key attribute name.
	PartitionKey = "PK"

	// SortKey is the DynamoDB sort key attribute name.
	SortKey = "SK"

	// IndexPartitionKey is the partition key attribute of [GSI1].
	IndexPartitionKey = "GS1PK"

	// IndexSortKey is the sort key attribute of [GSI1].
	IndexSortKey = "GS1SK"

	// IDAttr is the payload attribute holding the task id.
	IDAttr = "id"

	// TitleAttr is the payload attribute holding the task title.
	TitleAttr = "title"

	// OwnerAttr is the payload attribute holding the task owner.
	OwnerAttr = "owner"

	// StatusAttr is the payload attribute holding the task status.
	StatusAttr = "status"

	// maxBackoff is the maximum backoff duration for retry loops.
	maxBackoff = 2 * time.Second

	// batchWriteLimit is the DynamoDB BatchWriteItem request limit.
	batchWriteLimit = 25

	// maxConcurrentBatches bounds the parallel batch deletes in DropAllData.
	maxConcurrentBatches = 4

	// tableWaitTimeout bounds how long CreateTable and DeleteTable wait for
	// the table to reach its target state.
	tableWaitTimeout = 2 * time.Minute
)

var (
	// ErrNotFound is returned by [Client.GetByID] when no task exists for the
	// requested owner and id. A task owned by someone else is not found.
	ErrNotFound = errors.New("task not found")

	// ErrMalformedRecord is returned when a stored item cannot be decoded into
	// a task. It is never skipped: a single corrupt item fails a whole listing.
	ErrMalformedRecord = errors.New("malformed task record")
)

// Client is the DynamoDB-backed task store. It uses a single-table design
// with one Global Secondary Index ([GSI1]) for the per-status listings.
//
// Use [New] to create a Client and [Client.Connect] to initialize the
// underlying DynamoDB connection. [Client.Init] validates the table schema.
type Client struct {
	client    API
	tableName string
	awsCfg    *aws.Config
	opts      *Options
	logger    *slog.Logger
}

// New creates a new Client configured with the given AWS config, table name,
// and optional options. Call [Client.Connect] on the returned client before use.
func New(awsCfg *aws.Config, tableName string, opts ...Option) *Client {
	options := newOptions()

	for _, o := range opts {
		o(options)
	}

	return &Client{
		awsCfg:    awsCfg,
		tableName: tableName,
		opts:      options,
	}
}

// Connect initializes the DynamoDB client from the AWS config provided to [New].
// It must be called before any other Client methods, and must complete before
// the Client is used concurrently.
func (c *Client) Connect() error {
	if c.tableName == "" {
		return errors.New("table name cannot be empty")
	}

	if err := c.opts.validate(); err != nil {
		return fmt.Errorf("invalid DynamoDB options: %w", err)
	}

	c.logger = c.opts.logger.With("component", "dynamodb", "table", c.tableName)

	// Use injected DynamoDB API if provided (useful for testing).
	if c.opts.dynamoDBAPI != nil {
		c.client = c.opts.dynamoDBAPI
		return nil
	}

	if c.awsCfg == nil {
		return errors.New("AWS config cannot be nil")
	}

	c.client = dynamodb.NewFromConfig(*c.awsCfg, func(o *dynamodb.Options) {
		if c.opts.endpoint != "" {
			o.BaseEndpoint = aws.String(c.opts.endpoint)
		}
	})

	return nil
}

// TableName returns the name of the table the Client reads and writes.
func (c *Client) TableName() string {
	return c.tableName
}

// Init validates the DynamoDB table schema. It checks that the table exists
// and is active, has the partition key PK and sort key SK, and that the [GSI1]
// index is present, active, keyed on GS1PK/GS1SK and projects all attributes.
//
// Pass skipSchemaValidation true to skip all checks and return immediately,
// which is useful when schema validation is managed separately.
func (c *Client) Init(ctx context.Context, skipSchemaValidation bool) error {
	if skipSchemaValidation {
		return nil
	}

	input := &dynamodb.DescribeTableInput{
		TableName: aws.String(c.tableName),
	}

	response, err := c.client.DescribeTable(ctx, input)
	if err != nil {
		var notFoundError *dynamodbtypes.ResourceNotFoundException
		if errors.As(err, &notFoundError) {
			return fmt.Errorf("table %s does not exist", c.tableName)
		}
		return fmt.Errorf("failed to describe table %s: %w", c.tableName, err)
	}

	if response.Table == nil {
		return fmt.Errorf("table %s has no description", c.tableName)
	}

	if len(response.Table.KeySchema) < 1 {
		return fmt.Errorf("table %s has no key schema", c.tableName)
	}

	if aws.ToString(response.Table.KeySchema[0].AttributeName) != PartitionKey {
		return fmt.Errorf("table %s has partition key %s, expected %s", c.tableName, aws.ToString(response.Table.KeySchema[0].AttributeName), PartitionKey)
	}

	if len(response.Table.KeySchema) < 2 {
		return fmt.Errorf("table %s has a simple primary key, expected composite", c.tableName)
	}

	if aws.ToString(response.Table.KeySchema[1].AttributeName) != SortKey {
		return fmt.Errorf("table %s has sort key %s, expected %s", c.tableName, aws.ToString(response.Table.KeySchema[1].AttributeName), SortKey)
	}

	if response.Table.TableStatus != dynamodbtypes.TableStatusActive {
		return fmt.Errorf("table %s is not active (status: %s)", c.tableName, response.Table.TableStatus)
	}

	return verifySecondaryIndex(response.Table, GSI1, IndexPartitionKey, IndexSortKey)
}

// CreateTable creates the task table with its key schema and the [GSI1]
// index, using on-demand billing, and waits until the table is active.
// It is intended for local and test environments; production tables are
// expected to be provisioned separately.
func (c *Client) CreateTable(ctx context.Context) error {
	input := &dynamodb.CreateTableInput{
		TableName: aws.String(c.tableName),
		AttributeDefinitions: []dynamodbtypes.AttributeDefinition{
			{AttributeName: aws.String(PartitionKey), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String(SortKey), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String(IndexPartitionKey), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
			{AttributeName: aws.String(IndexSortKey), AttributeType: dynamodbtypes.ScalarAttributeTypeS},
		},
		KeySchema: []dynamodbtypes.KeySchemaElement{
			{AttributeName: aws.String(PartitionKey), KeyType: dynamodbtypes.KeyTypeHash},
			{AttributeName: aws.String(SortKey), KeyType: dynamodbtypes.KeyTypeRange},
		},
		BillingMode: dynamodbtypes.BillingModePayPerRequest,
		GlobalSecondaryIndexes: []dynamodbtypes.GlobalSecondaryIndex{
			{
				IndexName: aws.String(GSI1),
				KeySchema: []dynamodbtypes.KeySchemaElement{
					{AttributeName: aws.String(IndexPartitionKey), KeyType: dynamodbtypes.KeyTypeHash},
					{AttributeName: aws.String(IndexSortKey), KeyType: dynamodbtypes.KeyTypeRange},
				},
				Projection: &dynamodbtypes.Projection{
					ProjectionType: dynamodbtypes.ProjectionTypeAll,
				},
			},
		},
	}

	if _, err := c.client.CreateTable(ctx, input); err != nil {
		return fmt.Errorf("failed to create DynamoDB table %s: %w", c.tableName, err)
	}

	waiter := dynamodb.NewTableExistsWaiter(c.client)

	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(c.tableName)}, tableWaitTimeout); err != nil {
		return fmt.Errorf("failed waiting for DynamoDB table %s to become active: %w", c.tableName, err)
	}

	c.logger.Info("Created table")

	return nil
}

// DeleteTable deletes the task table and waits until it is gone. It is a
// no-op if the table does not exist.
//
// This method is intended for local and test environments only.
func (c *Client) DeleteTable(ctx context.Context) error {
	input := &dynamodb.DeleteTableInput{
		TableName: aws.String(c.tableName),
	}

	if _, err := c.client.DeleteTable(ctx, input); err != nil {
		var notFoundError *dynamodbtypes.ResourceNotFoundException
		if errors.As(err, &notFoundError) {
			return nil
		}
		return fmt.Errorf("failed to delete DynamoDB table %s: %w", c.tableName, err)
	}

	waiter := dynamodb.NewTableNotExistsWaiter(c.client)

	if err := waiter.Wait(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(c.tableName)}, tableWaitTimeout); err != nil {
		return fmt.Errorf("failed waiting for DynamoDB table %s to be deleted: %w", c.tableName, err)
	}

	c.logger.Info("Deleted table")

	return nil
}

// DropAllData deletes every item from the DynamoDB table. It scans the table
// in pages and removes each page using BatchWriteItem, with exponential
// backoff for unprocessed items. The batches of one page are deleted in
// parallel.
//
// This method is intended for use in tests only. Do not call it in production.
func (c *Client) DropAllData(ctx context.Context) error {
	input := &dynamodb.ScanInput{
		TableName:            aws.String(c.tableName),
		ProjectionExpression: aws.String(PartitionKey + ", " + SortKey),
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		output, err := c.client.Scan(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to scan DynamoDB table %s: %w", c.tableName, err)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrentBatches)

		for i := 0; i < len(output.Items); i += batchWriteLimit {
			end := min(i+batchWriteLimit, len(output.Items))
			batch := output.Items[i:end]

			g.Go(func() error {
				return c.deleteBatch(gctx, batch)
			})
		}

		if err := g.Wait(); err != nil {
			return err
		}

		if len(output.LastEvaluatedKey) == 0 {
			break
		}

		input.ExclusiveStartKey = output.LastEvaluatedKey
	}

	return nil
}

func (c *Client) deleteBatch(ctx context.Context, batch []map[string]dynamodbtypes.AttributeValue) error {
	requestItems := make([]dynamodbtypes.WriteRequest, 0, len(batch))

	for _, item := range batch {
		requestItems = append(requestItems, dynamodbtypes.WriteRequest{
			DeleteRequest: &dynamodbtypes.DeleteRequest{
				Key: map[string]dynamodbtypes.AttributeValue{
					PartitionKey: item[PartitionKey],
					SortKey:      item[SortKey],
				},
			},
		})
	}

	batchInput := &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]dynamodbtypes.WriteRequest{
			c.tableName: requestItems,
		},
	}

	// Retry with exponential backoff for unprocessed items.
	const maxRetries = 5
	backoff := 50 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		batchResult, err := c.client.BatchWriteItem(ctx, batchInput)
		if err != nil {
			return fmt.Errorf("failed to batch delete items from DynamoDB table %s: %w", c.tableName, err)
		}

		if len(batchResult.UnprocessedItems) == 0 {
			return nil
		}

		if attempt == maxRetries {
			return fmt.Errorf("%d unprocessed items after %d retries in DropAllData",
				len(batchResult.UnprocessedItems[c.tableName]), maxRetries)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff = min(backoff*2, maxBackoff)
		batchInput.RequestItems = batchResult.UnprocessedItems
	}

	return nil
}

// Add persists a task, inserting it or replacing the stored item with the
// same owner and id. Both creating and closing a task go through Add. The
// index sort key is stamped with the current UTC time.
//
// The write is immediately visible to [Client.GetByID]. The listings read
// [GSI1] and observe it eventually.
func (c *Client) Add(ctx context.Context, t *task.Task) error {
	if t == nil {
		return errors.New("task cannot be nil")
	}

	if err := t.Validate(); err != nil {
		return err
	}

	item, err := encodeTask(t, c.opts.clock())
	if err != nil {
		return err
	}

	input := &dynamodb.PutItemInput{
		TableName: &c.tableName,
		Item:      item,
	}

	if _, err = c.client.PutItem(ctx, input); err != nil {
		return fmt.Errorf("failed to write task to DynamoDB table %s: %w", c.tableName, err)
	}

	c.logger.Debug("Saved task", "task_id", t.ID.String(), "status", t.Status.String())

	return nil
}

// GetByID retrieves a task by its id and owner with a strongly consistent
// read. It returns [ErrNotFound] if no task with that id exists for the
// owner, including when the id belongs to a different owner.
func (c *Client) GetByID(ctx context.Context, id uuid.UUID, owner string) (*task.Task, error) {
	if id == uuid.Nil {
		return nil, errors.New("task ID cannot be empty")
	}

	if owner == "" {
		return nil, errors.New("owner cannot be empty")
	}

	getItemInput := &dynamodb.GetItemInput{
		TableName: &c.tableName,
		Key: map[string]dynamodbtypes.AttributeValue{
			PartitionKey: &dynamodbtypes.AttributeValueMemberS{Value: buildPartitionKey(owner)},
			SortKey:      &dynamodbtypes.AttributeValueMemberS{Value: buildSortKey(id)},
		},
		ConsistentRead: aws.Bool(true),
	}

	output, err := c.client.GetItem(ctx, getItemInput)
	if err != nil {
		return nil, fmt.Errorf("failed to get task from DynamoDB table %s: %w", c.tableName, err)
	}

	if len(output.Item) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	return decodeTask(output.Item)
}

// ListOpen returns every OPEN task of the owner, in index order (roughly the
// order in which they were last written). It returns an empty slice if the
// owner has no open tasks. Results are eventually consistent.
func (c *Client) ListOpen(ctx context.Context, owner string) ([]*task.Task, error) {
	return c.listByStatus(ctx, owner, task.StatusOpen)
}

// ListClosed returns every CLOSED task of the owner, in index order. It
// returns an empty slice if the owner has no closed tasks. Results are
// eventually consistent.
func (c *Client) ListClosed(ctx context.Context, owner string) ([]*task.Task, error) {
	return c.listByStatus(ctx, owner, task.StatusClosed)
}

// listByStatus queries one [GSI1] partition and follows LastEvaluatedKey until
// DynamoDB stops returning it. A failed page aborts the listing.
func (c *Client) listByStatus(ctx context.Context, owner string, status task.Status) ([]*task.Task, error) {
	if owner == "" {
		return nil, errors.New("owner cannot be empty")
	}

	queryInput := &dynamodb.QueryInput{
		TableName: &c.tableName,
		IndexName: aws.String(GSI1),
		ExpressionAttributeValues: map[string]dynamodbtypes.AttributeValue{
			":gs1pk": &dynamodbtypes.AttributeValueMemberS{Value: buildIndexPartitionKey(owner, status)},
		},
		KeyConditionExpression: aws.String(IndexPartitionKey + " = :gs1pk"),
	}

	if c.opts.pageSize > 0 {
		queryInput.Limit = aws.Int32(c.opts.pageSize)
	}

	tasks := make([]*task.Task, 0)
	pages := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		output, err := c.client.Query(ctx, queryInput)
		if err != nil {
			return nil, fmt.Errorf("failed to query DynamoDB table %s: %w", c.tableName, err)
		}

		pages++

		for _, item := range output.Items {
			t, err := decodeTask(item)
			if err != nil {
				return nil, err
			}

			tasks = append(tasks, t)
		}

		// No LastEvaluatedKey means the partition has been read to the end.
		if len(output.LastEvaluatedKey) == 0 {
			break
		}

		queryInput.ExclusiveStartKey = output.LastEvaluatedKey
	}

	c.logger.Debug("Listed tasks", "status", status.String(), "count", len(tasks), "pages", pages)

	return tasks, nil
}

func verifySecondaryIndex(table *dynamodbtypes.TableDescription, indexName, partitionKey, sortKey string) error {
	for _, index := range table.GlobalSecondaryIndexes {
		if aws.ToString(index.IndexName) != indexName {
			continue
		}

		if len(index.KeySchema) < 1 {
			return fmt.Errorf("global secondary index %s has no key schema", indexName)
		}

		if aws.ToString(index.KeySchema[0].AttributeName) != partitionKey {
			return fmt.Errorf("global secondary index %s has partition key %s, expected %s", indexName, aws.ToString(index.KeySchema[0].AttributeName), partitionKey)
		}

		if len(index.KeySchema) != 2 {
			return fmt.Errorf("global secondary index %s has a simple primary key, expected a composite primary key", indexName)
		}

		if aws.ToString(index.KeySchema[1].AttributeName) != sortKey {
			return fmt.Errorf("global secondary index %s has sort key %s, expected %s", indexName, aws.ToString(index.KeySchema[1].AttributeName), sortKey)
		}

		if index.IndexStatus != dynamodbtypes.IndexStatusActive {
			return fmt.Errorf("global secondary index %s is not active (status: %s)", indexName, index.IndexStatus)
		}

		if index.Projection == nil || index.Projection.ProjectionType != dynamodbtypes.ProjectionTypeAll {
			return fmt.Errorf("global secondary index %s must project all attributes", indexName)
		}

		return nil
	}

	return fmt.Errorf("global secondary index %s not found", indexName)
}
