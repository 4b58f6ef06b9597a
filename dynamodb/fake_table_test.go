package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamodbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// fakeTable is an in-memory table with the task key schema. Queries against
// GSI1 honour Limit and ExclusiveStartKey the way DynamoDB does, including
// returning a LastEvaluatedKey when a page ends exactly at the end of the
// partition. Overwriting an item moves it between index partitions.
type fakeTable struct {
	mu         sync.Mutex
	items      map[string]map[string]dynamodbtypes.AttributeValue
	queryCalls int
	failQuery  func(call int) error
}

var _ API = (*fakeTable)(nil)

func newFakeTable() *fakeTable {
	return &fakeTable{
		items: make(map[string]map[string]dynamodbtypes.AttributeValue),
	}
}

func primaryKey(item map[string]dynamodbtypes.AttributeValue) string {
	return getStringValue(item[PartitionKey]) + "\x00" + getStringValue(item[SortKey])
}

func (f *fakeTable) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.items)
}

func (f *fakeTable) put(item map[string]dynamodbtypes.AttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.items[primaryKey(item)] = maps.Clone(item)
}

func (f *fakeTable) PutItem(_ context.Context, params *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.put(params.Item)
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeTable) GetItem(_ context.Context, params *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	item, ok := f.items[primaryKey(params.Key)]
	if !ok {
		return &dynamodb.GetItemOutput{}, nil
	}

	return &dynamodb.GetItemOutput{Item: maps.Clone(item)}, nil
}

func (f *fakeTable) Query(_ context.Context, params *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.queryCalls++

	if f.failQuery != nil {
		if err := f.failQuery(f.queryCalls); err != nil {
			return nil, err
		}
	}

	if aws.ToString(params.IndexName) != GSI1 {
		return nil, fmt.Errorf("unsupported index %q", aws.ToString(params.IndexName))
	}

	if aws.ToString(params.KeyConditionExpression) != IndexPartitionKey+" = :gs1pk" {
		return nil, fmt.Errorf("unsupported key condition %q", aws.ToString(params.KeyConditionExpression))
	}

	partition := getStringValue(params.ExpressionAttributeValues[":gs1pk"])

	var matching []map[string]dynamodbtypes.AttributeValue

	for _, item := range f.items {
		if getStringValue(item[IndexPartitionKey]) == partition {
			matching = append(matching, item)
		}
	}

	slices.SortFunc(matching, compareIndexOrder)

	start := 0

	if len(params.ExclusiveStartKey) > 0 {
		start = len(matching)

		for i, item := range matching {
			if compareIndexOrder(item, params.ExclusiveStartKey) > 0 {
				start = i
				break
			}
		}
	}

	end := len(matching)
	limited := false

	if params.Limit != nil && start+int(*params.Limit) <= end {
		end = start + int(*params.Limit)
		limited = true
	}

	output := &dynamodb.QueryOutput{}

	for _, item := range matching[start:end] {
		output.Items = append(output.Items, maps.Clone(item))
	}

	output.Count = int32(len(output.Items))

	if limited && len(output.Items) > 0 {
		last := output.Items[len(output.Items)-1]
		output.LastEvaluatedKey = map[string]dynamodbtypes.AttributeValue{
			PartitionKey:      last[PartitionKey],
			SortKey:           last[SortKey],
			IndexPartitionKey: last[IndexPartitionKey],
			IndexSortKey:      last[IndexSortKey],
		}
	}

	return output, nil
}

func (f *fakeTable) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	output := &dynamodb.ScanOutput{}

	for _, item := range f.items {
		output.Items = append(output.Items, map[string]dynamodbtypes.AttributeValue{
			PartitionKey: item[PartitionKey],
			SortKey:      item[SortKey],
		})
	}

	return output, nil
}

func (f *fakeTable) BatchWriteItem(_ context.Context, params *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, requests := range params.RequestItems {
		for _, req := range requests {
			switch {
			case req.DeleteRequest != nil:
				delete(f.items, primaryKey(req.DeleteRequest.Key))
			case req.PutRequest != nil:
				f.items[primaryKey(req.PutRequest.Item)] = maps.Clone(req.PutRequest.Item)
			}
		}
	}

	return &dynamodb.BatchWriteItemOutput{}, nil
}

func (f *fakeTable) DescribeTable(_ context.Context, _ *dynamodb.DescribeTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return nil, errors.New("DescribeTable not supported by fakeTable")
}

func (f *fakeTable) CreateTable(_ context.Context, _ *dynamodb.CreateTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return nil, errors.New("CreateTable not supported by fakeTable")
}

func (f *fakeTable) DeleteTable(_ context.Context, _ *dynamodb.DeleteTableInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	return nil, errors.New("DeleteTable not supported by fakeTable")
}

// compareIndexOrder orders items by index sort key, breaking ties on the
// primary key so that pages are deterministic.
func compareIndexOrder(a, b map[string]dynamodbtypes.AttributeValue) int {
	if c := strings.Compare(getStringValue(a[IndexSortKey]), getStringValue(b[IndexSortKey])); c != 0 {
		return c
	}

	return strings.Compare(primaryKey(a), primaryKey(b))
}

func getStringValue(attr dynamodbtypes.AttributeValue) string {
	if attrValue, ok := attr.(*dynamodbtypes.AttributeValueMemberS); ok {
		return attrValue.Value
	}

	return ""
}
