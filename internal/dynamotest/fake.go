// Package dynamotest provides an in-memory DynamoDB fake for package tests.
//
// The fake is schema-aware (partition key, optional sort key, GSIs) and
// evaluates the expression shapes this module generates: equality key
// conditions, AND-combined equality filters, attribute_exists /
// attribute_not_exists condition expressions, and SET update expressions.
// It is not a general DynamoDB emulator.
package dynamotest

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Schema describes one table's key layout.
type Schema struct {
	PartitionKey string
	SortKey      string // empty for simple-key tables

	// GSIs maps index name to the index's partition key attribute.
	GSIs map[string]string
}

type entry struct {
	key  string
	item map[string]types.AttributeValue
}

type table struct {
	schema  Schema
	entries []entry
	index   map[string]int
}

// Fake is an in-memory DynamoDB implementing the client subset the store
// layer uses. Safe for concurrent use.
type Fake struct {
	mu     sync.Mutex
	tables map[string]*table

	// TransactCalls records every TransactWriteItems input, in order.
	TransactCalls []*dynamodb.TransactWriteItemsInput

	// NextErr, when set, is returned by the next API call and cleared.
	NextErr error
}

// New creates an empty fake.
func New() *Fake {
	return &Fake{tables: map[string]*table{}}
}

// CreateTable registers a table with the given key schema.
func (f *Fake) CreateTable(name string, schema Schema) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tables[name] = &table{schema: schema, index: map[string]int{}}
}

// Len returns the number of items in a table.
func (f *Fake) Len(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tables[name].entries)
}

// Seed inserts an item directly, bypassing conditions.
func (f *Fake) Seed(name string, item map[string]types.AttributeValue) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tables[name]
	t.put(cloneItem(item))
}

func (f *Fake) takeErr() error {
	err := f.NextErr
	f.NextErr = nil
	return err
}

func (t *table) keyString(item map[string]types.AttributeValue) string {
	key := scalarString(item[t.schema.PartitionKey])
	if t.schema.SortKey != "" {
		key += "\x00" + scalarString(item[t.schema.SortKey])
	}
	return key
}

func (t *table) put(item map[string]types.AttributeValue) {
	key := t.keyString(item)
	if i, ok := t.index[key]; ok {
		t.entries[i].item = item
		return
	}
	t.index[key] = len(t.entries)
	t.entries = append(t.entries, entry{key: key, item: item})
}

func (t *table) get(key map[string]types.AttributeValue) map[string]types.AttributeValue {
	if i, ok := t.index[t.keyString(key)]; ok {
		return t.entries[i].item
	}
	return nil
}

func (t *table) delete(key map[string]types.AttributeValue) {
	ks := t.keyString(key)
	i, ok := t.index[ks]
	if !ok {
		return
	}
	t.entries = append(t.entries[:i], t.entries[i+1:]...)
	delete(t.index, ks)
	for j := i; j < len(t.entries); j++ {
		t.index[t.entries[j].key] = j
	}
}

// GetItem implements store.DynamoAPI.
func (f *Fake) GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	item := t.get(in.Key)
	if item == nil {
		return &dynamodb.GetItemOutput{}, nil
	}
	return &dynamodb.GetItemOutput{Item: cloneItem(item)}, nil
}

// Query implements store.DynamoAPI. Only equality clauses are supported,
// matching the expressions the store layer builds.
func (f *Fake) Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	if in.IndexName != nil {
		if _, ok := t.schema.GSIs[*in.IndexName]; !ok {
			return nil, fmt.Errorf("dynamotest: unknown index %q on table %q", *in.IndexName, *in.TableName)
		}
	}

	keyClauses, err := parseEqualityClauses(aws.ToString(in.KeyConditionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues)
	if err != nil {
		return nil, err
	}
	var filterClauses []equalityClause
	if in.FilterExpression != nil {
		filterClauses, err = parseEqualityClauses(*in.FilterExpression, in.ExpressionAttributeNames, in.ExpressionAttributeValues)
		if err != nil {
			return nil, err
		}
	}

	out := &dynamodb.QueryOutput{}
	for _, e := range t.entries {
		if matches(e.item, keyClauses) && matches(e.item, filterClauses) {
			out.Items = append(out.Items, cloneItem(e.item))
		}
	}
	out.Count = int32(len(out.Items))
	return out, nil
}

// UpdateItem implements store.DynamoAPI.
func (f *Fake) UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}

	current := t.get(in.Key)
	if in.ConditionExpression != nil {
		ok, err := evalCondition(*in.ConditionExpression, in.ExpressionAttributeNames, current)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
		}
	}

	var item map[string]types.AttributeValue
	if current != nil {
		item = cloneItem(current)
	} else {
		item = cloneItem(in.Key)
	}
	if err := applySet(item, aws.ToString(in.UpdateExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues); err != nil {
		return nil, err
	}
	t.put(item)
	return &dynamodb.UpdateItemOutput{}, nil
}

// TransactWriteItems implements store.DynamoAPI. Conditions are evaluated
// against pre-transaction state; either every operation applies or none does.
func (f *Fake) TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeErr(); err != nil {
		return nil, err
	}
	f.TransactCalls = append(f.TransactCalls, in)

	reasons := make([]types.CancellationReason, len(in.TransactItems))
	failed := false
	for i, op := range in.TransactItems {
		reasons[i] = types.CancellationReason{Code: aws.String("None")}
		ok, err := f.checkTransactItem(op)
		if err != nil {
			return nil, err
		}
		if !ok {
			reasons[i] = types.CancellationReason{
				Code:    aws.String("ConditionalCheckFailed"),
				Message: aws.String("The conditional request failed"),
			}
			failed = true
		}
	}
	if failed {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled"),
			CancellationReasons: reasons,
		}
	}

	for _, op := range in.TransactItems {
		if err := f.applyTransactItem(op); err != nil {
			return nil, err
		}
	}
	return &dynamodb.TransactWriteItemsOutput{}, nil
}

func (f *Fake) checkTransactItem(op types.TransactWriteItem) (bool, error) {
	switch {
	case op.Put != nil:
		t, err := f.table(op.Put.TableName)
		if err != nil {
			return false, err
		}
		if op.Put.ConditionExpression == nil {
			return true, nil
		}
		current := t.get(op.Put.Item)
		return evalCondition(*op.Put.ConditionExpression, op.Put.ExpressionAttributeNames, current)
	case op.Delete != nil:
		t, err := f.table(op.Delete.TableName)
		if err != nil {
			return false, err
		}
		if op.Delete.ConditionExpression == nil {
			return true, nil
		}
		current := t.get(op.Delete.Key)
		return evalCondition(*op.Delete.ConditionExpression, op.Delete.ExpressionAttributeNames, current)
	default:
		return false, fmt.Errorf("dynamotest: unsupported transact item")
	}
}

func (f *Fake) applyTransactItem(op types.TransactWriteItem) error {
	switch {
	case op.Put != nil:
		t, err := f.table(op.Put.TableName)
		if err != nil {
			return err
		}
		t.put(cloneItem(op.Put.Item))
	case op.Delete != nil:
		t, err := f.table(op.Delete.TableName)
		if err != nil {
			return err
		}
		t.delete(op.Delete.Key)
	}
	return nil
}

func (f *Fake) table(name *string) (*table, error) {
	t, ok := f.tables[aws.ToString(name)]
	if !ok {
		return nil, fmt.Errorf("dynamotest: unknown table %q", aws.ToString(name))
	}
	return t, nil
}
