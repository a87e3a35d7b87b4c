package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const conditionalCheckFailed = "ConditionalCheckFailed"

// DynamoAPI is the subset of the DynamoDB client used by Store.
// *dynamodb.Client satisfies it; tests substitute an in-memory fake.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	Query(ctx context.Context, in *dynamodb.QueryInput, opts ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, opts ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, opts ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// Store provides the four DynamoDB primitives used by the repositories.
type Store struct {
	client DynamoAPI
	config Config
}

// New creates a new Store instance.
func New(client DynamoAPI, config Config) *Store {
	config.validate()
	return &Store{
		client: client,
		config: config,
	}
}

// Config returns the resolved table configuration.
func (s *Store) Config() Config {
	return s.config
}

// Put describes one put operation inside a transaction.
type Put struct {
	Table     string
	Item      Record
	Condition *Condition
}

// Delete describes one delete operation inside a transaction.
type Delete struct {
	Table     string
	Key       Key
	Condition *Condition
}

// WriteOp is one operation of a write transaction. Exactly one of Put or
// Delete must be set.
type WriteOp struct {
	Put    *Put
	Delete *Delete
}

// Get retrieves a record by key, returning ErrNotFound if missing.
func (s *Store) Get(ctx context.Context, table string, key Key) (Record, error) {
	k, err := marshalKey(key)
	if err != nil {
		return nil, err
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key:       k,
	})
	if err != nil {
		return nil, mapInfraError(err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	return unmarshalRecord(result.Item)
}

// QueryInput defines parameters for querying records.
type QueryInput struct {
	// Table is the DynamoDB table to query.
	Table string

	// Index is the optional GSI to query.
	Index string

	// Key maps key attributes to the values they must equal.
	Key map[string]any

	// Filter maps non-key attributes to the values they must equal,
	// AND-combined and applied server-side after the key condition.
	Filter map[string]any
}

// Query returns all records matching the key condition, paginating through
// the full result set.
func (s *Store) Query(ctx context.Context, input QueryInput) ([]Record, error) {
	keyExpr, keyNames, keyValues, err := buildEqualityExpression(input.Key, "key")
	if err != nil {
		return nil, err
	}

	queryInput := &dynamodb.QueryInput{
		TableName:                 aws.String(input.Table),
		KeyConditionExpression:    aws.String(keyExpr),
		ExpressionAttributeNames:  keyNames,
		ExpressionAttributeValues: keyValues,
	}
	if input.Index != "" {
		queryInput.IndexName = aws.String(input.Index)
	}
	if len(input.Filter) > 0 {
		filterExpr, filterNames, filterValues, err := buildEqualityExpression(input.Filter, "f")
		if err != nil {
			return nil, err
		}
		queryInput.FilterExpression = aws.String(filterExpr)
		queryInput.ExpressionAttributeNames = mergeNames(keyNames, filterNames)
		queryInput.ExpressionAttributeValues = mergeValues(keyValues, filterValues)
	}

	var records []Record
	paginator := dynamodb.NewQueryPaginator(s.client, queryInput)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, mapInfraError(err)
		}
		for _, raw := range page.Items {
			record, err := unmarshalRecord(raw)
			if err != nil {
				return nil, err
			}
			records = append(records, record)
		}
	}

	return records, nil
}

// TransactWrite executes all operations as one all-or-nothing transaction.
// It rejects with ErrTransactionSizeExceeded when given more than
// MaxTransactItems operations; callers are responsible for chunking.
// A failed condition on any operation surfaces as ErrPreconditionFailed
// and no operation is applied.
func (s *Store) TransactWrite(ctx context.Context, ops []WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	if len(ops) > MaxTransactItems {
		return fmt.Errorf("%w: %d operations, limit %d", ErrTransactionSizeExceeded, len(ops), MaxTransactItems)
	}

	items := make([]types.TransactWriteItem, 0, len(ops))
	for _, op := range ops {
		item, err := s.transactItem(op)
		if err != nil {
			return err
		}
		items = append(items, item)
	}

	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: items,
	})
	return mapWriteError(err)
}

func (s *Store) transactItem(op WriteOp) (types.TransactWriteItem, error) {
	switch {
	case op.Put != nil:
		item, err := marshalRecord(op.Put.Item)
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		put := &types.Put{
			TableName: aws.String(op.Put.Table),
			Item:      item,
		}
		if op.Put.Condition != nil {
			expr, names := op.Put.Condition.expression()
			put.ConditionExpression = aws.String(expr)
			put.ExpressionAttributeNames = names
		}
		return types.TransactWriteItem{Put: put}, nil

	case op.Delete != nil:
		key, err := marshalKey(op.Delete.Key)
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		del := &types.Delete{
			TableName: aws.String(op.Delete.Table),
			Key:       key,
		}
		if op.Delete.Condition != nil {
			expr, names := op.Delete.Condition.expression()
			del.ConditionExpression = aws.String(expr)
			del.ExpressionAttributeNames = names
		}
		return types.TransactWriteItem{Delete: del}, nil

	default:
		return types.TransactWriteItem{}, fmt.Errorf("write op has neither put nor delete")
	}
}

// Update applies a partial update to one record, preserving unspecified
// fields. The record must already exist: the update is conditioned on the
// presence of every key attribute and fails with ErrPreconditionFailed
// otherwise.
func (s *Store) Update(ctx context.Context, table string, key Key, fields Record) error {
	k, err := marshalKey(key)
	if err != nil {
		return err
	}

	keyAttrs := make(map[string]bool, len(key))
	cond := &Condition{}
	for attr := range key {
		keyAttrs[attr] = true
	}
	for _, attr := range sortedFieldNames(key) {
		cond.Exists = append(cond.Exists, attr)
	}

	updateExpr, names, values, err := buildUpdateExpression(fields, keyAttrs)
	if err != nil {
		return err
	}
	condExpr, condNames := cond.expression()

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       k,
		UpdateExpression:          aws.String(updateExpr),
		ConditionExpression:       aws.String(condExpr),
		ExpressionAttributeNames:  mergeNames(names, condNames),
		ExpressionAttributeValues: values,
	})
	return mapWriteError(err)
}

// mapWriteError translates DynamoDB write failures into the store taxonomy.
func mapWriteError(err error) error {
	if err == nil {
		return nil
	}

	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		for _, reason := range txErr.CancellationReasons {
			if reason.Code != nil && *reason.Code == conditionalCheckFailed {
				return ErrPreconditionFailed
			}
		}
	}

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return ErrPreconditionFailed
	}

	return mapInfraError(err)
}

// mapInfraError wraps transient DynamoDB failures as ErrUnavailable so
// callers can distinguish them from programming errors.
func mapInfraError(err error) error {
	var throughput *types.ProvisionedThroughputExceededException
	var limit *types.RequestLimitExceeded
	var internal *types.InternalServerError
	if errors.As(err, &throughput) || errors.As(err, &limit) || errors.As(err, &internal) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return err
}
