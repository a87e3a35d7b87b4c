package store

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Record is an open attribute mapping. Lists and items carry a small set of
// well-known fields plus arbitrary caller-defined ones, so records stay
// schemaless at this layer; repositories validate the fields they rely on.
type Record map[string]any

// Key identifies one record by its key attributes.
type Key map[string]any

// String returns the named field as a string, or "" if absent or not a string.
func (r Record) String(field string) string {
	s, _ := r[field].(string)
	return s
}

func marshalRecord(r Record) (map[string]types.AttributeValue, error) {
	item, err := attributevalue.MarshalMap(map[string]any(r))
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return item, nil
}

func unmarshalRecord(item map[string]types.AttributeValue) (Record, error) {
	var r map[string]any
	if err := attributevalue.UnmarshalMap(item, &r); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return Record(r), nil
}

func marshalKey(k Key) (map[string]types.AttributeValue, error) {
	key, err := attributevalue.MarshalMap(map[string]any(k))
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	return key, nil
}
