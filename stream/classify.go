// Package stream consumes DynamoDB stream batches, classifies each record,
// suppresses no-op modifications, and routes meaningful changes to the
// notification fan-out.
package stream

import (
	"reflect"
	"strings"

	"github.com/jacentio/listsync/store"
)

// Source identifies which table a stream record originated from.
type Source int

const (
	SourceUnknown Source = iota
	SourceItem
	SourceMembership
)

func (s Source) String() string {
	switch s {
	case SourceItem:
		return "item"
	case SourceMembership:
		return "membership"
	default:
		return "unknown"
	}
}

// Classifier maps a record's event source ARN to a Source by substring
// match against the configured table names.
type Classifier struct {
	itemTable       string
	membershipTable string
}

// NewClassifier creates a classifier for the configured tables.
func NewClassifier(cfg store.Config) Classifier {
	return Classifier{
		itemTable:       cfg.ItemTable,
		membershipTable: cfg.MembershipTable,
	}
}

// Classify returns the semantic source of a stream record. Records from
// any other table are SourceUnknown and get dropped by the processor.
func (c Classifier) Classify(eventSourceARN string) Source {
	if strings.Contains(eventSourceARN, "table/"+c.membershipTable) {
		return SourceMembership
	}
	if strings.Contains(eventSourceARN, "table/"+c.itemTable) {
		return SourceItem
	}
	return SourceUnknown
}

// IsNoOp reports whether a modification left the record unchanged: both
// images present and field-for-field equal. Insert and remove records
// (one image missing) are never no-ops.
func IsNoOp(before, after store.Record) bool {
	if before == nil || after == nil {
		return false
	}
	return reflect.DeepEqual(before, after)
}
