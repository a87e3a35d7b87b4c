package store

import (
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Condition constrains a write to the current state of the target record.
// A nil *Condition means the write is unconditional.
type Condition struct {
	// Exists lists attributes that must already be present on the record.
	Exists []string

	// NotExists lists attributes that must be absent from the record.
	NotExists []string
}

// ConditionExists is shorthand for "the record must already exist",
// expressed as existence of its key attributes.
func ConditionExists(attrs ...string) *Condition {
	return &Condition{Exists: attrs}
}

// ConditionNotExists is shorthand for "the record must not yet exist".
func ConditionNotExists(attrs ...string) *Condition {
	return &Condition{NotExists: attrs}
}

// expression renders the condition with substituted name placeholders.
func (c *Condition) expression() (string, map[string]string) {
	var clauses []string
	names := map[string]string{}
	i := 0
	for _, attr := range c.Exists {
		ph := fmt.Sprintf("#cond%d", i)
		names[ph] = attr
		clauses = append(clauses, fmt.Sprintf("attribute_exists(%s)", ph))
		i++
	}
	for _, attr := range c.NotExists {
		ph := fmt.Sprintf("#cond%d", i)
		names[ph] = attr
		clauses = append(clauses, fmt.Sprintf("attribute_not_exists(%s)", ph))
		i++
	}
	return joinClauses(clauses, " AND "), names
}

// buildUpdateExpression composes a SET expression from the given fields,
// skipping key attributes. Fields are ordered by name so the resulting
// expression is deterministic.
func buildUpdateExpression(fields Record, keyAttrs map[string]bool) (string, map[string]string, map[string]types.AttributeValue, error) {
	sorted := sortedFieldNames(fields)

	var setClauses []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	i := 0
	for _, field := range sorted {
		if keyAttrs[field] {
			continue
		}
		av, err := attributevalue.Marshal(fields[field])
		if err != nil {
			return "", nil, nil, fmt.Errorf("marshal field %q: %w", field, err)
		}
		nameKey := fmt.Sprintf("#attr%d", i)
		valueKey := fmt.Sprintf(":val%d", i)
		names[nameKey] = field
		values[valueKey] = av
		setClauses = append(setClauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
		i++
	}
	if len(setClauses) == 0 {
		return "", nil, nil, fmt.Errorf("no updatable fields")
	}

	return "SET " + joinClauses(setClauses, ", "), names, values, nil
}

// buildEqualityExpression composes an AND-combined equality expression,
// used for both key conditions and filters.
func buildEqualityExpression(attrs map[string]any, prefix string) (string, map[string]string, map[string]types.AttributeValue, error) {
	sorted := sortedFieldNames(attrs)

	var clauses []string
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	for i, field := range sorted {
		av, err := attributevalue.Marshal(attrs[field])
		if err != nil {
			return "", nil, nil, fmt.Errorf("marshal %s attribute %q: %w", prefix, field, err)
		}
		nameKey := fmt.Sprintf("#%s%d", prefix, i)
		valueKey := fmt.Sprintf(":%s%d", prefix, i)
		names[nameKey] = field
		values[valueKey] = av
		clauses = append(clauses, fmt.Sprintf("%s = %s", nameKey, valueKey))
	}

	return joinClauses(clauses, " AND "), names, values, nil
}

func sortedFieldNames[V any](m map[string]V) []string {
	fields := make([]string, 0, len(m))
	for field := range m {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

func joinClauses(clauses []string, sep string) string {
	if len(clauses) == 0 {
		return ""
	}
	result := clauses[0]
	for _, c := range clauses[1:] {
		result += sep + c
	}
	return result
}

func mergeNames(maps ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}

func mergeValues(maps ...map[string]types.AttributeValue) map[string]types.AttributeValue {
	result := make(map[string]types.AttributeValue)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}
