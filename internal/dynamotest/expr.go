package dynamotest

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

type equalityClause struct {
	attr  string
	value types.AttributeValue
}

// parseEqualityClauses parses "#a = :x AND #b = :y" style expressions.
func parseEqualityClauses(expr string, names map[string]string, values map[string]types.AttributeValue) ([]equalityClause, error) {
	var clauses []equalityClause
	for _, raw := range strings.Split(expr, " AND ") {
		parts := strings.Split(strings.TrimSpace(raw), " = ")
		if len(parts) != 2 {
			return nil, fmt.Errorf("dynamotest: unsupported clause %q", raw)
		}
		attr, err := resolveName(parts[0], names)
		if err != nil {
			return nil, err
		}
		value, ok := values[parts[1]]
		if !ok {
			return nil, fmt.Errorf("dynamotest: unresolved value placeholder %q", parts[1])
		}
		clauses = append(clauses, equalityClause{attr: attr, value: value})
	}
	return clauses, nil
}

func matches(item map[string]types.AttributeValue, clauses []equalityClause) bool {
	for _, c := range clauses {
		got, ok := item[c.attr]
		if !ok || !avEqual(got, c.value) {
			return false
		}
	}
	return true
}

// evalCondition evaluates AND-combined attribute_exists / attribute_not_exists
// expressions against an item. A nil item means the record is absent.
func evalCondition(expr string, names map[string]string, item map[string]types.AttributeValue) (bool, error) {
	for _, raw := range strings.Split(expr, " AND ") {
		clause := strings.TrimSpace(raw)
		var want bool
		var inner string
		switch {
		case strings.HasPrefix(clause, "attribute_exists(") && strings.HasSuffix(clause, ")"):
			want = true
			inner = clause[len("attribute_exists(") : len(clause)-1]
		case strings.HasPrefix(clause, "attribute_not_exists(") && strings.HasSuffix(clause, ")"):
			want = false
			inner = clause[len("attribute_not_exists(") : len(clause)-1]
		default:
			return false, fmt.Errorf("dynamotest: unsupported condition clause %q", clause)
		}
		attr, err := resolveName(inner, names)
		if err != nil {
			return false, err
		}
		_, present := item[attr]
		if present != want {
			return false, nil
		}
	}
	return true, nil
}

// applySet applies a "SET #a = :x, #b = :y" update expression in place.
func applySet(item map[string]types.AttributeValue, expr string, names map[string]string, values map[string]types.AttributeValue) error {
	rest, ok := strings.CutPrefix(expr, "SET ")
	if !ok {
		return fmt.Errorf("dynamotest: unsupported update expression %q", expr)
	}
	for _, raw := range strings.Split(rest, ", ") {
		parts := strings.Split(strings.TrimSpace(raw), " = ")
		if len(parts) != 2 {
			return fmt.Errorf("dynamotest: unsupported set clause %q", raw)
		}
		attr, err := resolveName(parts[0], names)
		if err != nil {
			return err
		}
		value, ok := values[parts[1]]
		if !ok {
			return fmt.Errorf("dynamotest: unresolved value placeholder %q", parts[1])
		}
		item[attr] = value
	}
	return nil
}

func resolveName(token string, names map[string]string) (string, error) {
	if !strings.HasPrefix(token, "#") {
		return token, nil
	}
	attr, ok := names[token]
	if !ok {
		return "", fmt.Errorf("dynamotest: unresolved name placeholder %q", token)
	}
	return attr, nil
}

func avEqual(a, b types.AttributeValue) bool {
	return reflect.DeepEqual(a, b)
}

func scalarString(av types.AttributeValue) string {
	switch v := av.(type) {
	case *types.AttributeValueMemberS:
		return v.Value
	case *types.AttributeValueMemberN:
		return v.Value
	case *types.AttributeValueMemberB:
		return string(v.Value)
	default:
		return ""
	}
}

func cloneItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	clone := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		clone[k] = v
	}
	return clone
}
