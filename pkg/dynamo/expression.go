package dynamo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// BuildUpdate assembles an UpdateExpression from fields to set and
// attributes to remove. Set keys are processed in sorted order so the
// expression is deterministic.
func BuildUpdate(set map[string]any, clear []string) (expr string, names map[string]string, values map[string]types.AttributeValue, err error) {
	names = map[string]string{}
	values = map[string]types.AttributeValue{}

	setKeys := make([]string, 0, len(set))
	for k := range set {
		setKeys = append(setKeys, k)
	}
	sort.Strings(setKeys)

	var setParts []string
	for i, k := range setKeys {
		av, mErr := attributevalue.Marshal(set[k])
		if mErr != nil {
			return "", nil, nil, fmt.Errorf("marshal field %s: %w", k, mErr)
		}
		nk := fmt.Sprintf("#s%d", i)
		vk := fmt.Sprintf(":s%d", i)
		names[nk] = k
		values[vk] = av
		setParts = append(setParts, nk+" = "+vk)
	}

	var removeParts []string
	for i, k := range clear {
		nk := fmt.Sprintf("#r%d", i)
		names[nk] = k
		removeParts = append(removeParts, nk)
	}

	var b strings.Builder
	if len(setParts) > 0 {
		b.WriteString("SET " + strings.Join(setParts, ", "))
	}
	if len(removeParts) > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("REMOVE " + strings.Join(removeParts, ", "))
	}
	return b.String(), names, values, nil
}
