package stepgraph

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
)

// Reserved keys recognised when classifying work output. Both checks are
// heuristics: a shape that does not match is passed through untouched.
var (
	costKeys     = []string{"prompt_tokens", "completion_tokens", "total_tokens"}
	markdownKeys = []string{"links", "extracted_content"}
)

// OutputShape describes the structure of a work unit's output
type OutputShape struct {
	Type                 string
	HasIterable          bool
	IsEmpty              bool
	HasMarkdownLikeShape bool
	IterationCount       *int
}

// ExtractCost separates an embedded token-cost item from a work unit's raw
// return value. Only sequences are scanned: the first element that is a
// Cost, or a string-keyed map holding any of the token-count keys, is removed
// and decoded. The remainder collapses to nil when nothing is left and to its
// only element when one is left; otherwise it stays a sequence of the
// element type of the input. Anything else passes through with no cost.
func ExtractCost(output any) (any, *Cost) {
	v := reflect.ValueOf(output)
	if !v.IsValid() || !isSequence(v) {
		return output, nil
	}

	costIndex := -1
	var cost *Cost
	for i := 0; i < v.Len(); i++ {
		if c, ok := asCost(v.Index(i)); ok {
			costIndex, cost = i, c
			break
		}
	}
	if costIndex < 0 {
		return output, nil
	}

	rest := reflect.MakeSlice(reflect.SliceOf(v.Type().Elem()), 0, v.Len()-1)
	for i := 0; i < v.Len(); i++ {
		if i != costIndex {
			rest = reflect.Append(rest, v.Index(i))
		}
	}
	switch rest.Len() {
	case 0:
		return nil, cost
	case 1:
		return rest.Index(0).Interface(), cost
	default:
		return rest.Interface(), cost
	}
}

// DescribeOutput derives shape flags from a work unit's output. It never
// fails: when something cannot be determined the flag keeps its zero value.
// An iterator is consumed to count it.
func DescribeOutput(output any) OutputShape {
	_, shape := normalizeOutput(output)
	return shape
}

// EncodableOutput returns a JSON-safe rendering of a work unit's output.
// Iterators are collected into a []any, channels and other functions become
// their type name, and any other value that fails to encode is replaced by
// its type name. Encodable values pass through unchanged.
func EncodableOutput(output any) any {
	encoded, _ := normalizeOutput(output)
	return encoded
}

// normalizeOutput consumes an iterator output at most once, so single-use
// iterators yield the same elements to the shape and the stored value.
func normalizeOutput(output any) (any, OutputShape) {
	shape := OutputShape{Type: "nil", IsEmpty: true}
	v := reflect.ValueOf(output)
	if !v.IsValid() {
		return nil, shape
	}
	shape.Type = v.Type().String()
	shape.IsEmpty = isEmptyValue(v)
	shape.HasMarkdownLikeShape = hasAnyKey(v, markdownKeys)

	switch v.Kind() {
	case reflect.String:
	case reflect.Slice, reflect.Array:
		if !isBytes(v.Type()) {
			shape.HasIterable = true
			shape.IterationCount = intPtr(v.Len())
		}
	case reflect.Map:
		shape.HasIterable = true
		shape.IterationCount = intPtr(v.Len())
	case reflect.Chan:
		shape.HasIterable = true
		return shape.Type, shape
	case reflect.Func:
		if v.IsNil() {
			return nil, shape
		}
		if v.Type().CanSeq() || v.Type().CanSeq2() {
			shape.HasIterable = true
			items, ok := collectSeq(v)
			if !ok {
				return shape.Type, shape
			}
			shape.IterationCount = intPtr(len(items))
			return items, shape
		}
		return shape.Type, shape
	}
	if _, err := json.Marshal(output); err != nil {
		return shape.Type, shape
	}
	return output, shape
}

// collectSeq drains a range-over-func iterator. Pairs from a two-value
// iterator become two-element slices. A panicking iterator reports false.
func collectSeq(v reflect.Value) (items []any, ok bool) {
	defer func() {
		if recover() != nil {
			items, ok = nil, false
		}
	}()
	items = []any{}
	if v.Type().CanSeq() {
		for item := range v.Seq() {
			items = append(items, EncodableOutput(item.Interface()))
		}
		return items, true
	}
	for key, value := range v.Seq2() {
		items = append(items, []any{EncodableOutput(key.Interface()), EncodableOutput(value.Interface())})
	}
	return items, true
}

func isSequence(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Slice:
		return !v.IsNil() && !isBytes(v.Type())
	case reflect.Array:
		return !isBytes(v.Type())
	}
	return false
}

func isBytes(t reflect.Type) bool {
	return t.Elem().Kind() == reflect.Uint8
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.String, reflect.Array:
		return v.Len() == 0
	case reflect.Slice, reflect.Map:
		return v.IsNil() || v.Len() == 0
	case reflect.Pointer, reflect.Interface, reflect.Chan, reflect.Func:
		return v.IsNil()
	}
	return false
}

func asCost(v reflect.Value) (*Cost, bool) {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return nil, false
		}
		v = v.Elem()
	}
	if v.Type() == reflect.TypeOf(Cost{}) {
		c := v.Interface().(Cost)
		return &c, true
	}
	if !hasAnyKey(v, costKeys) {
		return nil, false
	}
	return &Cost{
		PromptTokens:     tokenCount(v, "prompt_tokens"),
		CompletionTokens: tokenCount(v, "completion_tokens"),
		TotalTokens:      tokenCount(v, "total_tokens"),
	}, true
}

func hasAnyKey(v reflect.Value, keys []string) bool {
	for v.Kind() == reflect.Interface || v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return false
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Map || v.Type().Key().Kind() != reflect.String {
		return false
	}
	for _, key := range keys {
		if v.MapIndex(reflect.ValueOf(key).Convert(v.Type().Key())).IsValid() {
			return true
		}
	}
	return false
}

func tokenCount(m reflect.Value, key string) *int {
	value := m.MapIndex(reflect.ValueOf(key).Convert(m.Type().Key()))
	if !value.IsValid() {
		return nil
	}
	n, ok := toInt(value.Interface())
	if !ok {
		return nil
	}
	return &n
}

func toInt(value any) (int, bool) {
	switch n := value.(type) {
	case int:
		return n, true
	case int8:
		return int(n), true
	case int16:
		return int(n), true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return uintToInt(uint64(n))
	case uint8:
		return int(n), true
	case uint16:
		return int(n), true
	case uint32:
		return uintToInt(uint64(n))
	case uint64:
		return uintToInt(n)
	case float32:
		return floatToInt(float64(n))
	case float64:
		return floatToInt(n)
	case json.Number:
		i, err := n.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(n)
		return i, err == nil
	case fmt.Stringer:
		i, err := strconv.Atoi(n.String())
		return i, err == nil
	}
	return 0, false
}

func uintToInt(n uint64) (int, bool) {
	if n > math.MaxInt {
		return 0, false
	}
	return int(n), true
}

func floatToInt(f float64) (int, bool) {
	f = math.Round(f)
	if math.IsNaN(f) || f < math.MinInt || f >= math.MaxInt {
		return 0, false
	}
	return int(f), true
}

func intPtr(n int) *int {
	return &n
}
