package differ

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// normalize converts a record value into a form whose JSON encoding is
// stable: numbers become float64, maps get string keys and slices are left in
// their original order. Unordered comparison sorts slices separately.
func normalize(v any) any {
	if v == nil {
		return nil
	}

	switch val := v.(type) {
	case string, bool, float64:
		return val
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint())
	case reflect.Float32:
		return rv.Float()
	case reflect.String:
		return rv.String()
	case reflect.Bool:
		return rv.Bool()
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = normalize(iter.Value().Interface())
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = normalize(rv.Index(i).Interface())
		}
		return out
	case reflect.Ptr, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return normalize(rv.Elem().Interface())
	}

	// Anything else is compared through its JSON form.
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	var decoded any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return string(data)
	}
	return decoded
}

type keyed struct {
	key   string
	value any
}

// unordered sorts every nested slice by canonical key so that element order
// never affects equality.
func unordered(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = unordered(item)
		}
		return out
	case []any:
		items := make([]keyed, len(val))
		for i, item := range val {
			sorted := unordered(item)
			items[i] = keyed{key: encode(sorted), value: sorted}
		}
		sort.SliceStable(items, func(i, j int) bool { return items[i].key < items[j].key })
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = item.value
		}
		return out
	default:
		return val
	}
}

// canonicalKey returns a string that is equal for two values exactly when they
// hold the same content, ignoring map key order, slice order and numeric type.
func canonicalKey(v any) string {
	return encode(unordered(normalize(v)))
}

func encode(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%#v", v)
	}
	return string(data)
}
