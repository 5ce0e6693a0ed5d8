package http

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// FormField is one flattened name/value pair of a body or query mapping.
type FormField struct {
	Name  string
	Value string
}

// FlattenForm turns a nested mapping into bracket-notation fields, e.g.
// {"user": {"name": "x"}, "tags": ["a"]} becomes user[name]=x and tags[0]=a.
// Keys are emitted in sorted order.
func FlattenForm(values map[string]any) []FormField {
	var fields []FormField
	for _, key := range sortedKeys(values) {
		fields = appendFlattened(fields, key, values[key])
	}
	return fields
}

func appendFlattened(fields []FormField, name string, value any) []FormField {
	switch v := value.(type) {
	case nil:
		return append(fields, FormField{Name: name})
	case string:
		return append(fields, FormField{Name: name, Value: v})
	case []byte:
		return append(fields, FormField{Name: name, Value: string(v)})
	case bool:
		return append(fields, FormField{Name: name, Value: strconv.FormatBool(v)})
	case map[string]any:
		for _, k := range sortedKeys(v) {
			fields = appendFlattened(fields, name+"["+k+"]", v[k])
		}
		return fields
	case map[string]string:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fields = append(fields, FormField{Name: name + "[" + k + "]", Value: v[k]})
		}
		return fields
	case []any:
		for i, item := range v {
			fields = appendFlattened(fields, name+"["+strconv.Itoa(i)+"]", item)
		}
		return fields
	case []string:
		for i, item := range v {
			fields = append(fields, FormField{Name: name + "[" + strconv.Itoa(i) + "]", Value: item})
		}
		return fields
	case fmt.Stringer:
		return append(fields, FormField{Name: name, Value: v.String()})
	}

	// Remaining kinds: numbers, and slices/maps of other element types
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		for i := 0; i < rv.Len(); i++ {
			fields = appendFlattened(fields, name+"["+strconv.Itoa(i)+"]", rv.Index(i).Interface())
		}
		return fields
	case reflect.Map:
		if rv.Type().Key().Kind() == reflect.String {
			keys := make([]string, 0, rv.Len())
			for _, k := range rv.MapKeys() {
				keys = append(keys, k.String())
			}
			sort.Strings(keys)
			for _, k := range keys {
				fields = appendFlattened(fields, name+"["+k+"]", rv.MapIndex(reflect.ValueOf(k).Convert(rv.Type().Key())).Interface())
			}
			return fields
		}
	case reflect.Float32, reflect.Float64:
		return append(fields, FormField{Name: name, Value: strconv.FormatFloat(rv.Float(), 'f', -1, 64)})
	}
	return append(fields, FormField{Name: name, Value: fmt.Sprintf("%v", value)})
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// EncodeForm serializes a mapping as application/x-www-form-urlencoded text.
// Nested values use bracket notation and spaces are escaped as %20.
func EncodeForm(values map[string]any) string {
	fields := FlattenForm(values)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, escapeComponent(f.Name)+"="+escapeComponent(f.Value))
	}
	return strings.Join(parts, "&")
}

func escapeComponent(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// DecodeForm parses url-encoded text produced by EncodeForm. Bracketed names
// are kept as flat keys.
func DecodeForm(body string) (url.Values, error) {
	return url.ParseQuery(body)
}
