package internal

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// decodeJSON decodes data into a generic value, keeping numbers as json.Number
func decodeJSON(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// decodeJSONObject decodes data and requires a top-level object
func decodeJSONObject(data []byte) (map[string]interface{}, error) {
	v, err := decodeJSON(data)
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]interface{})
	if !ok {
		return nil, ErrUnsupportedShape
	}
	return obj, nil
}

func asMap(v interface{}) (map[string]interface{}, bool) {
	m, ok := v.(map[string]interface{})
	return m, ok
}

func asSlice(v interface{}) ([]interface{}, bool) {
	s, ok := v.([]interface{})
	return s, ok
}

func getMap(m map[string]interface{}, key string) map[string]interface{} {
	if m == nil {
		return nil
	}
	sub, _ := m[key].(map[string]interface{})
	return sub
}

func getSlice(m map[string]interface{}, key string) []interface{} {
	if m == nil {
		return nil
	}
	s, _ := m[key].([]interface{})
	return s
}

// getString returns m[key] when it is a string
func getString(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// getText returns m[key] rendered as text when it is a truthy scalar
func getText(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	v, ok := m[key]
	if !ok || !truthy(v) {
		return ""
	}
	return stringify(v)
}

// firstText returns the first key whose value is truthy, rendered as text
func firstText(m map[string]interface{}, keys ...string) string {
	for _, k := range keys {
		if s := getText(m, k); s != "" {
			return s
		}
	}
	return ""
}

func firstValue(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok && truthy(v) {
			return v
		}
	}
	return nil
}

func getBool(m map[string]interface{}, key string) bool {
	if m == nil {
		return false
	}
	return truthy(m[key])
}

// getInt64 returns m[key] as an integer when it is numeric
func getInt64(m map[string]interface{}, key string) *int64 {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return &i
		}
		if f, err := v.Float64(); err == nil {
			i := int64(f)
			return &i
		}
	case float64:
		i := int64(v)
		return &i
	case int64:
		return &v
	case int:
		i := int64(v)
		return &i
	}
	return nil
}

// truthy mirrors the loose emptiness checks source payloads rely on
func truthy(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case json.Number:
		f, err := t.Float64()
		return err != nil || f != 0
	case float64:
		return t != 0
	case int64:
		return t != 0
	case int:
		return t != 0
	case []interface{}:
		return len(t) > 0
	case map[string]interface{}:
		return len(t) > 0
	}
	return true
}

// stringify renders a scalar as text; containers are re-encoded as JSON
func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case int:
		return strconv.Itoa(t)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// valueText unwraps {value: ...} objects that some payloads use for markdown strings
func valueText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]interface{}:
		return stringify(t["value"])
	case nil:
		return ""
	}
	return stringify(v)
}

// baseName returns the last segment of a slash or backslash separated path
func baseName(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		return path[i+1:]
	}
	return path
}
