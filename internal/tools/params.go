package tools

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidParams marks a malformed tool call
var ErrInvalidParams = errors.New("invalid params")

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidParams, fmt.Sprintf(format, args...))
}

// requireID reads a required integer id; JSON numbers arrive as float64
func requireID(params map[string]interface{}, key string) (int64, error) {
	id, err := optionalID(params, key)
	if err != nil {
		return 0, err
	}
	if id == nil {
		return 0, invalid("%s is required", key)
	}
	return *id, nil
}

func optionalID(params map[string]interface{}, key string) (*int64, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, nil
	}

	var id int64
	switch v := raw.(type) {
	case float64:
		if v != float64(int64(v)) {
			return nil, invalid("%s must be an integer", key)
		}
		id = int64(v)
	case int:
		id = int64(v)
	case int64:
		id = v
	default:
		return nil, invalid("%s must be a number", key)
	}
	return &id, nil
}

func optionalInt(params map[string]interface{}, key string, def int) (int, error) {
	v, err := optionalID(params, key)
	if err != nil {
		return 0, err
	}
	if v == nil {
		return def, nil
	}
	return int(*v), nil
}

func requireString(params map[string]interface{}, key string) (string, error) {
	s, ok := params[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", invalid("%s is required", key)
	}
	return s, nil
}

func optionalString(params map[string]interface{}, key string) string {
	s, _ := params[key].(string)
	return s
}

func optionalStringPtr(params map[string]interface{}, key string) *string {
	s, ok := params[key].(string)
	if !ok {
		return nil
	}
	return &s
}

func optionalBool(params map[string]interface{}, key string) (*bool, error) {
	raw, ok := params[key]
	if !ok || raw == nil {
		return nil, nil
	}
	b, ok := raw.(bool)
	if !ok {
		return nil, invalid("%s must be a boolean", key)
	}
	return &b, nil
}

// stringList accepts either a JSON array of strings or a comma-separated string
func stringList(params map[string]interface{}, key string) ([]string, error) {
	var out []string
	switch v := params[key].(type) {
	case nil:
		return nil, nil
	case string:
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	case []interface{}:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, invalid("%s must contain strings", key)
			}
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		out = v
	default:
		return nil, invalid("%s must be a string or array of strings", key)
	}
	return out, nil
}

// schema helpers

func objectSchema(properties map[string]interface{}, required ...string) map[string]interface{} {
	schema := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

func stringArrayProp(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "array",
		"items":       map[string]interface{}{"type": "string"},
		"description": description,
	}
}
