package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// StringArg returns a string argument or def when absent.
func StringArg(args map[string]any, key, def string) (string, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s must be a string", ErrInvalidArgType, key)
	}
	return s, nil
}

// IntArg returns an integer argument or def when absent. Backends decode JSON
// numbers as float64, so whole floats and numeric strings are accepted.
func IntArg(args map[string]any, key string, def int) (int, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidArgType, key)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidArgType, key)
		}
		return int(i), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidArgType, key)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidArgType, key)
	}
}

// BoolArg returns a boolean argument or def when absent.
func BoolArg(args map[string]any, key string, def bool) (bool, error) {
	v, ok := args[key]
	if !ok || v == nil {
		return def, nil
	}
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		parsed, err := strconv.ParseBool(b)
		if err != nil {
			return false, fmt.Errorf("%w: %s must be a boolean", ErrInvalidArgType, key)
		}
		return parsed, nil
	default:
		return false, fmt.Errorf("%w: %s must be a boolean", ErrInvalidArgType, key)
	}
}

// Summarize renders args as compact JSON truncated to max characters.
func Summarize(args map[string]any, max int) string {
	if len(args) == 0 {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	return Truncate(string(data), max)
}

// Truncate cuts s to at most max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if max <= 0 || len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}
