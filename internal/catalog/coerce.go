package catalog

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"github.com/tartampluch/go-daily-events/internal/apperr"
)

// fieldError builds the configuration error for one field of one record.
func fieldError(index int, field, format string, args ...any) *goerrors.Error {
	prefix := recordContext(index)
	if field != "" {
		prefix += "." + field
	}
	err := apperr.Config(prefix+": "+format, args...)
	err.WithMetadata(map[string]any{"index": index, "field": field})
	return err
}

func recordContext(index int) string {
	return "events[" + strconv.Itoa(index) + "]"
}

func asInt(v any, index int, field string) (int, error) {
	switch n := v.(type) {
	case bool:
		return 0, fieldError(index, field, "expected integer, got boolean")
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fieldError(index, field, "expected integer, got number %s", n.String())
		}
		return int(i), nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fieldError(index, field, "expected integer, got number %v", n)
		}
		return int(n), nil
	default:
		return 0, fieldError(index, field, "expected integer, got %s", typeName(v))
	}
}

func asString(v any, index int, field string, allowEmpty bool) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", fieldError(index, field, "expected string, got %s", typeName(v))
	}
	s = strings.TrimSpace(s)
	if !allowEmpty && s == "" {
		return "", fieldError(index, field, "string is empty")
	}
	return s, nil
}

func asBool(v any, index int, field string) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fieldError(index, field, "expected boolean, got %s", typeName(v))
	}
	return b, nil
}

// typeName names a decoded JSON value the way a catalog author would.
func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case string:
		return "string"
	case json.Number, int, int64, float64:
		return "number"
	case []any:
		return "list"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}

// present returns the value of key when it exists and is not null.
func present(obj map[string]any, key string) (any, bool) {
	v, ok := obj[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}
