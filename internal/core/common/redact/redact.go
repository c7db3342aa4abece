// Package redact masks credential material in headers and JSON-like values
// before they reach logs or audit snapshots.
package redact

import (
	"encoding/json"
	"net/http"
	"strings"
)

const Mask = "[FILTERED]"

var sensitiveKeys = []string{
	"password",
	"token",
	"authorization",
	"secret",
	"api_key",
	"credential",
	"cookie",
}

// IsSensitiveKey matches on substring, so "password_hash" and "refresh_token" are covered.
func IsSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// Value returns a copy of v with every sensitive map key masked, recursing into maps and slices.
func Value(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if IsSensitiveKey(k) {
				out[k] = Mask
				continue
			}
			out[k] = Value(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, item := range t {
			out[i] = Value(item)
		}
		return out
	default:
		return t
	}
}

// JSON marshals v, masks it and returns the text. Structs are normalized through a JSON round trip first.
func JSON(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return JSONBytes(raw)
}

func JSONBytes(raw []byte) (string, error) {
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	out, err := json.Marshal(Value(generic))
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func Headers(headers http.Header) map[string]string {
	filtered := make(map[string]string, len(headers))
	for name, values := range headers {
		if IsSensitiveKey(name) {
			filtered[name] = Mask
			continue
		}
		filtered[name] = strings.Join(values, ", ")
	}
	return filtered
}
