package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// WithTimeout runs fn with a context that expires after timeout. A zero
// timeout runs fn with the parent context. fn runs on the calling goroutine
// and must return once ctx is done; the deadline error is reported only when
// fn itself fails.
func WithTimeout(parentCtx context.Context, timeout time.Duration, fn func(ctx context.Context) error) error {
	if timeout <= 0 {
		return fn(parentCtx)
	}
	ctx, cancel := context.WithTimeout(parentCtx, timeout)
	defer cancel()
	return fn(ctx)
}

// ToJSONValue converts v into plain JSON values (maps, slices, strings,
// float64, bool) by encoding and decoding it.
func ToJSONValue(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode value: %w", err)
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("could not decode value: %w", err)
	}
	return out, nil
}

// ToJSONMap is ToJSONValue for values that encode as JSON objects.
func ToJSONMap(v any) (map[string]any, error) {
	out, err := ToJSONValue(v)
	if err != nil {
		return nil, err
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("value of type %T is not an object", v)
	}
	return m, nil
}

// MergeMaps returns a new map holding the entries of maps in order, so a key
// present in several maps takes its value from the last one.
func MergeMaps(maps ...map[string]any) map[string]any {
	result := make(map[string]any)
	for _, m := range maps {
		for k, v := range m {
			result[k] = v
		}
	}
	return result
}
