// package repositories provides persistence layer implementations for all model types.
package repositories

import (
	"encoding/json"
	"fmt"
)

func encodeData(data map[string]string) (string, error) {
	if data == nil {
		data = map[string]string{}
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to encode session data: %w", err)
	}
	return string(b), nil
}

func decodeData(raw string) (map[string]string, error) {
	data := map[string]string{}
	if raw == "" {
		return data, nil
	}
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return nil, fmt.Errorf("failed to decode session data: %w", err)
	}
	return data, nil
}
