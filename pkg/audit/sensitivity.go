package audit

import (
	"encoding/json"
	"strings"
)

// sensitiveActions always trigger encryption.
var sensitiveActions = map[string]bool{
	"user_authentication":  true,
	"data_access":          true,
	"file_modification":    true,
	"configuration_change": true,
	"secrets_management":   true,
}

// sensitiveKeywords trigger encryption when they appear anywhere in the
// serialized details, case-insensitively.
var sensitiveKeywords = []string{
	"password",
	"token",
	"key",
	"secret",
	"credential",
	"api_key",
}

// isSensitive is the predicate deciding whether an entry must be
// encrypted before persistence.
func isSensitive(action string, details map[string]any) bool {
	if sensitiveActions[action] {
		return true
	}
	if len(details) == 0 {
		return false
	}
	serialized, err := json.Marshal(details)
	if err != nil {
		// Unserializable details cannot be inspected; treat them as
		// sensitive rather than risk a plaintext leak.
		return true
	}
	haystack := strings.ToLower(string(serialized))
	for _, kw := range sensitiveKeywords {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}
