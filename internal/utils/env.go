package utils

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnvOrDefault returns the trimmed environment value or the default.
func GetEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// ParseInteger parses an integer or returns the default.
func ParseInteger(value string, defaultValue int) int {
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return defaultValue
	}
	return parsed
}

// ParseBoolean accepts the usual spellings of a boolean flag.
func ParseBoolean(value string, defaultValue bool) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	default:
		return defaultValue
	}
}

// ParseArray splits a comma separated list, dropping empty items.
func ParseArray(value string, defaultValue []string) []string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ParseMillis reads a millisecond count as a duration.
func ParseMillis(value string, defaultValue time.Duration) time.Duration {
	ms := ParseInteger(value, -1)
	if ms < 0 {
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}
