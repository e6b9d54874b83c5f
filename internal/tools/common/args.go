package common

import (
	"fmt"
	"strings"
)

// UserID extracts the required userId argument.
func UserID(args map[string]interface{}) (string, error) {
	userID, ok := args["userId"].(string)
	if !ok || userID == "" {
		return "", fmt.Errorf("userId is required")
	}
	return userID, nil
}

// StringArg returns the string argument for key, or "" when absent.
func StringArg(args map[string]interface{}, key string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return ""
}

// IntArg returns the integer argument for key, or def when absent.
// JSON numbers arrive as float64.
func IntArg(args map[string]interface{}, key string, def int64) int64 {
	switch val := args[key].(type) {
	case float64:
		return int64(val)
	case int64:
		return val
	case int:
		return int64(val)
	default:
		return def
	}
}

// BoolArg returns the boolean argument for key, or false when absent.
func BoolArg(args map[string]interface{}, key string) bool {
	val, _ := args[key].(bool)
	return val
}

// EmailList splits a comma-separated list of email addresses, trimming
// whitespace and dropping empty entries. Returns nil for an empty input so
// callers can distinguish "absent" from "present but empty".
func EmailList(raw string) []string {
	if raw == "" {
		return nil
	}

	var emails []string
	for _, part := range strings.Split(raw, ",") {
		if email := strings.TrimSpace(part); email != "" {
			emails = append(emails, email)
		}
	}
	return emails
}
