package core

import "strings"

const RedactedValue = "[REDACTED]"

// RedactHeaders masks credential-bearing headers before they reach logs.
func RedactHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	out := make(map[string]string, len(headers))
	for key, value := range headers {
		if shouldRedactKey(key) {
			out[key] = RedactedValue
			continue
		}
		out[key] = value
	}
	return out
}

func shouldRedactKey(key string) bool {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" || isTraceabilityKey(key) {
		return false
	}
	sensitiveTokens := []string{
		"password",
		"secret",
		"token",
		"authorization",
		"api-key",
		"api_key",
		"apikey",
		"cookie",
		"signature",
	}
	for _, token := range sensitiveTokens {
		if strings.Contains(key, token) {
			return true
		}
	}
	return false
}

func isTraceabilityKey(key string) bool {
	switch key {
	case "x-request-id",
		"x-trace-id",
		"traceparent",
		"idempotency-key":
		return true
	default:
		return false
	}
}
