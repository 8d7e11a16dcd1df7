package telemetry

import (
	"net/url"
	"strings"
)

const redacted = "[REDACTED]"

var sensitiveKeys = map[string]struct{}{
	"access_token":  {},
	"refresh_token": {},
	"client_secret": {},
	"authorization": {},
	"password":      {},
	"token":         {},
}

// RedactValue hides sensitive values by returning a placeholder.
func RedactValue(key string, value any) any {
	if _, ok := sensitiveKeys[strings.ToLower(key)]; ok {
		return redacted
	}
	return value
}

// RedactMap returns a shallow redacted copy of the map.
func RedactMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = RedactValue(k, v)
	}
	return out
}

// RedactQuery sanitizes URL query parameters and any userinfo password.
func RedactQuery(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	if parsed.User != nil {
		if _, ok := parsed.User.Password(); ok {
			parsed.User = url.UserPassword(parsed.User.Username(), redacted)
		}
	}
	if parsed.RawQuery == "" {
		return parsed.String()
	}
	q := parsed.Query()
	for key := range q {
		if _, ok := sensitiveKeys[strings.ToLower(key)]; ok {
			q.Set(key, redacted)
		}
	}
	parsed.RawQuery = q.Encode()
	return parsed.String()
}
