// Package env reads process settings that are needed before config.Load runs.
package env

import (
	"os"
	"strings"
)

// Get returns the value of the given environment variable or a fallback.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// First returns the first non-empty value among the named variables.
func First(keys ...string) string {
	for _, key := range keys {
		if val := strings.TrimSpace(os.Getenv(key)); val != "" {
			return val
		}
	}
	return ""
}

// LogFormat is "console" or "json"; STOREFRONT_LOG_FORMAT wins over LOG_FORMAT.
func LogFormat() string {
	if strings.EqualFold(First("STOREFRONT_LOG_FORMAT", "LOG_FORMAT"), "console") {
		return "console"
	}
	return "json"
}

// InstanceID names the running process in logs: the platform dyno, then the host name.
func InstanceID() string {
	if id := First("STOREFRONT_INSTANCE_ID", "DYNO", "HOSTNAME"); id != "" {
		return id
	}
	return "local"
}
