package logger

import "log/slog"

// Standard field keys for structured logging. Use these keys consistently
// across all log statements for log aggregation and querying.
const (
	KeyAPI        = "api"         // API path being served (/v1/login, ...)
	KeyHost       = "host"        // Upstream portal base URL
	KeyStatus     = "status"      // HTTP status code
	KeyRequestID  = "request_id"  // Per-request correlation ID
	KeyRemoteAddr = "remote_addr" // Client address
	KeyDurationMs = "duration_ms" // Operation duration in milliseconds
	KeyError      = "error"       // Error message
)

// API returns a slog.Attr for the API path
func API(path string) slog.Attr {
	return slog.String(KeyAPI, path)
}

// Host returns a slog.Attr for the upstream host
func Host(host string) slog.Attr {
	return slog.String(KeyHost, host)
}

// Status returns a slog.Attr for an HTTP status code
func Status(code int) slog.Attr {
	return slog.Int(KeyStatus, code)
}

// DurationMs returns a slog.Attr for a duration in milliseconds
func DurationMs(ms float64) slog.Attr {
	return slog.Float64(KeyDurationMs, ms)
}

// Err returns a slog.Attr for an error
func Err(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.String(KeyError, err.Error())
}
