package logging

import (
	"log/slog"
	"time"
)

// Common field names so every component logs the same keys.
const (
	FieldService      = "service"
	FieldEnvironment  = "environment"
	FieldRequestID    = "request_id"
	FieldMethod       = "method"
	FieldPath         = "path"
	FieldStatus       = "status"
	FieldDuration     = "duration_ms"
	FieldError        = "error"
	FieldSink         = "sink"
	FieldDeliveryPath = "delivery_path"
	FieldIP           = "ip"
)

// Service returns a slog attribute for the service name.
func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

// Environment returns a slog attribute for the deployment environment.
func Environment(env string) slog.Attr {
	return slog.String(FieldEnvironment, env)
}

// Method returns a slog attribute for the HTTP method.
func Method(method string) slog.Attr {
	return slog.String(FieldMethod, method)
}

// Path returns a slog attribute for the HTTP path.
func Path(path string) slog.Attr {
	return slog.String(FieldPath, path)
}

// Status returns a slog attribute for an HTTP status code.
func Status(code int) slog.Attr {
	return slog.Int(FieldStatus, code)
}

// Duration returns a slog attribute for a duration in milliseconds.
func Duration(d time.Duration) slog.Attr {
	return slog.Int64(FieldDuration, d.Milliseconds())
}

// Error returns a slog attribute for an error. A nil error logs as empty.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}

// Sink returns a slog attribute naming a delivery sink.
func Sink(name string) slog.Attr {
	return slog.String(FieldSink, name)
}

// DeliveryPath returns a slog attribute for the path a delivery took.
func DeliveryPath(path string) slog.Attr {
	return slog.String(FieldDeliveryPath, path)
}

// IP returns a slog attribute for a client IP address.
func IP(ip string) slog.Attr {
	return slog.String(FieldIP, ip)
}
