package models

import (
	"encoding/json"
	"maps"
	"time"
)

// Severity levels used by the test and startup events.
const (
	LevelDebug = "DEBUG"
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

// Event is a single telemetry record. Its JSON form is the flat document
// both sinks accept: timestamp, level, message, service, environment, data.
//
// An Event is treated as immutable once built with NewEvent. Nothing in the
// delivery path writes to it.
type Event struct {
	Timestamp   time.Time      `json:"timestamp"`
	Level       string         `json:"level"`
	Message     string         `json:"message"`
	Service     string         `json:"service"`
	Environment string         `json:"environment"`
	Data        map[string]any `json:"data"`
}

// NewEvent stamps a new event with the current time. The data map is copied so
// later changes by the caller do not reach the event.
func NewEvent(level, message, service, environment string, data map[string]any) Event {
	return NewEventAt(time.Now().UTC(), level, message, service, environment, data)
}

// NewEventAt is NewEvent with an explicit timestamp.
func NewEventAt(ts time.Time, level, message, service, environment string, data map[string]any) Event {
	copied := make(map[string]any, len(data))
	maps.Copy(copied, data)

	return Event{
		Timestamp:   ts,
		Level:       level,
		Message:     message,
		Service:     service,
		Environment: environment,
		Data:        copied,
	}
}

// EventRequest is the optional body accepted by the delivery endpoints.
// Missing origin fields are filled from the service configuration.
type EventRequest struct {
	Level       string         `json:"level,omitempty"`
	Message     string         `json:"message"`
	Service     string         `json:"service,omitempty"`
	Environment string         `json:"environment,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// DeliveryResponse is the JSON body returned by the delivery endpoints.
type DeliveryResponse struct {
	Success    bool            `json:"success"`
	Method     string          `json:"method,omitempty"`
	Response   json.RawMessage `json:"response,omitempty"`
	Message    string          `json:"message,omitempty"`
	Error      string          `json:"error,omitempty"`
	Suggestion string          `json:"suggestion,omitempty"`
}

// Delivery methods reported to callers.
const (
	MethodDirect   = "direct_elasticsearch"
	MethodLogstash = "via_logstash"
)
