package delivery

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Path names the sink that accepted an event.
type Path string

const (
	PathPrimary   Path = "primary"
	PathSecondary Path = "secondary"
	PathNone      Path = "none"
)

var (
	// ErrInvalidEvent is returned for events missing a message or service.
	ErrInvalidEvent = errors.New("invalid event")

	// ErrCanceled is returned when the caller's context ends mid-delivery.
	ErrCanceled = errors.New("delivery canceled")
)

// Outcome is the result of one Deliver call. Callers branch on Path.
type Outcome struct {
	Success bool
	Path    Path

	// Response is the accepting sink's response body. Non-JSON bodies are
	// carried as a JSON string.
	Response json.RawMessage

	// Err describes why delivery failed. Nil when Success is true.
	Err error
}

// Detail returns the response payload on success or the error text on failure.
func (o Outcome) Detail() string {
	if o.Err != nil {
		return o.Err.Error()
	}
	return string(o.Response)
}

// FailureError reports that both sinks rejected an event.
type FailureError struct {
	PrimarySink   string
	SecondarySink string
	Primary       error
	Secondary     error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("both %s and %s are unavailable: primary: %v; secondary: %v",
		e.PrimarySink, e.SecondarySink, e.Primary, e.Secondary)
}

// Unwrap exposes both causes to errors.Is and errors.As.
func (e *FailureError) Unwrap() []error {
	return []error{e.Primary, e.Secondary}
}

func responseJSON(body []byte) json.RawMessage {
	if len(body) == 0 {
		return nil
	}
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	quoted, err := json.Marshal(string(body))
	if err != nil {
		return nil
	}
	return json.RawMessage(quoted)
}
