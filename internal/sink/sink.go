// Package sink implements the two delivery targets: an OpenSearch index
// (primary) and a Logstash HTTP input (secondary). Both accept the flat JSON
// event document and treat any 2xx as success.
package sink

import (
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Kind identifies which side of the cascade a sink serves.
type Kind string

const (
	KindPrimary   Kind = "primary"
	KindSecondary Kind = "secondary"
)

// Descriptor describes one configured delivery target.
type Descriptor struct {
	Kind     Kind   `json:"kind"`
	Name     string `json:"name"`
	Endpoint string `json:"endpoint"`
	Protocol string `json:"protocol"`
}

// Protocol is the only wire protocol the sinks speak.
const Protocol = "POST application/json"

// maxResponseBytes caps how much of a sink response is kept as detail.
const maxResponseBytes = 1 << 20

// StatusError is returned when a sink answers with a non-2xx status.
type StatusError struct {
	Sink       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s responded with status %d", e.Sink, e.StatusCode)
	}
	return fmt.Sprintf("%s responded with status %d: %s", e.Sink, e.StatusCode, e.Body)
}

// NewTransport builds the connection pool shared by both sinks.
// Per-attempt deadlines come from the request context, so no client-level
// timeout is set here.
func NewTransport(tlsSkipVerify bool) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: tlsSkipVerify, //nolint:gosec // dev clusters use self-signed certs
		},
	}
}

func readBody(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}
