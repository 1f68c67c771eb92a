package sink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
)

// HTTP posts events to a plain JSON HTTP input such as Logstash's http plugin.
type HTTP struct {
	name       string
	url        string
	httpClient *http.Client
}

// NewHTTP creates a sink posting to url. name is used in logs and errors.
func NewHTTP(name, url string, transport http.RoundTripper) (*HTTP, error) {
	if url == "" {
		return nil, fmt.Errorf("%s url is required", name)
	}
	return &HTTP{
		name: name,
		url:  url,
		httpClient: &http.Client{
			Transport: transport,
		},
	}, nil
}

// Name identifies the sink in logs, metrics and error messages.
func (s *HTTP) Name() string {
	return s.name
}

// Endpoint returns the URL events are posted to.
func (s *HTTP) Endpoint() string {
	return s.url
}

// Send posts one serialized event and returns the raw response body.
func (s *HTTP) Send(ctx context.Context, payload []byte) ([]byte, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp.Body)
	if err != nil {
		return nil, err
	}

	if !isSuccess(resp.StatusCode) {
		return nil, &StatusError{Sink: s.name, StatusCode: resp.StatusCode, Body: string(body)}
	}

	return body, nil
}
