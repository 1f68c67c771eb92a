package sink

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// OpenSearchConfig holds the primary sink connection settings.
type OpenSearchConfig struct {
	URL      string
	Username string
	Password string
	Index    string
}

// OpenSearch indexes events with POST /<index>/_doc.
type OpenSearch struct {
	client *opensearch.Client
	index  string
	url    string
}

// NewOpenSearch creates the primary sink. The client never retries on its
// own: the delivery router owns the single fallback hop.
func NewOpenSearch(cfg OpenSearchConfig, transport http.RoundTripper) (*OpenSearch, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("opensearch url is required")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("opensearch index is required")
	}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses:    []string{cfg.URL},
		Username:     cfg.Username,
		Password:     cfg.Password,
		Transport:    transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	return &OpenSearch{
		client: client,
		index:  cfg.Index,
		url:    cfg.URL,
	}, nil
}

// Name identifies the sink in logs, metrics and error messages.
func (s *OpenSearch) Name() string {
	return "elasticsearch"
}

// Endpoint returns the document endpoint events are posted to.
func (s *OpenSearch) Endpoint() string {
	return s.url + "/" + s.index + "/_doc"
}

// Send indexes one serialized event and returns the raw response body.
func (s *OpenSearch) Send(ctx context.Context, payload []byte) ([]byte, error) {
	req := opensearchapi.IndexRequest{
		Index: s.index,
		Body:  bytes.NewReader(payload),
		Header: http.Header{
			"Content-Type": []string{"application/json"},
		},
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("index request: %w", err)
	}
	defer res.Body.Close()

	body, err := readBody(res.Body)
	if err != nil {
		return nil, err
	}

	if !isSuccess(res.StatusCode) {
		return nil, &StatusError{Sink: s.Name(), StatusCode: res.StatusCode, Body: string(body)}
	}

	return body, nil
}
