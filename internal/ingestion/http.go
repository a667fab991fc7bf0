package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

const fetchTimeout = 15 * time.Second

// HTTPSource polls an endpoint returning a JSON array of event records.
type HTTPSource struct {
	name   string
	url    string
	client *http.Client
}

func NewHTTPSource(name, url string) *HTTPSource {
	return &HTTPSource{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: fetchTimeout},
	}
}

func (s *HTTPSource) Name() string { return s.name }

func (s *HTTPSource) Fetch(ctx context.Context) ([]models.EventRecord, error) {
	resp, err := get(ctx, s.client, s.url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var records []models.EventRecord
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}
	return records, nil
}

func get(ctx context.Context, client *http.Client, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error doing request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}
	return resp, nil
}
