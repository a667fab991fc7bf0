package ingestion

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mr1hm/go-risk-alerts/internal/config"
	"github.com/mr1hm/go-risk-alerts/internal/models"
)

func bytesReader(b []byte) io.Reader { return bytes.NewReader(b) }

func TestHTTPSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[
			{"id": "n1", "title": "Google announces Brazil education investment", "content": "partnership"},
			{"id": "n2", "title": "Weather report", "timestamp": "2026-03-10T12:00:00Z"}
		]`))
	}))
	defer srv.Close()

	records, err := NewHTTPSource("news", srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ID != "n1" || records[0].Content != "partnership" {
		t.Errorf("unexpected first record: %+v", records[0])
	}
	if !records[1].Timestamp.Equal(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp: %v", records[1].Timestamp)
	}
}

func TestHTTPSource_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	if _, err := NewHTTPSource("news", srv.URL).Fetch(context.Background()); err == nil {
		t.Error("expected error on 502")
	}
}

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
  <channel>
    <title>Education news</title>
    <item>
      <guid>https://news.example.com/1</guid>
      <title>Ministry announces new education policy</title>
      <description>Summary of the policy</description>
      <content:encoded>Full article on the regulation change</content:encoded>
      <link>https://news.example.com/1</link>
      <pubDate>Tue, 10 Mar 2026 12:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Competitor raises Series B</title>
      <description>Funding round closes</description>
      <link>https://news.example.com/2</link>
    </item>
  </channel>
</rss>`

func TestRSSSource_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleFeed))
	}))
	defer srv.Close()

	records, err := NewRSSSource("edu-news", srv.URL).Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.ID != "https://news.example.com/1" {
		t.Errorf("unexpected id %q", first.ID)
	}
	if first.Content != "Full article on the regulation change" {
		t.Errorf("unexpected content %q", first.Content)
	}
	if first.Source != "edu-news" {
		t.Errorf("unexpected source %q", first.Source)
	}
	if !first.Timestamp.Equal(time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)) {
		t.Errorf("unexpected timestamp %v", first.Timestamp)
	}

	second := records[1]
	if second.ID != "https://news.example.com/2" {
		t.Errorf("expected link as id, got %q", second.ID)
	}
	if second.Content != "Funding round closes" {
		t.Errorf("expected description as content, got %q", second.Content)
	}
}

func TestManualSource(t *testing.T) {
	src := NewManualSource("manual", 2)

	if err := src.Enqueue(models.EventRecord{ID: "a", Title: "a"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := src.Enqueue(models.EventRecord{ID: "b", Title: "b"}); err != nil {
		t.Fatalf("Enqueue failed: %v", err)
	}
	if err := src.Enqueue(models.EventRecord{ID: "c", Title: "c"}); !errors.Is(err, ErrQueueFull) {
		t.Errorf("expected ErrQueueFull, got %v", err)
	}

	select {
	case <-src.Ready():
	default:
		t.Error("expected ready signal")
	}

	records, _ := src.Fetch(context.Background())
	if len(records) != 2 || records[0].ID != "a" || records[1].ID != "b" {
		t.Errorf("unexpected records: %+v", records)
	}

	records, _ = src.Fetch(context.Background())
	if len(records) != 0 {
		t.Errorf("expected empty queue, got %d", len(records))
	}
}

func TestNewSource(t *testing.T) {
	if _, err := NewSource(config.SourceConfig{Name: "x", Type: "carrier-pigeon"}); err == nil {
		t.Error("expected error for unknown type")
	}
	if _, err := NewSource(config.SourceConfig{Name: "q", Type: "redis"}); err == nil {
		t.Error("expected error for redis source without key")
	}

	src, err := NewSource(config.SourceConfig{Name: "q", Type: "redis", RedisAddr: "127.0.0.1:6390", RedisKey: "ews:events"})
	if err != nil {
		t.Fatalf("NewSource failed: %v", err)
	}
	rs, ok := src.(*RedisSource)
	if !ok {
		t.Fatalf("expected *RedisSource, got %T", src)
	}
	if rs.batchSize != defaultBatchSize {
		t.Errorf("expected default batch size, got %d", rs.batchSize)
	}
	rs.Close()
}
