package ingestion

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

type rssFeed struct {
	Channel rssChannel `xml:"channel"`
}
type rssChannel struct {
	Items []rssItem `xml:"item"`
}
type rssItem struct {
	GUID        string `xml:"guid"`
	Title       string `xml:"title"`
	Description string `xml:"description"`
	Content     string `xml:"http://purl.org/rss/1.0/modules/content/ encoded"`
	Link        string `xml:"link"`
	PubDate     string `xml:"pubDate"`
}

// RSSSource polls an RSS 2.0 news feed.
type RSSSource struct {
	name   string
	url    string
	client *http.Client
}

func NewRSSSource(name, url string) *RSSSource {
	return &RSSSource{
		name:   name,
		url:    url,
		client: &http.Client{Timeout: fetchTimeout},
	}
}

func (s *RSSSource) Name() string { return s.name }

func (s *RSSSource) Fetch(ctx context.Context) ([]models.EventRecord, error) {
	resp, err := get(ctx, s.client, s.url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var feed rssFeed
	if err := xml.NewDecoder(resp.Body).Decode(&feed); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	records := make([]models.EventRecord, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		id := strings.TrimSpace(item.GUID)
		if id == "" {
			id = strings.TrimSpace(item.Link)
		}

		var ts time.Time
		if item.PubDate != "" {
			ts, err = time.Parse(time.RFC1123Z, item.PubDate)
			if err != nil {
				ts, err = time.Parse(time.RFC1123, item.PubDate)
			}
			if err != nil {
				slog.Warn("rss timestamp parsing failed", "source", s.name, "id", id, "error", err.Error())
			}
		}

		// feeds without content:encoded carry the body in the description
		content := item.Content
		if content == "" {
			content = item.Description
		}

		records = append(records, models.EventRecord{
			ID:        id,
			Source:    s.name,
			Title:     strings.TrimSpace(item.Title),
			Content:   content,
			URL:       item.Link,
			Timestamp: ts,
		})
	}
	return records, nil
}
