// Package webhook delivers alerts to Slack-compatible incoming webhooks.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mr1hm/go-risk-alerts/internal/config"
	"github.com/mr1hm/go-risk-alerts/internal/models"
	"github.com/mr1hm/go-risk-alerts/internal/notify"
)

const (
	Type            = "webhook"
	defaultUsername = "Early Warning System"
)

var severityColors = map[models.Severity]string{
	models.SeverityRed:    "#d32f2f",
	models.SeverityOrange: "#f57c00",
	models.SeverityYellow: "#fbc02d",
	models.SeverityGreen:  "#388e3c",
}

type Config struct {
	URL      string
	Username string
	Timeout  time.Duration
}

type Channel struct {
	name       string
	config     Config
	httpClient *http.Client
}

func New(name string, cfg Config) (*Channel, error) {
	if cfg.URL == "" {
		return nil, errors.New("webhook url is required")
	}
	if cfg.Username == "" {
		cfg.Username = defaultUsername
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Channel{
		name:       name,
		config:     cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Factory builds a webhook channel from settings url and username.
func Factory(cfg config.ChannelConfig) (notify.Channel, error) {
	return New(cfg.Name, Config{
		URL:      cfg.Settings["url"],
		Username: cfg.Settings["username"],
		Timeout:  cfg.Timeout(),
	})
}

func (c *Channel) Name() string { return c.name }
func (c *Channel) Type() string { return Type }

type field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

type attachment struct {
	Color  string  `json:"color"`
	Title  string  `json:"title"`
	Text   string  `json:"text"`
	Fields []field `json:"fields"`
	Footer string  `json:"footer"`
	Ts     int64   `json:"ts"`
}

type payload struct {
	Username    string       `json:"username,omitempty"`
	Text        string       `json:"text"`
	Attachments []attachment `json:"attachments"`
}

// Send posts one message naming every recipient. All recipients share the
// outcome of the single request.
func (c *Channel) Send(ctx context.Context, alert models.Alert, recipients []models.Stakeholder) (notify.DeliveryReport, error) {
	var report notify.DeliveryReport

	names := make([]string, 0, len(recipients))
	for _, r := range recipients {
		names = append(names, fmt.Sprintf("%s (%s)", r.Name, r.Role))
	}

	msg := payload{
		Username: c.config.Username,
		Text:     notify.Subject(alert),
		Attachments: []attachment{{
			Color: severityColors[alert.Severity],
			Title: alert.Trigger,
			Text:  alert.Description,
			Fields: []field{
				{Title: "Category", Value: string(alert.Category), Short: true},
				{Title: "Response", Value: string(alert.Timeline), Short: true},
				{Title: "Impact", Value: alert.ImpactAssessment},
				{Title: "Stakeholders", Value: strings.Join(names, ", ")},
			},
			Footer: alert.ID,
			Ts:     alert.LastUpdated.Unix(),
		}},
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return report, fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL, bytes.NewReader(body))
	if err != nil {
		return report, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		err = fmt.Errorf("send request: %w", err)
		fail(&report, recipients, err)
		return report, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		err := fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
		fail(&report, recipients, err)
		return report, err
	}

	for _, r := range recipients {
		report.Delivered(r.Name, "")
	}
	slog.Debug("webhook message sent", "channel", c.name, "alert_id", alert.ID)
	return report, nil
}

func fail(report *notify.DeliveryReport, recipients []models.Stakeholder, err error) {
	for _, r := range recipients {
		report.Failed(r.Name, "", err)
	}
}
