// Package sms provides a simulated SMS gateway. Messages are logged rather
// than sent.
package sms

import (
	"context"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/mr1hm/go-risk-alerts/internal/config"
	"github.com/mr1hm/go-risk-alerts/internal/models"
	"github.com/mr1hm/go-risk-alerts/internal/notify"
)

const (
	Type        = "sms"
	contactKind = "sms"
	maxLength   = 160
)

type Channel struct {
	name    string
	gateway string
	logger  *slog.Logger
}

func New(name, gateway string, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	if gateway == "" {
		gateway = "simulated"
	}
	return &Channel{name: name, gateway: gateway, logger: logger}
}

func Factory(cfg config.ChannelConfig) (notify.Channel, error) {
	return New(cfg.Name, cfg.Settings["gateway"], nil), nil
}

func (c *Channel) Name() string { return c.name }
func (c *Channel) Type() string { return Type }

// Message renders the short text sent to phones.
func Message(alert models.Alert) string {
	msg := fmt.Sprintf("%s ALERT [%s]: %s. Respond: %s", alert.Severity, alert.Category, alert.Trigger, alert.Timeline)
	if utf8.RuneCountInString(msg) > maxLength {
		runes := []rune(msg)
		msg = string(runes[:maxLength-3]) + "..."
	}
	return msg
}

func (c *Channel) Send(ctx context.Context, alert models.Alert, recipients []models.Stakeholder) (notify.DeliveryReport, error) {
	var report notify.DeliveryReport
	msg := Message(alert)

	for _, r := range recipients {
		phone, ok := r.Contact(contactKind)
		if !ok {
			report.Skip(r.Name)
			continue
		}
		if err := ctx.Err(); err != nil {
			report.Failed(r.Name, phone, err)
			continue
		}
		c.logger.InfoContext(ctx, "sms sent", "gateway", c.gateway, "to", phone, "alert_id", alert.ID, "message", msg)
		report.Delivered(r.Name, phone)
	}

	if len(report.Results) > 0 && report.SuccessCount() == 0 {
		return report, fmt.Errorf("no sms delivered: %w", ctx.Err())
	}
	return report, nil
}
