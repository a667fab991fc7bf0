package notify

import (
	"context"
	"log/slog"

	"github.com/mr1hm/go-risk-alerts/internal/config"
	"github.com/mr1hm/go-risk-alerts/internal/models"
)

const LogChannelType = "log"

// LogChannel writes alerts to the structured log.
type LogChannel struct {
	name string
}

func NewLogChannel(cfg config.ChannelConfig) (Channel, error) {
	return &LogChannel{name: cfg.Name}, nil
}

func (c *LogChannel) Name() string { return c.name }
func (c *LogChannel) Type() string { return LogChannelType }

func (c *LogChannel) Send(ctx context.Context, alert models.Alert, recipients []models.Stakeholder) (DeliveryReport, error) {
	var report DeliveryReport
	for _, r := range recipients {
		slog.InfoContext(ctx, "risk alert",
			"alert_id", alert.ID,
			"category", alert.Category,
			"severity", alert.Severity.String(),
			"timeline", alert.Timeline,
			"escalations", alert.EscalationCount,
			"recipient", r.Name,
			"role", r.Role,
		)
		report.Delivered(r.Name, string(r.Role))
	}
	return report, nil
}
