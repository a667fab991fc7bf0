// Package email delivers alerts over SMTP.
package email

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/gomail.v2"

	"github.com/mr1hm/go-risk-alerts/internal/config"
	"github.com/mr1hm/go-risk-alerts/internal/models"
	"github.com/mr1hm/go-risk-alerts/internal/notify"
)

const (
	Type        = "email"
	contactKind = "email"
)

var bodyTemplate = template.Must(template.New("alert").Parse(`<html><body>
<h2>{{.Subject}}</h2>
<table>
<tr><td><b>Alert</b></td><td>{{.Alert.ID}}</td></tr>
<tr><td><b>Category</b></td><td>{{.Alert.Category}}</td></tr>
<tr><td><b>Severity</b></td><td>{{.Alert.Severity}}</td></tr>
<tr><td><b>Response</b></td><td>{{.Alert.Timeline}}</td></tr>
</table>
<p>{{.Alert.Description}}</p>
<p><b>Impact:</b> {{.Alert.ImpactAssessment}}</p>
{{if .Alert.Actions}}<h3>Recommended actions</h3>
<ul>{{range .Alert.Actions}}
<li>[{{.Priority}}] {{.Description}} ({{.ResponsibleParty}}, due {{.Deadline.Format "2006-01-02 15:04"}})</li>{{end}}
</ul>{{end}}
</body></html>`))

// dialer opens an SMTP session. *gomail.Dialer satisfies it.
type dialer interface {
	Dial() (gomail.SendCloser, error)
}

type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type Channel struct {
	name   string
	from   string
	dialer dialer
}

func New(name string, cfg Config) (*Channel, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.From == "" {
		return nil, errors.New("from address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}

	var d *gomail.Dialer
	if cfg.Username == "" {
		d = &gomail.Dialer{Host: cfg.Host, Port: cfg.Port}
	} else {
		d = gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	}

	return &Channel{name: name, from: cfg.From, dialer: d}, nil
}

// Factory reads host, port, username, from and passwordEnv from the channel
// settings. The password itself comes from the named environment variable.
func Factory(cfg config.ChannelConfig) (notify.Channel, error) {
	s := cfg.Settings
	port := 0
	if p := s["port"]; p != "" {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid smtp port %q: %w", p, err)
		}
		port = n
	}

	password := ""
	if env := s["passwordEnv"]; env != "" {
		password = os.Getenv(env)
	}

	return New(cfg.Name, Config{
		Host:     s["host"],
		Port:     port,
		Username: s["username"],
		Password: password,
		From:     s["from"],
	})
}

func (c *Channel) Name() string { return c.name }
func (c *Channel) Type() string { return Type }

// Send opens one SMTP session and sends one message per recipient with an
// email contact. Recipients without one are skipped.
func (c *Channel) Send(ctx context.Context, alert models.Alert, recipients []models.Stakeholder) (notify.DeliveryReport, error) {
	var report notify.DeliveryReport

	type target struct{ name, addr string }
	var targets []target
	for _, r := range recipients {
		addr, ok := r.Contact(contactKind)
		if !ok {
			report.Skip(r.Name)
			continue
		}
		targets = append(targets, target{r.Name, addr})
	}
	if len(targets) == 0 {
		return report, nil
	}

	subject := notify.Subject(alert)
	var body bytes.Buffer
	if err := bodyTemplate.Execute(&body, struct {
		Subject string
		Alert   models.Alert
	}{subject, alert}); err != nil {
		return report, fmt.Errorf("render body: %w", err)
	}

	conn, err := c.dialer.Dial()
	if err != nil {
		err = fmt.Errorf("dial smtp: %w", err)
		for _, t := range targets {
			report.Failed(t.name, t.addr, err)
		}
		return report, err
	}
	defer func() { _ = conn.Close() }()

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			report.Failed(t.name, t.addr, err)
			continue
		}

		m := gomail.NewMessage()
		m.SetHeader("From", c.from)
		m.SetHeader("To", t.addr)
		m.SetHeader("Subject", subject)
		m.SetBody("text/plain", notify.Text(alert))
		m.AddAlternative("text/html", body.String())

		if err := gomail.Send(conn, m); err != nil {
			slog.Warn("email delivery failed", "channel", c.name, "to", t.addr, "error", err)
			report.Failed(t.name, t.addr, err)
			continue
		}
		report.Delivered(t.name, t.addr)
	}

	if report.SuccessCount() == 0 {
		return report, errors.New("no email delivered")
	}
	return report, nil
}
