package sms

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

func TestSend_LogsOneLinePerPhone(t *testing.T) {
	var buf bytes.Buffer
	ch := New("phones", "", slog.New(slog.NewTextHandler(&buf, nil)))

	alert := models.Alert{ID: "alert_1", Severity: models.SeverityRed, Category: models.CategorySecurityBreach, Trigger: "Breach", Timeline: models.ResponseImmediate}
	recipients := []models.Stakeholder{
		{Name: "CEO", Contacts: map[string]string{"sms": "+5511999990001"}},
		{Name: "Board", Contacts: map[string]string{"email": "board@company.com"}},
	}

	report, err := ch.Send(context.Background(), alert, recipients)
	require.NoError(t, err)
	assert.Equal(t, 1, report.SuccessCount())
	assert.Equal(t, []string{"Board"}, report.Skipped)
	assert.Equal(t, 1, strings.Count(buf.String(), "sms sent"))
	assert.Contains(t, buf.String(), "+5511999990001")
}

func TestSend_CancelledContext(t *testing.T) {
	ch := New("phones", "", slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ch.Send(ctx, models.Alert{}, []models.Stakeholder{{Name: "CEO", Contacts: map[string]string{"sms": "+1"}}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMessage_Truncated(t *testing.T) {
	alert := models.Alert{Severity: models.SeverityYellow, Trigger: strings.Repeat("x", 300)}
	msg := Message(alert)
	assert.Equal(t, maxLength, utf8.RuneCountInString(msg))
	assert.True(t, strings.HasSuffix(msg, "..."))
}
