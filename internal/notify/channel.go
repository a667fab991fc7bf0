package notify

import (
	"context"
	"fmt"

	"github.com/mr1hm/go-risk-alerts/internal/models"
)

// Channel delivers an alert to a set of recipients. Implementations should
// return an error only when nothing was delivered; partial recipient
// failures belong in the report.
type Channel interface {
	Name() string
	Type() string
	Send(ctx context.Context, alert models.Alert, recipients []models.Stakeholder) (DeliveryReport, error)
}

type RecipientResult struct {
	Recipient string `json:"recipient"`
	Address   string `json:"address,omitempty"`
	Error     string `json:"error,omitempty"`
}

func (r RecipientResult) OK() bool {
	return r.Error == ""
}

// DeliveryReport holds per-recipient outcomes of one channel send.
type DeliveryReport struct {
	Results []RecipientResult `json:"results"`
	Skipped []string          `json:"skipped,omitempty"` // recipients without an address for this channel
}

func (r *DeliveryReport) Delivered(recipient, address string) {
	r.Results = append(r.Results, RecipientResult{Recipient: recipient, Address: address})
}

func (r *DeliveryReport) Failed(recipient, address string, err error) {
	r.Results = append(r.Results, RecipientResult{Recipient: recipient, Address: address, Error: err.Error()})
}

func (r *DeliveryReport) Skip(recipient string) {
	r.Skipped = append(r.Skipped, recipient)
}

func (r DeliveryReport) SuccessCount() int {
	n := 0
	for _, res := range r.Results {
		if res.OK() {
			n++
		}
	}
	return n
}

func (r DeliveryReport) FailureCount() int {
	return len(r.Results) - r.SuccessCount()
}

// DeliveryError is recorded when a channel fails to deliver an alert.
type DeliveryError struct {
	Channel string
	Err     error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("channel %s: %v", e.Channel, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
