package models

import (
	"strings"
	"time"
)

// EventRecord is an unstructured record handed over by an external monitor.
type EventRecord struct {
	ID          string    `json:"id,omitempty"`
	Source      string    `json:"source,omitempty"` // poller that produced the record
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Description string    `json:"description"`
	Impact      string    `json:"impact,omitempty"`
	URL         string    `json:"url,omitempty"`
	Timestamp   time.Time `json:"timestamp,omitempty"` // when the event occurred
	ReceivedAt  time.Time `json:"-"`                   // when we ingested it
}

// Field returns the text of a named field. Unknown names return "".
func (e *EventRecord) Field(name string) string {
	switch strings.ToLower(name) {
	case "title":
		return e.Title
	case "content":
		return e.Content
	case "description":
		return e.Description
	default:
		return ""
	}
}

// Empty reports whether the record carries no text to evaluate.
func (e *EventRecord) Empty() bool {
	return strings.TrimSpace(e.Title) == "" &&
		strings.TrimSpace(e.Content) == "" &&
		strings.TrimSpace(e.Description) == ""
}
