package models

import (
	"fmt"
	"strings"
	"time"
)

type Severity int

const (
	SeverityUnknown Severity = iota
	SeverityGreen
	SeverityYellow
	SeverityOrange
	SeverityRed
)

var severityNames = map[Severity]string{
	SeverityGreen:  "Green",
	SeverityYellow: "Yellow",
	SeverityOrange: "Orange",
	SeverityRed:    "Red",
}

// escalationTable is the single source of truth for moving a severity one
// step up. Red maps to itself.
var escalationTable = map[Severity]Severity{
	SeverityGreen:  SeverityYellow,
	SeverityYellow: SeverityOrange,
	SeverityOrange: SeverityRed,
	SeverityRed:    SeverityRed,
}

func (s Severity) String() string {
	if name, ok := severityNames[s]; ok {
		return name
	}
	return "Unknown"
}

func (s Severity) Valid() bool {
	_, ok := severityNames[s]
	return ok
}

// Next returns the severity one step above s, capped at Red.
func (s Severity) Next() Severity {
	if next, ok := escalationTable[s]; ok {
		return next
	}
	return s
}

func (s Severity) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid severity: %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	parsed, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func ParseSeverity(v string) (Severity, error) {
	for sev, name := range severityNames {
		if strings.EqualFold(name, strings.TrimSpace(v)) {
			return sev, nil
		}
	}
	return SeverityUnknown, fmt.Errorf("unknown severity: %q", v)
}

type ResponseTime string

const (
	ResponseImmediate ResponseTime = "Immediate"
	ResponseUrgent    ResponseTime = "Urgent"
	ResponsePriority  ResponseTime = "Priority"
	ResponseRoutine   ResponseTime = "Routine"
)

var responseDeadlines = map[ResponseTime]time.Duration{
	ResponseImmediate: time.Hour,
	ResponseUrgent:    4 * time.Hour,
	ResponsePriority:  24 * time.Hour,
	ResponseRoutine:   72 * time.Hour,
}

var responseBySeverity = map[Severity]ResponseTime{
	SeverityRed:    ResponseImmediate,
	SeverityOrange: ResponseUrgent,
	SeverityYellow: ResponsePriority,
	SeverityGreen:  ResponseRoutine,
}

// Deadline is the maximum time allowed before an alert with this response
// time must be acknowledged.
func (r ResponseTime) Deadline() time.Duration {
	if d, ok := responseDeadlines[r]; ok {
		return d
	}
	return responseDeadlines[ResponsePriority]
}

func (r ResponseTime) Valid() bool {
	_, ok := responseDeadlines[r]
	return ok
}

// ResponseTimeFor maps a severity to its response bucket.
func ResponseTimeFor(s Severity) ResponseTime {
	if r, ok := responseBySeverity[s]; ok {
		return r
	}
	return ResponsePriority
}
