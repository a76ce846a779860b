package alert

import (
	"fmt"
	"time"
)

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

type Kind string

const (
	KindDown      Kind = "down"
	KindRecovered Kind = "recovered"
	KindTest      Kind = "test"
)

type Field struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// AlertPayload is built per transition and never persisted.
type AlertPayload struct {
	Severity    Severity  `json:"severity"`
	Kind        Kind      `json:"kind"`
	ServiceName string    `json:"service_name"`
	IncidentID  string    `json:"incident_id,omitempty"`
	Title       string    `json:"title"`
	Message     string    `json:"message"`
	Fields      []Field   `json:"fields,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	MentionAll  bool      `json:"mention_all"`
	Channel     string    `json:"channel,omitempty"`
}

// FormatDuration renders d as "45s", "2m 30s" or "1h 15m".
func FormatDuration(d time.Duration) string {
	secs := int64(d.Seconds())
	if secs < 0 {
		secs = 0
	}
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %ds", secs/60, secs%60)
	default:
		return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
	}
}
