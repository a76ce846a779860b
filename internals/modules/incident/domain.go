package incident

import "time"

type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusResolved Status = "RESOLVED"
)

// Details is the failure context captured when an incident opens.
type Details struct {
	URL                 string  `json:"url"`
	StatusCode          int     `json:"status_code"`
	Error               string  `json:"error,omitempty"`
	Reason              string  `json:"reason,omitempty"`
	ResponseTimeMs      int64   `json:"response_time_ms"`
	TimeoutSeconds      float64 `json:"timeout_seconds"`
	ConsecutiveFailures int     `json:"consecutive_failures"`
}

type Incident struct {
	ID              string     `json:"id"`
	ServiceName     string     `json:"service_name"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds *float64   `json:"duration_seconds,omitempty"`
	Details         Details    `json:"details"`
	Status          Status     `json:"status"`
}

func (i Incident) IsActive() bool {
	return i.Status == StatusActive
}

// Duration is zero while the incident is active.
func (i Incident) Duration() time.Duration {
	if i.DurationSeconds == nil {
		return 0
	}
	return time.Duration(*i.DurationSeconds * float64(time.Second))
}

// clone copies the pointer fields so callers never share state with the tracker.
func (i Incident) clone() Incident {
	cp := i
	if i.EndTime != nil {
		end := *i.EndTime
		cp.EndTime = &end
	}
	if i.DurationSeconds != nil {
		d := *i.DurationSeconds
		cp.DurationSeconds = &d
	}
	return cp
}

// Stats aggregates over every known incident. Duration figures cover
// resolved incidents only and are zero when none are resolved.
type Stats struct {
	Total               int     `json:"total"`
	Active              int     `json:"active"`
	Resolved            int     `json:"resolved"`
	MeanDurationSeconds float64 `json:"mean_duration_seconds"`
	MinDurationSeconds  float64 `json:"min_duration_seconds"`
	MaxDurationSeconds  float64 `json:"max_duration_seconds"`
}
