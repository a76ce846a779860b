package probe

import "time"

// Failure reasons reported in Result.Reason.
const (
	ReasonTimeout          = "TIMEOUT"
	ReasonDNSFailure       = "DNS_FAILURE"
	ReasonConnRefused      = "CONNECTION_REFUSED"
	ReasonNetworkError     = "NETWORK_ERROR"
	ReasonInvalidRequest   = "INVALID_REQUEST"
	ReasonUnexpectedStatus = "UNEXPECTED_STATUS"
	ReasonUnknown          = "UNKNOWN_ERROR"
)

// Target is a monitored HTTP endpoint. Name is unique across the target list
// and keys all per-target state.
type Target struct {
	Name           string
	URL            string
	Method         string
	ExpectedStatus int
	Timeout        time.Duration
	Critical       bool
}

// Result is the outcome of one probe. StatusCode is 0 when no response arrived.
type Result struct {
	Success      bool
	StatusCode   int
	Reason       string
	Error        string
	ResponseTime time.Duration
	CheckedAt    time.Time
}

func (r Result) ResponseTimeMs() int64 {
	return r.ResponseTime.Milliseconds()
}
