package engine

import (
	"fmt"
	"strconv"

	"healthwatch/internals/modules/alert"
	"healthwatch/internals/modules/incident"
	"healthwatch/internals/modules/probe"
)

func (e *Engine) downAlert(t probe.Target, inc incident.Incident, res probe.Result) alert.AlertPayload {
	severity := alert.SeverityWarning
	if t.Critical {
		severity = alert.SeverityCritical
	}

	statusCode := "none"
	if res.StatusCode != 0 {
		statusCode = strconv.Itoa(res.StatusCode)
	}

	return alert.AlertPayload{
		Severity:    severity,
		Kind:        alert.KindDown,
		ServiceName: t.Name,
		IncidentID:  inc.ID,
		Title:       fmt.Sprintf("%s is DOWN", t.Name),
		Message: fmt.Sprintf("%d consecutive checks failed: %s",
			inc.Details.ConsecutiveFailures, res.Error),
		Fields: []alert.Field{
			{Title: "URL", Value: t.URL},
			{Title: "Status Code", Value: statusCode, Short: true},
			{Title: "Reason", Value: res.Reason, Short: true},
			{Title: "Response Time", Value: fmt.Sprintf("%dms", res.ResponseTimeMs()), Short: true},
			{Title: "Consecutive Failures", Value: strconv.Itoa(inc.Details.ConsecutiveFailures), Short: true},
			{Title: "Incident ID", Value: inc.ID},
		},
		Timestamp:  inc.StartTime,
		MentionAll: t.Critical && e.cfg.MentionChannel,
		Channel:    e.cfg.Channel,
	}
}

func (e *Engine) recoveredAlert(t probe.Target, inc incident.Incident, res probe.Result) alert.AlertPayload {
	downtime := alert.FormatDuration(inc.Duration())

	timestamp := e.now()
	if inc.EndTime != nil {
		timestamp = *inc.EndTime
	}

	return alert.AlertPayload{
		Severity:    alert.SeverityInfo,
		Kind:        alert.KindRecovered,
		ServiceName: t.Name,
		IncidentID:  inc.ID,
		Title:       fmt.Sprintf("%s has RECOVERED", t.Name),
		Message:     fmt.Sprintf("Service is back UP after %s of downtime", downtime),
		Fields: []alert.Field{
			{Title: "URL", Value: t.URL},
			{Title: "Downtime", Value: downtime, Short: true},
			{Title: "Status Code", Value: strconv.Itoa(res.StatusCode), Short: true},
			{Title: "Response Time", Value: fmt.Sprintf("%dms", res.ResponseTimeMs()), Short: true},
			{Title: "Incident ID", Value: inc.ID},
		},
		Timestamp: timestamp,
		Channel:   e.cfg.Channel,
	}
}
