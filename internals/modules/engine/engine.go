package engine

import (
	"context"
	"sync"
	"time"

	"healthwatch/internals/modules/alert"
	"healthwatch/internals/modules/incident"
	"healthwatch/internals/modules/probe"
	"healthwatch/pkg/apperror"

	"github.com/rs/zerolog"
)

const DefaultFailureThreshold = 2

type Prober interface {
	Probe(ctx context.Context, target probe.Target) probe.Result
}

type IncidentTracker interface {
	Open(ctx context.Context, service string, details incident.Details) (incident.Incident, error)
	Close(ctx context.Context, id string) (incident.Incident, error)
	Active(service string) (incident.Incident, bool)
	ActiveIncidents() []incident.Incident
}

type AlertDispatcher interface {
	Dispatch(p alert.AlertPayload) bool
}

// StatusRecorder receives the status of a target after every evaluation.
type StatusRecorder interface {
	StoreStatus(ctx context.Context, target string, status string, statusCode int, latencyMs int64, checkedAt time.Time) error
}

type Config struct {
	FailureThreshold int
	MaxConcurrency   int
	Channel          string // alert destination override, empty for the notifier default
	MentionChannel   bool   // broadcast mention on alerts for critical targets
}

type targetEntry struct {
	mu     sync.Mutex // serializes evaluate, open/close and notify for this target
	target probe.Target
	state  TargetState
}

// Engine polls the configured targets, debounces failures and drives the
// incident tracker and alert dispatcher on UP/DOWN transitions.
type Engine struct {
	runMu sync.Mutex // one cycle at a time

	targets []*targetEntry
	byName  map[string]*targetEntry
	cfg     Config

	prober   Prober
	tracker  IncidentTracker
	alerts   AlertDispatcher
	recorder StatusRecorder

	now    func() time.Time
	logger *zerolog.Logger
}

func New(targets []probe.Target, cfg Config, prober Prober, tracker IncidentTracker, alerts AlertDispatcher, logger *zerolog.Logger) *Engine {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = DefaultFailureThreshold
	}
	if cfg.MaxConcurrency <= 0 || cfg.MaxConcurrency > len(targets) {
		cfg.MaxConcurrency = max(len(targets), 1)
	}
	l := logger.With().Str("component", "engine").Logger()

	e := &Engine{
		targets: make([]*targetEntry, 0, len(targets)),
		byName:  make(map[string]*targetEntry, len(targets)),
		cfg:     cfg,
		prober:  prober,
		tracker: tracker,
		alerts:  alerts,
		now:     time.Now,
		logger:  &l,
	}
	for _, t := range targets {
		entry := &targetEntry{target: t, state: newTargetState()}
		e.targets = append(e.targets, entry)
		e.byName[t.Name] = entry
	}
	return e
}

func (e *Engine) SetStatusRecorder(r StatusRecorder) {
	e.recorder = r
}

type CycleSummary struct {
	Up          int           `json:"up"`
	Down        int           `json:"down"`
	Transitions int           `json:"transitions"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
}

// RunCycle probes every target once. Probes run concurrently up to
// MaxConcurrency; a call made while another cycle runs waits for it.
func (e *Engine) RunCycle(ctx context.Context) CycleSummary {
	e.runMu.Lock()
	defer e.runMu.Unlock()

	started := e.now()
	sem := make(chan struct{}, e.cfg.MaxConcurrency)
	transitions := make(chan Transition, len(e.targets))

	var wg sync.WaitGroup
	for _, entry := range e.targets {
		sem <- struct{}{}
		wg.Add(1)

		go func(entry *targetEntry) {
			defer wg.Done()
			defer func() { <-sem }()

			transitions <- e.checkTarget(ctx, entry)
		}(entry)
	}
	wg.Wait()
	close(transitions)

	summary := CycleSummary{StartedAt: started}
	for tr := range transitions {
		if tr != TransitionNone {
			summary.Transitions++
		}
	}

	for _, entry := range e.targets {
		entry.mu.Lock()
		st := entry.state
		entry.mu.Unlock()

		if st.Status == StatusDown {
			summary.Down++
		} else {
			summary.Up++
		}
		if st.ConsecutiveFailures > 0 {
			ev := e.logger.Warn().
				Str("target", entry.target.Name).
				Str("status", string(st.Status)).
				Int("consecutive_failures", st.ConsecutiveFailures)
			if st.LastResult != nil {
				ev = ev.Str("reason", st.LastResult.Reason).Str("error", st.LastResult.Error)
			}
			ev.Msg("target failing")
		}
	}
	summary.Duration = e.now().Sub(started)

	e.logger.Info().
		Int("up", summary.Up).
		Int("down", summary.Down).
		Int("transitions", summary.Transitions).
		Dur("took", summary.Duration).
		Msgf("check cycle complete: %d UP / %d DOWN", summary.Up, summary.Down)

	return summary
}

func (e *Engine) checkTarget(ctx context.Context, entry *targetEntry) Transition {
	res := e.prober.Probe(ctx, entry.target)

	entry.mu.Lock()
	tr := Evaluate(&entry.state, res, e.cfg.FailureThreshold)
	entry.state.LastCheckedAt = res.CheckedAt
	entry.state.LastResult = &res

	switch tr {
	case TransitionFailed:
		e.handleFailed(ctx, entry, res)
	case TransitionRecovered:
		e.handleRecovered(ctx, entry, res)
	}
	st := entry.state
	entry.mu.Unlock()

	e.recordStatus(ctx, entry.target.Name, st)
	return tr
}

// handleFailed runs with entry.mu held.
func (e *Engine) handleFailed(ctx context.Context, entry *targetEntry, res probe.Result) {
	t := entry.target

	inc, err := e.tracker.Open(ctx, t.Name, incidentDetails(t, res, entry.state.ConsecutiveFailures))
	if err != nil {
		e.logger.Error().
			Err(err).
			Str("target", t.Name).
			Str("url", t.URL).
			Int("consecutive_failures", entry.state.ConsecutiveFailures).
			Msg("failed to open incident, skipping alert")
		return
	}
	entry.state.ActiveIncidentID = inc.ID

	e.logger.Warn().
		Str("target", t.Name).
		Str("incident_id", inc.ID).
		Str("reason", res.Reason).
		Msg("target is DOWN")

	e.alerts.Dispatch(e.downAlert(t, inc, res))
}

// handleRecovered runs with entry.mu held.
func (e *Engine) handleRecovered(ctx context.Context, entry *targetEntry, res probe.Result) {
	t := entry.target
	id := entry.state.ActiveIncidentID
	entry.state.ActiveIncidentID = ""

	// the open may have failed when the target went down
	if id == "" {
		open, ok := e.tracker.Active(t.Name)
		if !ok {
			e.logger.Warn().Str("target", t.Name).Msg("target recovered without an open incident")
			return
		}
		id = open.ID
	}

	inc, err := e.tracker.Close(ctx, id)
	if err != nil {
		ev := e.logger.Error()
		if apperror.IsKind(err, apperror.Conflict) {
			ev = e.logger.Warn()
		}
		ev.Err(err).
			Str("target", t.Name).
			Str("incident_id", id).
			Msg("failed to close incident, skipping recovery alert")
		return
	}

	e.logger.Info().
		Str("target", t.Name).
		Str("incident_id", inc.ID).
		Dur("downtime", inc.Duration()).
		Msg("target RECOVERED")

	e.alerts.Dispatch(e.recoveredAlert(t, inc, res))
}

func (e *Engine) recordStatus(ctx context.Context, name string, st TargetState) {
	if e.recorder == nil {
		return
	}

	var code int
	var latency int64
	checkedAt := st.LastCheckedAt
	if st.LastResult != nil {
		code = st.LastResult.StatusCode
		latency = st.LastResult.ResponseTimeMs()
	}
	if checkedAt.IsZero() {
		checkedAt = e.now()
	}

	if err := e.recorder.StoreStatus(ctx, name, string(st.Status), code, latency, checkedAt); err != nil {
		e.logger.Warn().Err(err).Str("target", name).Msg("failed to publish target status")
	}
}

// Reconcile attaches incidents left ACTIVE by a previous run to their
// targets. Such a target starts DOWN with a full failure counter, so the
// next probe either closes the incident or keeps it without opening another.
// It returns the number of incidents attached.
func (e *Engine) Reconcile(ctx context.Context) int {
	attached := 0
	for _, inc := range e.tracker.ActiveIncidents() {
		entry, ok := e.byName[inc.ServiceName]
		if !ok {
			e.logger.Warn().
				Str("target", inc.ServiceName).
				Str("incident_id", inc.ID).
				Time("started_at", inc.StartTime).
				Msg("active incident for a target that is no longer configured, leaving it open")
			continue
		}

		entry.mu.Lock()
		entry.state.Status = StatusDown
		entry.state.ConsecutiveFailures = e.cfg.FailureThreshold
		entry.state.ActiveIncidentID = inc.ID
		st := entry.state
		entry.mu.Unlock()

		e.recordStatus(ctx, inc.ServiceName, st)
		attached++

		e.logger.Info().
			Str("target", inc.ServiceName).
			Str("incident_id", inc.ID).
			Msg("resumed active incident")
	}
	return attached
}

// TargetStatus is a read-only view of one target.
type TargetStatus struct {
	Name                string     `json:"name"`
	URL                 string     `json:"url"`
	Critical            bool       `json:"critical"`
	Status              Status     `json:"status"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	ActiveIncidentID    string     `json:"active_incident_id,omitempty"`
	LastCheckedAt       *time.Time `json:"last_checked_at,omitempty"`
	StatusCode          int        `json:"status_code,omitempty"`
	ResponseTimeMs      int64      `json:"response_time_ms,omitempty"`
	Error               string     `json:"error,omitempty"`
}

// Statuses returns every target in configuration order.
func (e *Engine) Statuses() []TargetStatus {
	out := make([]TargetStatus, 0, len(e.targets))
	for _, entry := range e.targets {
		entry.mu.Lock()
		st := entry.state
		entry.mu.Unlock()

		ts := TargetStatus{
			Name:                entry.target.Name,
			URL:                 entry.target.URL,
			Critical:            entry.target.Critical,
			Status:              st.Status,
			ConsecutiveFailures: st.ConsecutiveFailures,
			ActiveIncidentID:    st.ActiveIncidentID,
		}
		if !st.LastCheckedAt.IsZero() {
			checked := st.LastCheckedAt
			ts.LastCheckedAt = &checked
		}
		if st.LastResult != nil {
			ts.StatusCode = st.LastResult.StatusCode
			ts.ResponseTimeMs = st.LastResult.ResponseTimeMs()
			ts.Error = st.LastResult.Error
		}
		out = append(out, ts)
	}
	return out
}

func incidentDetails(t probe.Target, res probe.Result, failures int) incident.Details {
	return incident.Details{
		URL:                 t.URL,
		StatusCode:          res.StatusCode,
		Error:               res.Error,
		Reason:              res.Reason,
		ResponseTimeMs:      res.ResponseTimeMs(),
		TimeoutSeconds:      t.Timeout.Seconds(),
		ConsecutiveFailures: failures,
	}
}
