package incident

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"healthwatch/pkg/apperror"

	"github.com/rs/zerolog"
)

const idTimeLayout = "20060102_150405"

// Tracker owns the incident lifecycle. In-memory state is authoritative;
// every transition is written through to the Store. A failed write is logged
// and retried by the next transition of the same incident or by Flush.
type Tracker struct {
	mu        sync.Mutex
	incidents map[string]*Incident // id -> incident
	active    map[string]string    // service -> id of its ACTIVE incident
	dirty     map[string]struct{}  // ids whose last write failed

	store  Store
	logger *zerolog.Logger
	now    func() time.Time
}

func NewTracker(store Store, logger *zerolog.Logger) *Tracker {
	l := logger.With().Str("component", "incident_tracker").Logger()
	return &Tracker{
		incidents: make(map[string]*Incident),
		active:    make(map[string]string),
		dirty:     make(map[string]struct{}),
		store:     store,
		logger:    &l,
		now:       time.Now,
	}
}

// Open starts an incident for service. If one is already active it is
// returned unchanged.
func (t *Tracker) Open(ctx context.Context, service string, details Details) (Incident, error) {
	const op string = "tracker.incident.open"

	if strings.TrimSpace(service) == "" {
		return Incident{}, apperror.Newf(apperror.InvalidInput, op, "service name is empty")
	}

	t.mu.Lock()
	if id, ok := t.active[service]; ok {
		existing := t.incidents[id].clone()
		t.mu.Unlock()

		t.logger.Warn().
			Str("service", service).
			Str("incident_id", existing.ID).
			Msg("incident already active, not opening another")
		return existing, nil
	}

	start := t.now().UTC()
	inc := &Incident{
		ID:          t.nextIDLocked(service, start),
		ServiceName: service,
		StartTime:   start,
		Details:     details,
		Status:      StatusActive,
	}
	t.incidents[inc.ID] = inc
	t.active[service] = inc.ID
	snapshot := inc.clone()
	t.mu.Unlock()

	// the engine serializes transitions per service, so writes for one id never race
	t.persist(ctx, op, snapshot)

	t.logger.Info().
		Str("service", service).
		Str("incident_id", snapshot.ID).
		Int("consecutive_failures", details.ConsecutiveFailures).
		Msg("incident opened")

	return snapshot, nil
}

// Close resolves the incident with id. An unknown id is a NotFound error and
// an already resolved incident is a Conflict error; state is untouched in
// both cases.
func (t *Tracker) Close(ctx context.Context, id string) (Incident, error) {
	const op string = "tracker.incident.close"

	t.mu.Lock()
	inc, ok := t.incidents[id]
	if !ok {
		t.mu.Unlock()
		return Incident{}, apperror.Newf(apperror.NotFound, op, "incident %q not found", id)
	}
	if inc.Status == StatusResolved {
		t.mu.Unlock()
		return Incident{}, apperror.Newf(apperror.Conflict, op, "incident %q already resolved", id)
	}

	end := t.now().UTC()
	if end.Before(inc.StartTime) {
		end = inc.StartTime
	}
	duration := end.Sub(inc.StartTime).Seconds()

	inc.EndTime = &end
	inc.DurationSeconds = &duration
	inc.Status = StatusResolved
	if t.active[inc.ServiceName] == id {
		delete(t.active, inc.ServiceName)
	}
	snapshot := inc.clone()
	t.mu.Unlock()

	t.persist(ctx, op, snapshot)

	t.logger.Info().
		Str("service", snapshot.ServiceName).
		Str("incident_id", id).
		Float64("duration_seconds", duration).
		Msg("incident resolved")

	return snapshot, nil
}

// Active returns the active incident of service, if any.
func (t *Tracker) Active(service string) (Incident, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	id, ok := t.active[service]
	if !ok {
		return Incident{}, false
	}
	return t.incidents[id].clone(), true
}

// ActiveIncidents lists every active incident ordered by service name.
func (t *Tracker) ActiveIncidents() []Incident {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Incident, 0, len(t.active))
	for _, id := range t.active {
		out = append(out, t.incidents[id].clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServiceName < out[j].ServiceName })
	return out
}

func (t *Tracker) Get(id string) (Incident, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	inc, ok := t.incidents[id]
	if !ok {
		return Incident{}, false
	}
	return inc.clone(), true
}

func (t *Tracker) Statistics() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()

	var s Stats
	var sum float64
	for _, inc := range t.incidents {
		s.Total++
		if inc.Status != StatusResolved {
			s.Active++
			continue
		}
		var d float64
		if inc.DurationSeconds != nil {
			d = *inc.DurationSeconds
		}
		if s.Resolved == 0 || d < s.MinDurationSeconds {
			s.MinDurationSeconds = d
		}
		if d > s.MaxDurationSeconds {
			s.MaxDurationSeconds = d
		}
		sum += d
		s.Resolved++
	}
	if s.Resolved > 0 {
		s.MeanDurationSeconds = sum / float64(s.Resolved)
	}
	return s
}

// History returns incidents newest first. limit <= 0 returns all of them.
func (t *Tracker) History(limit int) []Incident {
	t.mu.Lock()
	out := make([]Incident, 0, len(t.incidents))
	for _, inc := range t.incidents {
		out = append(out, inc.clone())
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime.Equal(out[j].StartTime) {
			return out[i].ID > out[j].ID
		}
		return out[i].StartTime.After(out[j].StartTime)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Load replaces in-memory state with the contents of the store. It refuses
// data holding two active incidents for one service.
func (t *Tracker) Load(ctx context.Context) (int, error) {
	const op string = "tracker.incident.load"

	list, err := t.store.List(ctx)
	if err != nil {
		return 0, apperror.New(apperror.DatabaseErr, op, err)
	}

	incidents := make(map[string]*Incident, len(list))
	active := make(map[string]string)
	for _, inc := range list {
		cp := inc.clone()
		if cp.IsActive() {
			if other, ok := active[cp.ServiceName]; ok {
				return 0, apperror.Newf(apperror.Invariant, op,
					"service %q has two active incidents: %s and %s", cp.ServiceName, other, cp.ID)
			}
			active[cp.ServiceName] = cp.ID
		}
		incidents[cp.ID] = &cp
	}

	t.mu.Lock()
	t.incidents = incidents
	t.active = active
	t.dirty = make(map[string]struct{})
	t.mu.Unlock()

	t.logger.Info().
		Int("incidents", len(incidents)).
		Int("active", len(active)).
		Msg("incident history loaded")

	return len(incidents), nil
}

// Flush retries writes that failed earlier.
func (t *Tracker) Flush(ctx context.Context) error {
	const op string = "tracker.incident.flush"

	t.mu.Lock()
	pending := make([]Incident, 0, len(t.dirty))
	for id := range t.dirty {
		pending = append(pending, t.incidents[id].clone())
	}
	t.mu.Unlock()

	var errs []error
	for _, inc := range pending {
		if err := t.store.Save(ctx, inc); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", inc.ID, err))
			continue
		}
		t.markClean(inc.ID)
	}
	if len(errs) > 0 {
		return apperror.New(apperror.DatabaseErr, op, errors.Join(errs...))
	}
	return nil
}

func (t *Tracker) persist(ctx context.Context, op string, inc Incident) {
	if err := t.store.Save(ctx, inc); err != nil {
		t.mu.Lock()
		t.dirty[inc.ID] = struct{}{}
		t.mu.Unlock()

		t.logger.Error().
			Err(err).
			Str("op", op).
			Str("incident_id", inc.ID).
			Str("service", inc.ServiceName).
			Msg("failed to persist incident, kept in memory")
		return
	}
	t.markClean(inc.ID)
}

func (t *Tracker) markClean(id string) {
	t.mu.Lock()
	delete(t.dirty, id)
	t.mu.Unlock()
}

// nextIDLocked derives <slug>_<YYYYMMDD_HHMMSS>, suffixing _2, _3, ... when
// the same service already opened an incident within that second.
func (t *Tracker) nextIDLocked(service string, start time.Time) string {
	base := fmt.Sprintf("%s_%s", Slug(service), start.Format(idTimeLayout))
	if _, taken := t.incidents[base]; !taken {
		return base
	}
	for n := 2; ; n++ {
		id := fmt.Sprintf("%s_%d", base, n)
		if _, taken := t.incidents[id]; !taken {
			return id
		}
	}
}

// Slug lowercases name and replaces anything outside [a-z0-9-] with '_'.
func Slug(name string) string {
	var sb strings.Builder
	lastUnderscore := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			sb.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				sb.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	s := strings.Trim(sb.String(), "_")
	if s == "" {
		return "service"
	}
	return s
}
