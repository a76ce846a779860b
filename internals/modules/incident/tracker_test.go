package incident

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"healthwatch/pkg/apperror"
	"healthwatch/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestTracker(store Store) (*Tracker, *fakeClock) {
	clock := newFakeClock()
	tr := NewTracker(store, logger.Nop())
	tr.now = clock.Now
	return tr, clock
}

// failingStore fails every Save while fail is set.
type failingStore struct {
	*MemoryStore
	mu   sync.Mutex
	fail bool
}

func (s *failingStore) setFail(v bool) {
	s.mu.Lock()
	s.fail = v
	s.mu.Unlock()
}

func (s *failingStore) Save(ctx context.Context, inc Incident) error {
	s.mu.Lock()
	fail := s.fail
	s.mu.Unlock()
	if fail {
		return errors.New("disk full")
	}
	return s.MemoryStore.Save(ctx, inc)
}

func TestOpenCreatesActiveIncident(t *testing.T) {
	store := NewMemoryStore()
	tr, clock := newTestTracker(store)
	ctx := context.Background()

	inc, err := tr.Open(ctx, "Payments API", Details{URL: "https://pay.example.com", StatusCode: 503, ConsecutiveFailures: 2})
	require.NoError(t, err)

	assert.Equal(t, "payments_api_20260314_092653", inc.ID)
	assert.Equal(t, "Payments API", inc.ServiceName)
	assert.Equal(t, StatusActive, inc.Status)
	assert.True(t, inc.StartTime.Equal(clock.Now()))
	assert.Nil(t, inc.EndTime)
	assert.Nil(t, inc.DurationSeconds)

	persisted, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, inc.ID, persisted[0].ID)

	active, ok := tr.Active("Payments API")
	require.True(t, ok)
	assert.Equal(t, inc.ID, active.ID)
}

func TestOpenTwiceReturnsExisting(t *testing.T) {
	tr, clock := newTestTracker(NewMemoryStore())
	ctx := context.Background()

	first, err := tr.Open(ctx, "api", Details{})
	require.NoError(t, err)
	clock.Advance(30 * time.Second)
	second, err := tr.Open(ctx, "api", Details{})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, tr.Statistics().Total)
}

func TestOpenRejectsEmptyService(t *testing.T) {
	tr, _ := newTestTracker(NewMemoryStore())
	_, err := tr.Open(context.Background(), "  ", Details{})
	assert.True(t, apperror.IsKind(err, apperror.InvalidInput))
}

func TestCloseComputesDuration(t *testing.T) {
	store := NewMemoryStore()
	tr, clock := newTestTracker(store)
	ctx := context.Background()

	inc, err := tr.Open(ctx, "api", Details{})
	require.NoError(t, err)

	clock.Advance(2*time.Minute + 30*time.Second + 250*time.Millisecond)
	closed, err := tr.Close(ctx, inc.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusResolved, closed.Status)
	require.NotNil(t, closed.EndTime)
	require.NotNil(t, closed.DurationSeconds)
	assert.Equal(t, closed.EndTime.Sub(closed.StartTime).Seconds(), *closed.DurationSeconds)
	assert.Equal(t, 150.25, *closed.DurationSeconds)

	_, ok := tr.Active("api")
	assert.False(t, ok)

	persisted, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, persisted, 1)
	assert.Equal(t, StatusResolved, persisted[0].Status)
}

func TestCloseErrors(t *testing.T) {
	tr, _ := newTestTracker(NewMemoryStore())
	ctx := context.Background()

	_, err := tr.Close(ctx, "missing_20260101_000000")
	assert.True(t, apperror.IsKind(err, apperror.NotFound))

	inc, err := tr.Open(ctx, "api", Details{})
	require.NoError(t, err)
	_, err = tr.Close(ctx, inc.ID)
	require.NoError(t, err)

	_, err = tr.Close(ctx, inc.ID)
	assert.True(t, apperror.IsKind(err, apperror.Conflict))

	stats := tr.Statistics()
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 0, stats.Active)
}

func TestSameSecondReopenGetsSuffix(t *testing.T) {
	tr, _ := newTestTracker(NewMemoryStore())
	ctx := context.Background()

	first, err := tr.Open(ctx, "api", Details{})
	require.NoError(t, err)
	_, err = tr.Close(ctx, first.ID)
	require.NoError(t, err)

	second, err := tr.Open(ctx, "api", Details{})
	require.NoError(t, err)
	_, err = tr.Close(ctx, second.ID)
	require.NoError(t, err)

	third, err := tr.Open(ctx, "api", Details{})
	require.NoError(t, err)

	assert.Equal(t, first.ID+"_2", second.ID)
	assert.Equal(t, first.ID+"_3", third.ID)
}

func TestStatisticsEmpty(t *testing.T) {
	tr, _ := newTestTracker(NewMemoryStore())
	assert.Equal(t, Stats{}, tr.Statistics())
}

func TestStatisticsConsistency(t *testing.T) {
	tr, clock := newTestTracker(NewMemoryStore())
	ctx := context.Background()

	for i, d := range []time.Duration{10 * time.Second, 30 * time.Second, 20 * time.Second} {
		inc, err := tr.Open(ctx, "svc-"+string(rune('a'+i)), Details{})
		require.NoError(t, err)
		clock.Advance(d)
		_, err = tr.Close(ctx, inc.ID)
		require.NoError(t, err)
	}
	_, err := tr.Open(ctx, "still-down", Details{})
	require.NoError(t, err)

	s := tr.Statistics()
	assert.Equal(t, 4, s.Total)
	assert.Equal(t, 1, s.Active)
	assert.Equal(t, 3, s.Resolved)
	assert.Equal(t, s.Total, s.Active+s.Resolved)
	assert.InDelta(t, 20.0, s.MeanDurationSeconds, 1e-9)
	assert.Equal(t, 10.0, s.MinDurationSeconds)
	assert.Equal(t, 30.0, s.MaxDurationSeconds)
}

func TestHistoryNewestFirst(t *testing.T) {
	tr, clock := newTestTracker(NewMemoryStore())
	ctx := context.Background()

	var ids []string
	for _, name := range []string{"a", "b", "c"} {
		inc, err := tr.Open(ctx, name, Details{})
		require.NoError(t, err)
		ids = append(ids, inc.ID)
		clock.Advance(time.Minute)
	}

	all := tr.History(0)
	require.Len(t, all, 3)
	assert.Equal(t, ids[2], all[0].ID)
	assert.Equal(t, ids[0], all[2].ID)

	limited := tr.History(2)
	require.Len(t, limited, 2)
	assert.Equal(t, ids[1], limited[1].ID)
}

func TestLoadRebuildsState(t *testing.T) {
	store := NewMemoryStore()
	seed, clock := newTestTracker(store)
	ctx := context.Background()

	resolved, err := seed.Open(ctx, "api", Details{})
	require.NoError(t, err)
	clock.Advance(45 * time.Second)
	_, err = seed.Close(ctx, resolved.ID)
	require.NoError(t, err)
	active, err := seed.Open(ctx, "web", Details{URL: "https://web.example.com"})
	require.NoError(t, err)

	restarted, _ := newTestTracker(store)
	n, err := restarted.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got, ok := restarted.Active("web")
	require.True(t, ok)
	assert.Equal(t, active.ID, got.ID)
	assert.Equal(t, "https://web.example.com", got.Details.URL)

	s := restarted.Statistics()
	assert.Equal(t, 2, s.Total)
	assert.Equal(t, 45.0, s.MaxDurationSeconds)

	// opening again after restart keeps the single active incident
	again, err := restarted.Open(ctx, "web", Details{})
	require.NoError(t, err)
	assert.Equal(t, active.ID, again.ID)
}

func TestLoadRejectsDuplicateActive(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.Save(ctx, Incident{ID: "api_1", ServiceName: "api", StartTime: start, Status: StatusActive}))
	require.NoError(t, store.Save(ctx, Incident{ID: "api_2", ServiceName: "api", StartTime: start, Status: StatusActive}))

	tr, _ := newTestTracker(store)
	_, err := tr.Load(ctx)
	assert.True(t, apperror.IsKind(err, apperror.Invariant))
}

func TestPersistFailureKeepsIncidentAndFlushRetries(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), fail: true}
	tr, _ := newTestTracker(store)
	ctx := context.Background()

	inc, err := tr.Open(ctx, "api", Details{})
	require.NoError(t, err)

	_, ok := tr.Active("api")
	assert.True(t, ok)
	persisted, _ := store.List(ctx)
	assert.Empty(t, persisted)

	require.Error(t, tr.Flush(ctx))

	store.setFail(false)
	require.NoError(t, tr.Flush(ctx))
	persisted, _ = store.List(ctx)
	require.Len(t, persisted, 1)
	assert.Equal(t, inc.ID, persisted[0].ID)
}

func TestReturnedIncidentsAreCopies(t *testing.T) {
	tr, _ := newTestTracker(NewMemoryStore())
	ctx := context.Background()

	inc, err := tr.Open(ctx, "api", Details{})
	require.NoError(t, err)
	closed, err := tr.Close(ctx, inc.ID)
	require.NoError(t, err)

	*closed.DurationSeconds = 999
	got, ok := tr.Get(inc.ID)
	require.True(t, ok)
	assert.NotEqual(t, 999.0, *got.DurationSeconds)
}

func TestConcurrentServicesIndependent(t *testing.T) {
	tr, _ := newTestTracker(NewMemoryStore())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			name := "svc-" + string(rune('a'+i))
			inc, err := tr.Open(ctx, name, Details{})
			assert.NoError(t, err)
			_, err = tr.Close(ctx, inc.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	s := tr.Statistics()
	assert.Equal(t, 20, s.Total)
	assert.Equal(t, 20, s.Resolved)
}

func TestSlug(t *testing.T) {
	assert.Equal(t, "payments_api", Slug("Payments API"))
	assert.Equal(t, "a_b-c", Slug("a / b-c"))
	assert.Equal(t, "service", Slug("!!!"))
}
