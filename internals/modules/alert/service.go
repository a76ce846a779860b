package alert

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	Workers     int
	QueueSize   int
	Cooldown    time.Duration // per service and kind; 0 disables
	SendTimeout time.Duration
}

type Stats struct {
	Sent       int64 `json:"sent"`
	Failed     int64 `json:"failed"`
	Dropped    int64 `json:"dropped"`
	Suppressed int64 `json:"suppressed"`
}

// AlertService delivers alerts off the probe path. Dispatch never blocks;
// workers send with a timeout and failed sends are logged, not retried.
type AlertService struct {
	// lifecycle
	workerCount int
	workerWG    sync.WaitGroup

	// channels
	alertChan chan AlertPayload

	notifier    Notifier
	cooldown    time.Duration
	sendTimeout time.Duration

	mu       sync.Mutex
	lastSent map[string]time.Time
	stopped  bool

	sent, failed, dropped, suppressed atomic.Int64

	now    func() time.Time
	logger *zerolog.Logger
}

func NewAlertService(opts Options, notifier Notifier, logger *zerolog.Logger) *AlertService {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 100
	}
	if opts.SendTimeout <= 0 {
		opts.SendTimeout = 10 * time.Second
	}
	l := logger.With().Str("component", "alert_service").Logger()

	return &AlertService{
		workerCount: opts.Workers,
		alertChan:   make(chan AlertPayload, opts.QueueSize),
		notifier:    notifier,
		cooldown:    opts.Cooldown,
		sendTimeout: opts.SendTimeout,
		lastSent:    make(map[string]time.Time),
		now:         time.Now,
		logger:      &l,
	}
}

// Start launches the workers.
func (s *AlertService) Start() {
	s.workerWG.Add(s.workerCount)

	for range s.workerCount {
		go s.handleAlerts()
	}
	s.logger.Info().Int("workers", s.workerCount).Str("notifier", s.notifier.Name()).Msg("alert service started")
}

// Dispatch queues p for delivery. It returns false when p is suppressed by
// the cooldown, the queue is full, or the service is stopped.
func (s *AlertService) Dispatch(p AlertPayload) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		s.dropped.Add(1)
		s.logger.Warn().Str("target", p.ServiceName).Str("kind", string(p.Kind)).Msg("alert service stopped, alert dropped")
		return false
	}

	key := p.ServiceName + "|" + string(p.Kind)
	now := s.now()
	if last, ok := s.lastSent[key]; ok && s.cooldown > 0 && now.Sub(last) < s.cooldown {
		s.suppressed.Add(1)
		s.logger.Info().
			Str("target", p.ServiceName).
			Str("kind", string(p.Kind)).
			Dur("cooldown_left", s.cooldown-now.Sub(last)).
			Msg("alert suppressed by cooldown")
		return false
	}

	select {
	case s.alertChan <- p:
		s.lastSent[key] = now
		return true
	default:
		s.dropped.Add(1)
		s.logger.Warn().Str("target", p.ServiceName).Str("kind", string(p.Kind)).Msg("alert queue full, alert dropped")
		return false
	}
}

func (s *AlertService) handleAlerts() {
	defer s.workerWG.Done()

	for p := range s.alertChan {
		s.deliver(p)
	}
}

func (s *AlertService) deliver(p AlertPayload) {
	ctx, cancel := context.WithTimeout(context.Background(), s.sendTimeout)
	defer cancel()

	if err := s.notifier.Send(ctx, p); err != nil {
		s.failed.Add(1)
		s.logger.Error().
			Err(err).
			Str("target", p.ServiceName).
			Str("kind", string(p.Kind)).
			Str("incident_id", p.IncidentID).
			Msg("failed to deliver alert")
		return
	}
	s.sent.Add(1)
	s.logger.Debug().Str("target", p.ServiceName).Str("kind", string(p.Kind)).Msg("alert delivered")
}

// Stop closes the queue and waits for workers to drain it.
func (s *AlertService) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	close(s.alertChan)
	s.mu.Unlock()

	s.workerWG.Wait()
	s.logger.Info().Msg("alert service stopped")
}

func (s *AlertService) Stats() Stats {
	return Stats{
		Sent:       s.sent.Load(),
		Failed:     s.failed.Load(),
		Dropped:    s.dropped.Load(),
		Suppressed: s.suppressed.Load(),
	}
}
