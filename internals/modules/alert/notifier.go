package alert

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Notifier delivers a payload to one channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, p AlertPayload) error
}

// Pinger is implemented by notifiers that can verify their configuration.
type Pinger interface {
	Ping(ctx context.Context) error
}

// MultiNotifier fans a payload out to every channel; one channel failing does
// not stop the others.
type MultiNotifier struct {
	notifiers []Notifier
}

func NewMultiNotifier(notifiers ...Notifier) *MultiNotifier {
	return &MultiNotifier{notifiers: notifiers}
}

func (m *MultiNotifier) Name() string { return "multi" }

func (m *MultiNotifier) Send(ctx context.Context, p AlertPayload) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Send(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (m *MultiNotifier) Ping(ctx context.Context) error {
	var errs []error
	for _, n := range m.notifiers {
		if p, ok := n.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// LogNotifier writes alerts to the log. It is always part of the chain so an
// alert is visible even when no external channel is configured.
type LogNotifier struct {
	logger *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Send(_ context.Context, p AlertPayload) error {
	var ev *zerolog.Event
	switch p.Severity {
	case SeverityCritical:
		ev = n.logger.Error()
	case SeverityWarning:
		ev = n.logger.Warn()
	default:
		ev = n.logger.Info()
	}

	fields := zerolog.Dict()
	for _, f := range p.Fields {
		fields.Str(f.Title, f.Value)
	}

	ev.Str("severity", string(p.Severity)).
		Str("kind", string(p.Kind)).
		Str("target", p.ServiceName).
		Str("incident_id", p.IncidentID).
		Dict("fields", fields).
		Msg(p.Title + ": " + p.Message)
	return nil
}
