// Package alert delivers risk verdicts to users.
package alert

import (
	"context"
	"sync"

	"sandwich-guard/internal/domain"
)

// Sink receives verdicts. Notify must not block the caller for long; the
// detection pipeline treats it as fire-and-forget.
type Sink interface {
	Notify(v domain.RiskVerdict)
}

// Channel is a concrete delivery target driven by the Dispatcher.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, v domain.RiskVerdict) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(v domain.RiskVerdict)

// Notify calls f(v).
func (f SinkFunc) Notify(v domain.RiskVerdict) { f(v) }

// MinLevel wraps ch so that risk verdicts below min are skipped.
// Info notices always pass.
func MinLevel(ch Channel, min domain.RiskLevel) Channel {
	return &levelFilter{Channel: ch, min: min}
}

type levelFilter struct {
	Channel
	min domain.RiskLevel
}

func (f *levelFilter) Deliver(ctx context.Context, v domain.RiskVerdict) error {
	if v.Kind == domain.VerdictRisk && v.Level.Rank() < f.min.Rank() {
		return nil
	}
	return f.Channel.Deliver(ctx, v)
}

// Recorder is an in-memory Sink and Channel that keeps every verdict.
type Recorder struct {
	mu       sync.Mutex
	verdicts []domain.RiskVerdict
	notify   chan struct{}
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{notify: make(chan struct{}, 1)}
}

// Notify records v.
func (r *Recorder) Notify(v domain.RiskVerdict) {
	r.mu.Lock()
	r.verdicts = append(r.verdicts, v)
	r.mu.Unlock()
	select {
	case r.notify <- struct{}{}:
	default:
	}
}

// Name implements Channel.
func (r *Recorder) Name() string { return "recorder" }

// Deliver implements Channel.
func (r *Recorder) Deliver(_ context.Context, v domain.RiskVerdict) error {
	r.Notify(v)
	return nil
}

// Verdicts returns a copy of everything recorded so far.
func (r *Recorder) Verdicts() []domain.RiskVerdict {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.RiskVerdict, len(r.verdicts))
	copy(out, r.verdicts)
	return out
}

// Len returns the number of recorded verdicts.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.verdicts)
}

// Reasons returns the reason of every recorded verdict in order.
func (r *Recorder) Reasons() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.verdicts))
	for i, v := range r.verdicts {
		out[i] = v.Reason
	}
	return out
}

// Risks returns recorded verdicts of kind risk.
func (r *Recorder) Risks() []domain.RiskVerdict {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.RiskVerdict
	for _, v := range r.verdicts {
		if v.Kind == domain.VerdictRisk {
			out = append(out, v)
		}
	}
	return out
}
