package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepStart EventType = "step_start"
	EventStepEnd   EventType = "step_end"
	EventRollback  EventType = "rollback"
	EventSearch    EventType = "search"
	EventMargin    EventType = "margin"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
}

// StepEvent describes one operation step.
type StepEvent struct {
	EventBase
	Operation string  `json:"operation"`
	Step      int     `json:"step"`
	Elapsed   float64 `json:"elapsed"`
	Delta     float64 `json:"delta"`
	Result    *Result `json:"result,omitempty"`
	Err       error   `json:"-"`
}

// SearchEvent describes a finished criticality search.
type SearchEvent struct {
	EventBase
	Mode       SearchMode `json:"mode"`
	Iterations int        `json:"iterations"`
	Residual   float64    `json:"residual"`
	Converged  bool       `json:"converged"`
}

// MarginEvent carries a shutdown margin result.
type MarginEvent struct {
	EventBase
	Result *SDMResult `json:"result"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepStart func(context.Context, *StepEvent)
	OnStepEnd   func(context.Context, *StepEvent)
	OnRollback  func(context.Context, *StepEvent)
	OnSearch    func(context.Context, *SearchEvent)
	OnMargin    func(context.Context, *MarginEvent)
}

// Merge returns hooks calling h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStepStart: chain(h.OnStepStart, other.OnStepStart),
		OnStepEnd:   chain(h.OnStepEnd, other.OnStepEnd),
		OnRollback:  chain(h.OnRollback, other.OnRollback),
		OnSearch:    chain(h.OnSearch, other.OnSearch),
		OnMargin:    chain(h.OnMargin, other.OnMargin),
	}
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
