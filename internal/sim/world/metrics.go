package world

import "beltgrid.ai/internal/sim/factory/schedule"

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated from the world loop goroutine and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick uint64 `json:"tick"`

	Cells     int `json:"cells"`
	Deposits  int `json:"deposits"`
	Observers int `json:"observers"`

	QueueDepths QueueDepths `json:"queue_depths"`

	StepMS float64 `json:"step_ms"`

	LastTick schedule.Stats `json:"last_tick"`
	Edges    int            `json:"edges"`

	TransfersTotal uint64 `json:"transfers_total"`
	RejectedTotal  uint64 `json:"rejected_total"`
	ForcedTotal    uint64 `json:"forced_total"`
	CommandsTotal  uint64 `json:"commands_total"`
	FailedTotal    uint64 `json:"failed_total"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Admin int `json:"admin"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	v := w.metrics.Load()
	if v == nil {
		return WorldMetrics{}
	}
	m, ok := v.(WorldMetrics)
	if !ok {
		return WorldMetrics{}
	}
	return m
}
