package main

import (
	"fmt"
	"io"

	"beltgrid.ai/internal/persistence/indexdb"
	"beltgrid.ai/internal/sim/world"
)

// writeMetrics renders the world counters in the Prometheus text format.
func writeMetrics(out io.Writer, worldID string, tick uint64, m world.WorldMetrics, idx *indexdb.Stats) {
	gauge := func(name, help string, v any) {
		fmt.Fprintf(out, "# HELP beltgrid_%s %s\n", name, help)
		fmt.Fprintf(out, "# TYPE beltgrid_%s gauge\n", name)
		fmt.Fprintf(out, "beltgrid_%s{world=%q} %v\n", name, worldID, v)
	}
	counter := func(name, help string, v uint64) {
		fmt.Fprintf(out, "# HELP beltgrid_%s %s\n", name, help)
		fmt.Fprintf(out, "# TYPE beltgrid_%s counter\n", name)
		fmt.Fprintf(out, "beltgrid_%s{world=%q} %d\n", name, worldID, v)
	}

	gauge("world_tick", "Current world tick.", tick)
	gauge("world_cells", "Placed machines.", m.Cells)
	gauge("world_deposits", "Resource deposits on the ground layer.", m.Deposits)
	gauge("world_observers", "Connected observers.", m.Observers)
	gauge("world_edges", "Port connections in the last tick's graph.", m.Edges)
	gauge("world_step_ms", "Last tick step duration in milliseconds.", fmt.Sprintf("%.3f", m.StepMS))

	fmt.Fprintf(out, "# HELP beltgrid_world_queue_depth Channel backlog depth.\n")
	fmt.Fprintf(out, "# TYPE beltgrid_world_queue_depth gauge\n")
	fmt.Fprintf(out, "beltgrid_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "inbox", m.QueueDepths.Inbox)
	fmt.Fprintf(out, "beltgrid_world_queue_depth{world=%q,queue=%q} %d\n", worldID, "admin", m.QueueDepths.Admin)

	fmt.Fprintf(out, "# HELP beltgrid_last_tick Scheduler counters for the last tick.\n")
	fmt.Fprintf(out, "# TYPE beltgrid_last_tick gauge\n")
	for _, kv := range []struct {
		k string
		v int
	}{
		{"components", m.LastTick.Components},
		{"actions", m.LastTick.Actions},
		{"transfers", m.LastTick.Transfers},
		{"rejected", m.LastTick.Rejected},
		{"forced", m.LastTick.Forced},
	} {
		fmt.Fprintf(out, "beltgrid_last_tick{world=%q,metric=%q} %d\n", worldID, kv.k, kv.v)
	}

	counter("transfers_total", "Items moved between machines.", m.TransfersTotal)
	counter("rejected_total", "Transfers refused by a full or mismatched receiver.", m.RejectedTotal)
	counter("forced_total", "Forced releases that break scheduling cycles.", m.ForcedTotal)
	counter("commands_total", "Commands applied.", m.CommandsTotal)
	counter("commands_failed_total", "Commands rejected by the world.", m.FailedTotal)

	if idx != nil {
		gauge("index_queue_depth", "Pending index writes.", idx.QueueDepth)
		counter("index_dropped_total", "Index writes dropped under backpressure.", idx.DropTickTotal+idx.DropSnapshotTotal+idx.DropSnapshotStateTotal)
	}
}
