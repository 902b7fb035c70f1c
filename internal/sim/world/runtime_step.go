package world

import (
	"time"

	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/factory/graph"
	"beltgrid.ai/internal/sim/factory/schedule"
)

// stepInternal runs one tick: commands in inbox order, then the factory
// schedule over a freshly built graph, then sync-back. It returns the digest
// of the settled state.
func (w *World) stepInternal(cmds []CommandEnvelope) string {
	stepStart := time.Now()
	nowTick := w.tick.Load()

	recorded := make([]RecordedCommand, 0, len(cmds))
	results := make([]protocol.ResultMsg, len(cmds))
	for i, env := range cmds {
		applied, err := w.applyCommandSafe(env.Cmd)
		code := ErrorCode(err)
		w.totals.commands++
		if err != nil {
			w.totals.failed++
		}
		recorded = append(recorded, RecordedCommand{SessionID: env.SessionID, Cmd: env.Cmd, Code: code})
		res := protocol.ResultMsg{
			Type:            protocol.TypeResult,
			ProtocolVersion: protocol.Version,
			ID:              env.Cmd.ID,
			Tick:            nowTick,
			Accepted:        err == nil,
			Code:            code,
			Applied:         applied,
		}
		if err != nil {
			res.Message = err.Error()
		}
		results[i] = res
	}

	g := graph.Build(worldGrid{w})
	stats := schedule.Run(g, schedule.Ops{Ground: w.groundAt})
	w.syncBack(g)

	w.totals.transfers += uint64(stats.Transfers)
	w.totals.rejected += uint64(stats.Rejected)
	w.totals.forced += uint64(stats.Forced)

	digest := w.stateDigest(nowTick)

	for i, env := range cmds {
		if env.Resp == nil {
			continue
		}
		select {
		case env.Resp <- results[i]:
		default:
			// Caller gave up; don't block the sim loop.
		}
	}

	if w.tickLogger != nil {
		if err := w.tickLogger.WriteTick(TickLogEntry{Tick: nowTick, Commands: recorded, Stats: stats, Digest: digest}); err != nil {
			w.logger.Printf("tick %d: tick log: %v", nowTick, err)
		}
	}

	// Snapshot every N ticks, starting after tick 0.
	if w.snapshotSink != nil && nowTick != 0 && w.cfg.SnapshotEveryTicks > 0 {
		if nowTick%uint64(w.cfg.SnapshotEveryTicks) == 0 {
			snap := w.ExportSnapshot(nowTick)
			select {
			case w.snapshotSink <- snap:
			default:
				// Drop snapshot if sink is backed up.
			}
		}
	}

	w.stepObservers(nowTick, digest, frameStats(stats, len(g.Edges())))

	stepMS := float64(time.Since(stepStart).Microseconds()) / 1000.0
	nextTick := w.tick.Add(1)
	w.metrics.Store(WorldMetrics{
		Tick:      nextTick,
		Cells:     len(w.cells),
		Deposits:  len(w.ground),
		Observers: len(w.observers),
		QueueDepths: QueueDepths{
			Inbox: len(w.inbox),
			Admin: len(w.admin),
		},
		StepMS:         stepMS,
		LastTick:       stats,
		Edges:          len(g.Edges()),
		TransfersTotal: w.totals.transfers,
		RejectedTotal:  w.totals.rejected,
		ForcedTotal:    w.totals.forced,
		CommandsTotal:  w.totals.commands,
		FailedTotal:    w.totals.failed,
	})
	return digest
}

func frameStats(st schedule.Stats, edges int) protocol.FrameStats {
	return protocol.FrameStats{
		Nodes:      st.Nodes,
		Edges:      edges,
		Components: st.Components,
		Actions:    st.Actions,
		Transfers:  st.Transfers,
		Rejected:   st.Rejected,
		Forced:     st.Forced,
	}
}
