package world

import (
	"context"
	"time"
)

// tickBatch collects everything that arrived between two ticker fires.
type tickBatch struct {
	cmds      []CommandEnvelope
	snapshots []adminSnapshotReq
}

func (b *tickBatch) reset() {
	b.cmds = b.cmds[:0]
	b.snapshots = b.snapshots[:0]
}

// Run owns the world until ctx is cancelled or Stop is called. Commands are
// buffered and applied together at the next tick boundary, in arrival order.
func (w *World) Run(ctx context.Context) error {
	timer := time.NewTicker(time.Second / time.Duration(w.cfg.TickRateHz))
	defer timer.Stop()

	var batch tickBatch
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil

		case env := <-w.inbox:
			batch.cmds = append(batch.cmds, env)
		case req := <-w.admin:
			batch.snapshots = append(batch.snapshots, req)

		case req := <-w.observerJoin:
			w.handleObserverJoin(req)
		case req := <-w.observerSub:
			w.handleObserverSubscribe(req)
		case sid := <-w.observerLeave:
			w.handleObserverLeave(sid)

		case <-timer.C:
			w.stepInternal(batch.cmds)
			// Snapshot requests see the state the tick just produced.
			w.handleAdminSnapshotRequests(batch.snapshots)
			batch.reset()
		}
	}
}

func (w *World) Stop() { close(w.stop) }

// StepOnce runs one tick synchronously with cmds applied at its boundary and
// returns the tick number and its state digest. Replay and tests drive the
// world through it.
func (w *World) StepOnce(cmds []CommandEnvelope) (uint64, string) {
	tick := w.tick.Load()
	return tick, w.stepInternal(cmds)
}

// offerFrame delivers b without blocking. A full channel gives up its oldest
// frame so a slow viewer always ends up with the newest one.
func offerFrame(ch chan []byte, b []byte) {
	for attempt := 0; attempt < 2; attempt++ {
		select {
		case ch <- b:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
