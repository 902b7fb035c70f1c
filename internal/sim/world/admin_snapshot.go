package world

import (
	"context"
	"errors"
)

type adminSnapshotReq struct {
	Resp chan adminSnapshotResp
}

type adminSnapshotResp struct {
	Tick uint64
	Err  string
}

var errNoSnapshotQueue = errors.New("snapshot queue unavailable")

// RequestSnapshot asks the world loop to hand a snapshot of the last settled
// tick to the snapshot sink. It blocks until the loop answers or ctx ends.
func (w *World) RequestSnapshot(ctx context.Context) (uint64, error) {
	if w == nil || w.admin == nil {
		return 0, errNoSnapshotQueue
	}
	req := adminSnapshotReq{Resp: make(chan adminSnapshotResp, 1)}
	select {
	case w.admin <- req:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	var r adminSnapshotResp
	select {
	case r = <-req.Resp:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	if r.Err != "" {
		return r.Tick, errors.New(r.Err)
	}
	return r.Tick, nil
}

// handleAdminSnapshotRequests exports at most one snapshot no matter how many
// requests piled up during the tick, and answers all of them with its result.
func (w *World) handleAdminSnapshotRequests(reqs []adminSnapshotReq) {
	if len(reqs) == 0 {
		return
	}
	res := adminSnapshotResp{}
	if next := w.tick.Load(); next > 0 {
		res.Tick = next - 1
	}
	if w.snapshotSink == nil {
		res.Err = "no snapshot sink"
	} else {
		select {
		case w.snapshotSink <- w.ExportSnapshot(res.Tick):
		default:
			res.Err = "snapshot sink full"
		}
	}
	for _, r := range reqs {
		if r.Resp != nil {
			select {
			case r.Resp <- res:
			default:
			}
		}
	}
}
