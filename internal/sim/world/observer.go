package world

import (
	"encoding/json"

	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/factory/model"
)

// ObserverJoinRequest registers a read-only observer session. Each tick the
// session receives one FRAME on Out; a slow reader only ever sees the latest.
//
// All observer state is maintained by the world loop goroutine.
type ObserverJoinRequest struct {
	SessionID string
	Out       chan []byte
	MaxCells  int
}

// ObserverSubscribeRequest updates an existing observer session subscription settings.
type ObserverSubscribeRequest struct {
	SessionID string
	MaxCells  int
}

type observerClient struct {
	id       string
	out      chan []byte
	maxCells int
}

func (w *World) ObserverJoin() chan<- ObserverJoinRequest           { return w.observerJoin }
func (w *World) ObserverSubscribe() chan<- ObserverSubscribeRequest { return w.observerSub }
func (w *World) ObserverLeave() chan<- string                       { return w.observerLeave }

func (w *World) observerCap(req int) int {
	limit := w.cfg.ObserverMaxCells
	if req <= 0 || req > limit {
		return limit
	}
	return req
}

func (w *World) handleObserverJoin(req ObserverJoinRequest) {
	if req.SessionID == "" || req.Out == nil {
		return
	}
	// Replace existing session id if any.
	if old := w.observers[req.SessionID]; old != nil {
		close(old.out)
	}
	w.observers[req.SessionID] = &observerClient{
		id:       req.SessionID,
		out:      req.Out,
		maxCells: w.observerCap(req.MaxCells),
	}
}

func (w *World) handleObserverSubscribe(req ObserverSubscribeRequest) {
	c := w.observers[req.SessionID]
	if c == nil {
		return
	}
	c.maxCells = w.observerCap(req.MaxCells)
}

func (w *World) handleObserverLeave(sessionID string) {
	c := w.observers[sessionID]
	if c == nil {
		return
	}
	delete(w.observers, sessionID)
	close(c.out)
}

// stepObservers sends the settled state of nowTick to every observer. Cells
// go out in position order, cut at each session's cap.
func (w *World) stepObservers(nowTick uint64, digest string, stats protocol.FrameStats) {
	if len(w.observers) == 0 {
		return
	}
	cells := w.frameCells()
	encoded := map[int][]byte{}
	for _, c := range w.observers {
		n := min(c.maxCells, len(cells))
		b, ok := encoded[n]
		if !ok {
			frame := protocol.FrameMsg{
				Type:            protocol.TypeFrame,
				ProtocolVersion: protocol.Version,
				WorldID:         w.cfg.ID,
				Tick:            nowTick,
				Digest:          digest,
				Stats:           stats,
				Cells:           cells[:n],
				Truncated:       n < len(cells),
			}
			var err error
			if b, err = json.Marshal(frame); err != nil {
				w.logger.Printf("tick %d: encode frame: %v", nowTick, err)
				return
			}
			encoded[n] = b
		}
		offerFrame(c.out, b)
	}
}

func (w *World) frameCells() []protocol.FrameCell {
	out := make([]protocol.FrameCell, 0, len(w.cells))
	for _, p := range model.SortedPositions(w.cells) {
		c := w.cells[p]
		st := machineState(c.Machine.Behavior)
		fc := protocol.FrameCell{
			Pos:       p.ToArray(),
			Kind:      c.Kind.String(),
			Facing:    c.Facing.String(),
			Input:     frameQueues(&c.Machine.Input),
			Output:    frameQueues(&c.Machine.Output),
			Recipe:    st.RecipeID,
			Countdown: st.Countdown,
			BurnTime:  st.BurnTime,
			Preferred: st.Preferred,
		}
		if r, ok := w.ground[p]; ok {
			fc.Ground = r.String()
		}
		out = append(out, fc)
	}
	return out
}

func frameQueues(s *model.ItemsSet) map[string][]string {
	var out map[string][]string
	for _, side := range s.Ports().Sides() {
		items := s.Items(side)
		if len(items) == 0 {
			continue
		}
		if out == nil {
			out = map[string][]string{}
		}
		names := make([]string, len(items))
		for i, it := range items {
			names[i] = it.Type.String()
		}
		out[side.String()] = names
	}
	return out
}
