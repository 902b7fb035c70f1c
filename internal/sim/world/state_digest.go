package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"

	"beltgrid.ai/internal/persistence/snapshot"
	"beltgrid.ai/internal/sim/factory/model"
)

// stateDigest hashes everything that determines future ticks: cells in
// position order with their queues and behavior state, then deposits.
func (w *World) stateDigest(nowTick uint64) string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, nowTick)
	digestWriteU64(h, &tmp, uint64(len(w.cells)))
	for _, p := range model.SortedPositions(w.cells) {
		c := w.cells[p]
		digestWritePos(h, &tmp, p)
		h.Write([]byte{byte(c.Kind), byte(c.Facing), byte(c.From)})
		digestWriteQueues(h, &tmp, &c.Machine.Input)
		digestWriteQueues(h, &tmp, &c.Machine.Output)
		digestWriteState(h, &tmp, machineState(c.Machine.Behavior))
	}

	digestWriteU64(h, &tmp, uint64(len(w.ground)))
	for _, p := range model.SortedPositions(w.ground) {
		digestWritePos(h, &tmp, p)
		h.Write([]byte{byte(w.ground[p])})
	}

	return hex.EncodeToString(h.Sum(nil))
}

type hashWriter interface {
	Write(p []byte) (n int, err error)
}

func digestWriteU64(h hashWriter, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestWriteI64(h hashWriter, tmp *[8]byte, v int64) {
	digestWriteU64(h, tmp, uint64(v))
}

func digestWritePos(h hashWriter, tmp *[8]byte, p model.Pos) {
	digestWriteI64(h, tmp, int64(p.X))
	digestWriteI64(h, tmp, int64(p.Y))
}

func digestWriteString(h hashWriter, tmp *[8]byte, s string) {
	digestWriteU64(h, tmp, uint64(len(s)))
	h.Write([]byte(s))
}

func digestWriteQueues(h hashWriter, tmp *[8]byte, s *model.ItemsSet) {
	h.Write([]byte{byte(s.Ports())})
	for _, side := range s.Ports().Sides() {
		items := s.Items(side)
		digestWriteU64(h, tmp, uint64(len(items)))
		for _, it := range items {
			h.Write([]byte{byte(it.Type), boolByte(it.Moved)})
		}
	}
}

func digestWriteState(h hashWriter, tmp *[8]byte, st snapshot.MachineStateV1) {
	digestWriteString(h, tmp, st.RecipeID)
	h.Write([]byte{boolByte(st.InProgress), boolByte(st.Running)})
	for _, v := range []int{st.Countdown, st.Period, st.Active, st.Next, st.FuelTicks, st.BurnThreshold, st.MaxBurn, st.BurnTime} {
		digestWriteI64(h, tmp, int64(v))
	}
	digestWriteString(h, tmp, st.LastSide)
	digestWriteString(h, tmp, st.FuelItem)
	digestWriteU64(h, tmp, uint64(len(st.Preferred)))
	for _, s := range st.Preferred {
		digestWriteString(h, tmp, s)
	}
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
