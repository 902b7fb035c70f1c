package main

import (
	"errors"
	"fmt"

	persistlog "beltgrid.ai/internal/persistence/log"
	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/world"
)

var errStop = errors.New("stop")

// replay steps w through the recorded ticks in files, checking each digest
// and command outcome from verifyFrom on. Entries before the world's current
// tick are skipped. toTick of 0 means no upper bound.
func replay(w *world.World, files []string, verifyFrom, toTick uint64) (uint64, error) {
	start := w.CurrentTick()
	if verifyFrom < start {
		verifyFrom = start
	}
	var checked uint64
	step := func(entry world.TickLogEntry) error {
		if entry.Tick < start {
			return nil
		}
		if toTick != 0 && entry.Tick > toTick {
			return errStop
		}
		if entry.Tick != w.CurrentTick() {
			return fmt.Errorf("tick gap: want=%d got=%d", w.CurrentTick(), entry.Tick)
		}

		envs := make([]world.CommandEnvelope, len(entry.Commands))
		for i, rc := range entry.Commands {
			envs[i] = world.CommandEnvelope{SessionID: rc.SessionID, Cmd: rc.Cmd, Resp: make(chan protocol.ResultMsg, 1)}
		}
		tick, digest := w.StepOnce(envs)
		if tick < verifyFrom {
			return nil
		}
		checked++
		if digest != entry.Digest {
			return fmt.Errorf("digest mismatch at tick %d: got=%s want=%s", tick, digest, entry.Digest)
		}
		for i, env := range envs {
			if res := <-env.Resp; res.Code != entry.Commands[i].Code {
				return fmt.Errorf("tick %d cmd %s: code %q, recorded %q", tick, res.ID, res.Code, entry.Commands[i].Code)
			}
		}
		return nil
	}

	for _, path := range files {
		err := persistlog.ReadTicks(path, step)
		if errors.Is(err, errStop) {
			break
		}
		if err != nil {
			return checked, err
		}
	}
	return checked, nil
}
