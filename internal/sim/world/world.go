package world

import (
	"fmt"
	"io"
	"log"
	"sync/atomic"

	"beltgrid.ai/internal/persistence/snapshot"
	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/catalogs"
	"beltgrid.ai/internal/sim/factory/machine"
	"beltgrid.ai/internal/sim/factory/model"
	"beltgrid.ai/internal/sim/factory/schedule"
)

// CommandEnvelope carries one client command into the world loop. Resp, when
// set, receives the RESULT after the command is applied.
type CommandEnvelope struct {
	SessionID string
	Cmd       protocol.CmdMsg
	Resp      chan protocol.ResultMsg
}

type RecordedCommand struct {
	SessionID string          `json:"session_id,omitempty"`
	Cmd       protocol.CmdMsg `json:"cmd"`
	Code      string          `json:"code,omitempty"`
}

// Cell is a grid position holding a machine. Ports are fixed at placement.
type Cell struct {
	Pos     model.Pos
	Kind    machine.Kind
	Facing  model.Side
	From    model.Side
	Ports   machine.Ports
	Machine machine.Machine
}

// World is a single-threaded authoritative factory simulation.
// All state must be accessed only from the world loop goroutine.
type World struct {
	cfg      WorldConfig
	catalogs *catalogs.Catalogs
	params   machine.Params

	tick atomic.Uint64

	cells  map[model.Pos]*Cell
	ground map[model.Pos]model.Resource

	inbox         chan CommandEnvelope
	admin         chan adminSnapshotReq
	observerJoin  chan ObserverJoinRequest
	observerSub   chan ObserverSubscribeRequest
	observerLeave chan string
	stop          chan struct{}

	observers map[string]*observerClient

	// Optional logger (may be nil). Implemented in internal/persistence/log.
	tickLogger TickLogger

	// Optional snapshot sink (may be nil). Snapshot writing should be off-thread.
	snapshotSink chan<- snapshot.SnapshotV1

	logger *log.Logger

	totals  totals
	metrics atomic.Value
}

type totals struct {
	transfers uint64
	rejected  uint64
	forced    uint64
	commands  uint64
	failed    uint64
}

type TickLogger interface {
	WriteTick(entry TickLogEntry) error
}

type TickLogEntry struct {
	Tick     uint64            `json:"tick"`
	Commands []RecordedCommand `json:"commands,omitempty"`
	Stats    schedule.Stats    `json:"stats"`
	Digest   string            `json:"digest"`
}

func New(cfg WorldConfig, cats *catalogs.Catalogs) (*World, error) {
	if cats == nil {
		return nil, fmt.Errorf("catalogs required")
	}
	cfg.applyDefaults()

	fuel, ok := model.ParseItemType(cfg.Machines.FuelItem)
	if !ok {
		return nil, fmt.Errorf("unknown fuel item %q", cfg.Machines.FuelItem)
	}
	fuelTicks := cats.FuelTicks(fuel)
	if fuelTicks <= 0 {
		return nil, fmt.Errorf("fuel item %s has no fuel_ticks in items catalog", fuel)
	}

	w := &World{
		cfg:      cfg,
		catalogs: cats,
		params: machine.Params{
			MinerPeriod:   cfg.Machines.MinerPeriodTicks,
			FuelItem:      fuel,
			FuelTicks:     fuelTicks,
			BurnThreshold: cfg.Machines.BurnThreshold,
			MaxBurn:       cfg.Machines.MaxBurn,
		},
		cells:         map[model.Pos]*Cell{},
		ground:        map[model.Pos]model.Resource{},
		inbox:         make(chan CommandEnvelope, 1024),
		admin:         make(chan adminSnapshotReq, 16),
		observerJoin:  make(chan ObserverJoinRequest, 64),
		observerSub:   make(chan ObserverSubscribeRequest, 64),
		observerLeave: make(chan string, 64),
		stop:          make(chan struct{}),
		observers:     map[string]*observerClient{},
		logger:        log.New(io.Discard, "", 0),
	}
	return w, nil
}

func (w *World) SetTickLogger(l TickLogger)                    { w.tickLogger = l }
func (w *World) SetSnapshotSink(ch chan<- snapshot.SnapshotV1) { w.snapshotSink = ch }

func (w *World) SetLogger(l *log.Logger) {
	if l != nil {
		w.logger = l
	}
}

func (w *World) Inbox() chan<- CommandEnvelope { return w.inbox }

func (w *World) CurrentTick() uint64 { return w.tick.Load() }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

func (w *World) TickRateHz() int {
	if w == nil {
		return 0
	}
	return w.cfg.TickRateHz
}

func (w *World) Config() WorldConfig { return w.cfg }

// Welcome describes the world to a newly connected client.
func (w *World) Welcome(sessionID string) protocol.WelcomeMsg {
	return protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		WorldID:         w.cfg.ID,
		Tick:            w.tick.Load(),
		WorldParams: protocol.WorldParams{
			TickRateHz: w.cfg.TickRateHz,
			BoundaryR:  w.cfg.BoundaryR,
		},
		Catalogs: protocol.CatalogDigests{
			ItemPalette: protocol.DigestRef{
				Digest: w.catalogs.Items.PaletteDigest,
				Count:  len(w.catalogs.Items.Palette),
			},
			RecipesDigest: w.catalogs.Recipes.Digest,
		},
	}
}

// Cell returns a copy of the cell at p. Test and replay helper; not safe while
// Run is active.
func (w *World) Cell(p model.Pos) (Cell, bool) {
	c := w.cells[p]
	if c == nil {
		return Cell{}, false
	}
	cp := *c
	cp.Machine = c.Machine.Clone()
	return cp, true
}

func (w *World) CellCount() int { return len(w.cells) }

func (w *World) groundAt(p model.Pos) *model.Resource {
	r, ok := w.ground[p]
	if !ok {
		return nil
	}
	return &r
}

func (w *World) inBounds(p model.Pos) bool {
	r := w.cfg.BoundaryR
	return p.X >= -r && p.X <= r && p.Y >= -r && p.Y <= r
}

// worldGrid is the graph builder's read-only view of the cells.
type worldGrid struct{ w *World }

func (g worldGrid) Occupied() []model.Pos { return model.SortedPositions(g.w.cells) }

func (g worldGrid) PortsAt(p model.Pos) (machine.Ports, bool) {
	c := g.w.cells[p]
	if c == nil {
		return machine.Ports{}, false
	}
	return c.Ports, true
}

func (g worldGrid) MachineAt(p model.Pos) (machine.Machine, bool) {
	c := g.w.cells[p]
	if c == nil {
		return machine.Machine{}, false
	}
	return c.Machine, true
}
