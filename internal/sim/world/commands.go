package world

import (
	"errors"
	"fmt"

	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/factory/machine"
	"beltgrid.ai/internal/sim/factory/model"
)

var (
	ErrBadRequest    = errors.New("bad request")
	ErrOccupied      = errors.New("cell occupied")
	ErrNotFound      = errors.New("not found")
	ErrOutOfBounds   = errors.New("out of bounds")
	ErrInvalidTarget = errors.New("invalid target")
	ErrBlocked       = errors.New("blocked")
)

// ErrorCode maps a command error to its protocol code.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadRequest):
		return protocol.ErrBadRequest
	case errors.Is(err, ErrOccupied):
		return protocol.ErrOccupied
	case errors.Is(err, ErrNotFound):
		return protocol.ErrNotFound
	case errors.Is(err, ErrOutOfBounds):
		return protocol.ErrOutOfBounds
	case errors.Is(err, ErrInvalidTarget):
		return protocol.ErrInvalidTarget
	case errors.Is(err, ErrBlocked):
		return protocol.ErrBlocked
	default:
		return protocol.ErrInternal
	}
}

// applyCommandSafe applies cmd and turns a panic into an internal error so one
// malformed command cannot take the loop down. Panics inside the tick itself
// are not recovered.
func (w *World) applyCommandSafe(cmd protocol.CmdMsg) (applied int, err error) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Printf("command %s %s at %v panicked: %v", cmd.ID, cmd.Cmd, cmd.Pos, r)
			applied, err = 0, fmt.Errorf("internal: %v", r)
		}
	}()
	return w.applyCommand(cmd)
}

func (w *World) applyCommand(cmd protocol.CmdMsg) (int, error) {
	pos := model.PosFromArray(cmd.Pos)
	switch cmd.Cmd {
	case protocol.CmdPlace:
		return 0, w.cmdPlace(pos, cmd)
	case protocol.CmdRemove:
		if w.cells[pos] == nil {
			return 0, fmt.Errorf("%w: no machine at %v", ErrNotFound, cmd.Pos)
		}
		delete(w.cells, pos)
		return 0, nil
	case protocol.CmdSetRecipe:
		return 0, w.cmdSetRecipe(pos, cmd.RecipeID)
	case protocol.CmdInsert:
		return w.cmdInsert(pos, cmd)
	case protocol.CmdSetGround:
		if !w.inBounds(pos) {
			return 0, fmt.Errorf("%w: %v", ErrOutOfBounds, cmd.Pos)
		}
		r, ok := model.ParseResource(cmd.Resource)
		if !ok {
			return 0, fmt.Errorf("%w: unknown resource %q", ErrBadRequest, cmd.Resource)
		}
		w.ground[pos] = r
		return 0, nil
	case protocol.CmdClearGround:
		if _, ok := w.ground[pos]; !ok {
			return 0, fmt.Errorf("%w: no deposit at %v", ErrNotFound, cmd.Pos)
		}
		delete(w.ground, pos)
		return 0, nil
	default:
		return 0, fmt.Errorf("%w: unknown cmd %q", ErrBadRequest, cmd.Cmd)
	}
}

func (w *World) cmdPlace(pos model.Pos, cmd protocol.CmdMsg) error {
	if !w.inBounds(pos) {
		return fmt.Errorf("%w: %v", ErrOutOfBounds, cmd.Pos)
	}
	if w.cells[pos] != nil {
		return fmt.Errorf("%w: %v", ErrOccupied, cmd.Pos)
	}
	kind, ok := machine.ParseKind(cmd.Kind)
	if !ok {
		return fmt.Errorf("%w: unknown kind %q", ErrBadRequest, cmd.Kind)
	}
	facing, ok := model.ParseSide(cmd.Facing)
	if !ok {
		return fmt.Errorf("%w: bad facing %q", ErrBadRequest, cmd.Facing)
	}
	from := facing.Opposite()
	if cmd.From != "" {
		if !machine.Bends(kind) {
			return fmt.Errorf("%w: %s does not take an input side", ErrBadRequest, kind)
		}
		if from, ok = model.ParseSide(cmd.From); !ok {
			return fmt.Errorf("%w: bad from %q", ErrBadRequest, cmd.From)
		}
	}
	var recipe *machine.Recipe
	if cmd.RecipeID != "" {
		if recipe, ok = w.catalogs.Recipe(cmd.RecipeID); !ok {
			return fmt.Errorf("%w: unknown recipe %q", ErrBadRequest, cmd.RecipeID)
		}
	}

	c, err := w.newCell(pos, kind, facing, from)
	if err != nil {
		return err
	}
	if recipe != nil {
		if err := c.Machine.SetRecipe(recipe); err != nil {
			return recipeErr(err)
		}
	}
	w.cells[pos] = c
	return nil
}

func (w *World) newCell(pos model.Pos, kind machine.Kind, facing, from model.Side) (*Cell, error) {
	if !machine.Bends(kind) {
		from = facing.Opposite()
	}
	m, err := machine.New(kind, facing, from, w.params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	return &Cell{
		Pos:     pos,
		Kind:    kind,
		Facing:  facing,
		From:    from,
		Ports:   machine.PortsFor(kind, facing, from),
		Machine: m,
	}, nil
}

func (w *World) cmdSetRecipe(pos model.Pos, id string) error {
	c := w.cells[pos]
	if c == nil {
		return fmt.Errorf("%w: no machine at %v", ErrNotFound, pos.ToArray())
	}
	r, ok := w.catalogs.Recipe(id)
	if !ok {
		return fmt.Errorf("%w: unknown recipe %q", ErrBadRequest, id)
	}
	if err := c.Machine.SetRecipe(r); err != nil {
		return recipeErr(err)
	}
	return nil
}

func recipeErr(err error) error {
	switch {
	case errors.Is(err, machine.ErrBusy):
		return fmt.Errorf("%w: %v", ErrBlocked, err)
	case errors.Is(err, machine.ErrNotSelectable), errors.Is(err, machine.ErrStationMismatch):
		return fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	default:
		return fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
}

// cmdInsert feeds items into an input port one by one, stopping at the first
// rejection. It reports how many went in.
func (w *World) cmdInsert(pos model.Pos, cmd protocol.CmdMsg) (int, error) {
	c := w.cells[pos]
	if c == nil {
		return 0, fmt.Errorf("%w: no machine at %v", ErrNotFound, cmd.Pos)
	}
	side, ok := model.ParseSide(cmd.Side)
	if !ok {
		return 0, fmt.Errorf("%w: bad side %q", ErrBadRequest, cmd.Side)
	}
	t, ok := model.ParseItemType(cmd.Item)
	if !ok {
		return 0, fmt.Errorf("%w: unknown item %q", ErrBadRequest, cmd.Item)
	}
	count := cmd.Count
	if count == 0 {
		count = 1
	}
	if count < 0 || count > w.cfg.MaxInsertCount {
		return 0, fmt.Errorf("%w: count %d outside 1..%d", ErrBadRequest, count, w.cfg.MaxInsertCount)
	}
	if !c.Ports.In.Has(side) {
		return 0, fmt.Errorf("%w: %s at %v has no input on %s", ErrInvalidTarget, c.Kind, cmd.Pos, side)
	}
	n := 0
	for ; n < count; n++ {
		if !c.Machine.Accept(model.Item{Type: t}, side) {
			break
		}
	}
	if n == 0 {
		return 0, fmt.Errorf("%w: %s at %v rejected %s", ErrBlocked, c.Kind, cmd.Pos, t)
	}
	return n, nil
}
