// Package layout reads factory layouts from YAML and turns them into the
// commands that build them.
package layout

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/factory/machine"
	"beltgrid.ai/internal/sim/factory/model"
)

type Layout struct {
	Ground   []GroundSpec  `yaml:"ground"`
	Machines []MachineSpec `yaml:"machines"`
	Inserts  []InsertSpec  `yaml:"inserts,omitempty"`
}

type GroundSpec struct {
	Pos      [2]int `yaml:"pos"`
	Resource string `yaml:"resource"`
}

type MachineSpec struct {
	Kind   string `yaml:"kind"`
	Pos    [2]int `yaml:"pos"`
	Facing string `yaml:"facing"`
	From   string `yaml:"from,omitempty"`
	Recipe string `yaml:"recipe,omitempty"`
}

type InsertSpec struct {
	Pos   [2]int `yaml:"pos"`
	Side  string `yaml:"side"`
	Item  string `yaml:"item"`
	Count int    `yaml:"count,omitempty"`
}

func Load(path string) (Layout, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Layout{}, err
	}
	return Parse(b)
}

func Parse(b []byte) (Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(b, &l); err != nil {
		return l, fmt.Errorf("layout: %w", err)
	}
	if err := l.Validate(); err != nil {
		return l, fmt.Errorf("layout: %w", err)
	}
	return l, nil
}

// Validate catches what the world would reject anyway, so a bad file fails
// before anything is sent.
func (l Layout) Validate() error {
	for _, g := range l.Ground {
		if _, ok := model.ParseResource(g.Resource); !ok {
			return fmt.Errorf("ground %v: unknown resource %q", g.Pos, g.Resource)
		}
	}
	seen := map[[2]int]bool{}
	for _, m := range l.Machines {
		kind, ok := machine.ParseKind(m.Kind)
		if !ok {
			return fmt.Errorf("machine %v: unknown kind %q", m.Pos, m.Kind)
		}
		if _, ok := model.ParseSide(m.Facing); !ok {
			return fmt.Errorf("machine %v: bad facing %q", m.Pos, m.Facing)
		}
		if m.From != "" {
			if !machine.Bends(kind) {
				return fmt.Errorf("machine %v: %s does not take from", m.Pos, kind)
			}
			if _, ok := model.ParseSide(m.From); !ok {
				return fmt.Errorf("machine %v: bad from %q", m.Pos, m.From)
			}
		}
		if seen[m.Pos] {
			return fmt.Errorf("machine %v: duplicate position", m.Pos)
		}
		seen[m.Pos] = true
	}
	for _, in := range l.Inserts {
		if !seen[in.Pos] {
			return fmt.Errorf("insert %v: no machine there", in.Pos)
		}
		if _, ok := model.ParseItemType(in.Item); !ok {
			return fmt.Errorf("insert %v: unknown item %q", in.Pos, in.Item)
		}
		if in.Count < 0 {
			return fmt.Errorf("insert %v: negative count", in.Pos)
		}
	}
	return nil
}

// Commands lists ground first, then machines, then inserts. IDs are
// idPrefix plus a sequence number.
func (l Layout) Commands(idPrefix string) []protocol.CmdMsg {
	out := make([]protocol.CmdMsg, 0, len(l.Ground)+len(l.Machines)+len(l.Inserts))
	next := func(name string, pos [2]int) protocol.CmdMsg {
		return protocol.CmdMsg{
			Type:            protocol.TypeCmd,
			ProtocolVersion: protocol.Version,
			ID:              fmt.Sprintf("%s%d", idPrefix, len(out)+1),
			Cmd:             name,
			Pos:             pos,
		}
	}
	for _, g := range l.Ground {
		c := next(protocol.CmdSetGround, g.Pos)
		c.Resource = g.Resource
		out = append(out, c)
	}
	for _, m := range l.Machines {
		c := next(protocol.CmdPlace, m.Pos)
		c.Kind, c.Facing, c.From, c.RecipeID = m.Kind, m.Facing, m.From, m.Recipe
		out = append(out, c)
	}
	for _, in := range l.Inserts {
		c := next(protocol.CmdInsert, in.Pos)
		c.Side, c.Item, c.Count = in.Side, in.Item, in.Count
		out = append(out, c)
	}
	return out
}
