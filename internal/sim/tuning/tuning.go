package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	ProtocolVersion string `yaml:"protocol_version"`

	TickRateHz         int `yaml:"tick_rate_hz"`
	WorldBoundaryR     int `yaml:"world_boundary_r"`
	SnapshotEveryTicks int `yaml:"snapshot_every_ticks"`

	Machines   Machines   `yaml:"machines"`
	RateLimits RateLimits `yaml:"rate_limits"`
	Observer   Observer   `yaml:"observer"`
}

type Machines struct {
	MinerPeriodTicks int    `yaml:"miner_period_ticks"`
	FuelItem         string `yaml:"fuel_item"`
	BurnThreshold    int    `yaml:"burn_threshold"`
	MaxBurn          int    `yaml:"max_burn"`
}

type RateLimits struct {
	CommandsPerSecond float64 `yaml:"commands_per_second"`
	CommandBurst      int     `yaml:"command_burst"`
	MaxInsertCount    int     `yaml:"max_insert_count"`
}

type Observer struct {
	MaxCellsPerFrame int `yaml:"max_cells_per_frame"`
}

func Defaults() Tuning {
	return Tuning{
		ProtocolVersion:    "1.0",
		TickRateHz:         5,
		WorldBoundaryR:     256,
		SnapshotEveryTicks: 600,
		Machines: Machines{
			MinerPeriodTicks: 4,
			FuelItem:         "COAL",
			BurnThreshold:    20,
			MaxBurn:          200,
		},
		RateLimits: RateLimits{
			CommandsPerSecond: 20,
			CommandBurst:      40,
			MaxInsertCount:    50,
		},
		Observer: Observer{MaxCellsPerFrame: 4096},
	}
}

// Load reads path over Defaults, so omitted keys keep their default.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	switch {
	case t.TickRateHz <= 0:
		return fmt.Errorf("tick_rate_hz must be positive")
	case t.WorldBoundaryR <= 0:
		return fmt.Errorf("world_boundary_r must be positive")
	case t.SnapshotEveryTicks < 0:
		return fmt.Errorf("snapshot_every_ticks must not be negative")
	case t.Machines.MinerPeriodTicks <= 0:
		return fmt.Errorf("machines.miner_period_ticks must be positive")
	case t.Machines.FuelItem == "":
		return fmt.Errorf("machines.fuel_item is required")
	case t.Machines.BurnThreshold <= 0 || t.Machines.MaxBurn < t.Machines.BurnThreshold:
		return fmt.Errorf("machines: need 0 < burn_threshold <= max_burn")
	case t.RateLimits.CommandsPerSecond <= 0 || t.RateLimits.CommandBurst <= 0:
		return fmt.Errorf("rate_limits must be positive")
	}
	return nil
}
