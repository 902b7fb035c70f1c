package world

import "beltgrid.ai/internal/persistence/snapshot"

type WorldConfig struct {
	ID                 string
	TickRateHz         int
	BoundaryR          int
	SnapshotEveryTicks int

	// MaxInsertCount caps a single INSERT command.
	MaxInsertCount int
	// ObserverMaxCells caps the cells carried by one FRAME.
	ObserverMaxCells int

	Machines MachineConfig
}

// MachineConfig is fixed into each machine when it is placed.
type MachineConfig struct {
	MinerPeriodTicks int
	FuelItem         string
	BurnThreshold    int
	MaxBurn          int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "factory_1"
	}
	if c.TickRateHz <= 0 {
		c.TickRateHz = 5
	}
	if c.BoundaryR <= 0 {
		c.BoundaryR = 256
	}
	if c.SnapshotEveryTicks < 0 {
		c.SnapshotEveryTicks = 0
	}
	if c.MaxInsertCount <= 0 {
		c.MaxInsertCount = 50
	}
	if c.ObserverMaxCells <= 0 {
		c.ObserverMaxCells = 4096
	}
	c.Machines.applyDefaults()
}

func (mc *MachineConfig) applyDefaults() {
	if mc.MinerPeriodTicks <= 0 {
		mc.MinerPeriodTicks = 4
	}
	if mc.FuelItem == "" {
		mc.FuelItem = "COAL"
	}
	if mc.BurnThreshold <= 0 {
		mc.BurnThreshold = 20
	}
	if mc.MaxBurn < mc.BurnThreshold {
		mc.MaxBurn = mc.BurnThreshold * 10
	}
}

// ConfigFromSnapshot rebuilds the config a snapshot was taken under so resumes
// and replays place machines with the same parameters.
func ConfigFromSnapshot(id string, s snapshot.SnapshotV1) WorldConfig {
	if id == "" {
		id = s.Header.WorldID
	}
	return WorldConfig{
		ID:                 id,
		TickRateHz:         s.TickRate,
		BoundaryR:          s.BoundaryR,
		SnapshotEveryTicks: s.SnapshotEveryTicks,
		MaxInsertCount:     s.MaxInsertCount,
		Machines: MachineConfig{
			MinerPeriodTicks: s.Machines.MinerPeriodTicks,
			FuelItem:         s.Machines.FuelItem,
			BurnThreshold:    s.Machines.BurnThreshold,
			MaxBurn:          s.Machines.MaxBurn,
		},
	}
}
