package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "beltgrid.ai/internal/persistence/log"
	"beltgrid.ai/internal/persistence/snapshot"
	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/catalogs"
	"beltgrid.ai/internal/sim/tuning"
	"beltgrid.ai/internal/sim/world"
)

func newLogger(prefix string) *log.Logger {
	return log.New(os.Stdout, "["+prefix+"] ", log.LstdFlags|log.Lmicroseconds)
}

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address")
		worldID    = flag.String("world", "factory_1", "world id")
		configDir  = flag.String("configs", "./configs", "directory holding items.json, recipes.json and tuning.yaml")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "tuning file (default <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "run without the sqlite read-model index")
		snapPath   = flag.String("snapshot", "", "snapshot to resume from")
		loadLatest = flag.Bool("load_latest_snapshot", true, "resume from the newest snapshot in the data dir when -snapshot is empty")
	)
	flag.Parse()

	logger := newLogger("server")

	cats, err := catalogs.Load(*configDir)
	if err != nil {
		logger.Fatalf("catalogs: %v", err)
	}
	validator, err := protocol.NewValidator()
	if err != nil {
		logger.Fatalf("schemas: %v", err)
	}

	worldDir := filepath.Join(*dataDir, "worlds", *worldID)
	if err := os.MkdirAll(worldDir, 0o755); err != nil {
		logger.Fatalf("data dir: %v", err)
	}

	resumeFrom := strings.TrimSpace(*snapPath)
	if resumeFrom == "" && *loadLatest {
		resumeFrom = snapshot.Latest(worldDir)
	}

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	switch {
	case err == nil:
	case resumeFrom != "" && errors.Is(err, os.ErrNotExist):
		// The snapshot carries the world parameters; tuning only feeds the transports.
		logger.Printf("no tuning at %s, using defaults", tp)
		tune = tuning.Defaults()
	default:
		logger.Fatalf("tuning: %v", err)
	}

	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("index: %v", err)
	}
	if idx != nil {
		defer idx.Close()
		if err := idx.UpsertCatalogs(*configDir, cats, tune); err != nil {
			logger.Printf("index catalogs: %v", err)
		}
	}

	w, err := openWorld(*worldID, resumeFrom, tune, cats)
	if err != nil {
		logger.Fatalf("%v", err)
	}
	if resumeFrom != "" {
		logger.Printf("resumed %s at tick %d", filepath.Base(resumeFrom), w.CurrentTick())
	}
	w.SetLogger(newLogger("world"))

	tickLog := persistlog.NewTickLogger(worldDir)
	defer tickLog.Close()
	w.SetTickLogger(teeTickLogger{tickLog, idx})

	ctx, cancel := signalContext()
	defer cancel()

	snaps := make(chan snapshot.SnapshotV1, 2)
	w.SetSnapshotSink(snaps)
	go writeSnapshots(ctx, worldDir, snaps, idx, logger)

	worldDone := make(chan struct{})
	go func() {
		defer close(worldDone)
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Printf("world loop: %v", err)
		}
	}()

	srv := &http.Server{
		Addr: *addr,
		Handler: newMux(routeConfig{
			World:       w,
			Index:       idx,
			Tuning:      tune,
			Validator:   validator,
			Logger:      newLogger("http"),
			EnableAdmin: envBool("BG_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
			EnablePprof: envBool("BG_ENABLE_PPROF_HTTP", false),
		}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer scancel()
		_ = srv.Shutdown(sctx)
	}()

	logger.Printf("listening on %s world=%s tick=%d", *addr, *worldID, w.CurrentTick())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Printf("http: %v", err)
		cancel()
	}
	// The tick logger and index are closed by the defers above; the world
	// loop writes to both until it returns.
	<-worldDone
}

// openWorld builds a fresh world from tuning, or restores one from the
// snapshot at path when path is set.
func openWorld(id, path string, tune tuning.Tuning, cats *catalogs.Catalogs) (*world.World, error) {
	if path == "" {
		w, err := world.New(configFromTuning(id, tune), cats)
		if err != nil {
			return nil, fmt.Errorf("world: %w", err)
		}
		return w, nil
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if snap.Header.WorldID != "" && snap.Header.WorldID != id {
		return nil, fmt.Errorf("snapshot %s belongs to world %q, not %q", filepath.Base(path), snap.Header.WorldID, id)
	}
	cfg := world.ConfigFromSnapshot(id, snap)
	cfg.ObserverMaxCells = tune.Observer.MaxCellsPerFrame
	w, err := world.New(cfg, cats)
	if err != nil {
		return nil, fmt.Errorf("world: %w", err)
	}
	if err := w.ImportSnapshot(snap); err != nil {
		return nil, fmt.Errorf("import snapshot: %w", err)
	}
	return w, nil
}

// writeSnapshots persists snapshots handed over by the world loop and
// indexes them.
func writeSnapshots(ctx context.Context, worldDir string, in <-chan snapshot.SnapshotV1, idx runtimeIndex, logger *log.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-in:
			path := snapshot.Path(worldDir, snap.Header.Tick)
			if err := snapshot.WriteSnapshot(path, snap); err != nil {
				logger.Printf("snapshot %d: %v", snap.Header.Tick, err)
				continue
			}
			if idx != nil {
				idx.RecordSnapshot(path, snap)
				idx.RecordSnapshotState(snap)
			}
		}
	}
}

func configFromTuning(id string, t tuning.Tuning) world.WorldConfig {
	return world.WorldConfig{
		ID:                 id,
		TickRateHz:         t.TickRateHz,
		BoundaryR:          t.WorldBoundaryR,
		SnapshotEveryTicks: t.SnapshotEveryTicks,
		MaxInsertCount:     t.RateLimits.MaxInsertCount,
		ObserverMaxCells:   t.Observer.MaxCellsPerFrame,
		Machines: world.MachineConfig{
			MinerPeriodTicks: t.Machines.MinerPeriodTicks,
			FuelItem:         t.Machines.FuelItem,
			BurnThreshold:    t.Machines.BurnThreshold,
			MaxBurn:          t.Machines.MaxBurn,
		},
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// defaultEnableAdminHTTP keeps admin routes off in deployed environments.
func defaultEnableAdminHTTP() bool {
	env := strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV")))
	return env != "staging" && env != "production"
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}
