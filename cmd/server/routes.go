package main

import (
	"context"
	"encoding/json"
	"log"
	"net"
	"net/http"
	"net/http/pprof"
	"time"

	"beltgrid.ai/internal/persistence/indexdb"
	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/tuning"
	"beltgrid.ai/internal/sim/world"
	"beltgrid.ai/internal/transport/observer"
	"beltgrid.ai/internal/transport/ws"
)

type routeConfig struct {
	World     *world.World
	Index     runtimeIndex
	Tuning    tuning.Tuning
	Validator *protocol.Validator
	Logger    *log.Logger

	EnableAdmin bool
	EnablePprof bool
}

func newMux(rc routeConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", rc.metricsHandler)

	if rc.EnableAdmin {
		obs := observer.NewServer(rc.World, rc.Logger, rc.Validator)
		mux.Handle("/admin/v1/state", localOnly(http.HandlerFunc(rc.stateHandler)))
		mux.Handle("/admin/v1/snapshot", localOnly(http.HandlerFunc(rc.snapshotHandler)))
		mux.HandleFunc("/admin/v1/observer/bootstrap", obs.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obs.WSHandler())
	} else {
		rc.Logger.Printf("admin endpoints off (BG_ENABLE_ADMIN_HTTP)")
	}

	if rc.EnablePprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}

	control := ws.NewServer(rc.World, rc.Logger, rc.Validator, ws.Options{
		CommandsPerSecond: rc.Tuning.RateLimits.CommandsPerSecond,
		CommandBurst:      rc.Tuning.RateLimits.CommandBurst,
		TuningDigest:      indexdb.TuningDigest(rc.Tuning),
	})
	mux.HandleFunc("/v1/ws", control.Handler())
	return mux
}

func (rc routeConfig) metricsHandler(rw http.ResponseWriter, _ *http.Request) {
	m := rc.World.Metrics()
	tick := m.Tick
	if tick == 0 {
		// No tick has completed yet.
		tick = rc.World.CurrentTick()
	}
	var st *indexdb.Stats
	if rc.Index != nil {
		s := rc.Index.Stats()
		st = &s
	}
	rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
	writeMetrics(rw, rc.World.ID(), tick, m, st)
}

func (rc routeConfig) stateHandler(rw http.ResponseWriter, _ *http.Request) {
	writeJSON(rw, http.StatusOK, struct {
		WorldID string             `json:"world_id"`
		Tick    uint64             `json:"tick"`
		Config  world.WorldConfig  `json:"config"`
		Metrics world.WorldMetrics `json:"metrics"`
	}{rc.World.ID(), rc.World.CurrentTick(), rc.World.Config(), rc.World.Metrics()})
}

func (rc routeConfig) snapshotHandler(rw http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		rw.Header().Set("Allow", http.MethodPost)
		rw.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	tick, err := rc.World.RequestSnapshot(ctx)
	if err != nil {
		writeJSON(rw, http.StatusServiceUnavailable, map[string]any{"ok": false, "tick": tick, "error": err.Error()})
		return
	}
	writeJSON(rw, http.StatusOK, map[string]any{"ok": true, "tick": tick})
}

func writeJSON(rw http.ResponseWriter, status int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(status)
	_ = json.NewEncoder(rw).Encode(v)
}

// localOnly refuses requests that do not come from a loopback address.
func localOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(rw, r)
	})
}

func isLoopbackRemote(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
