package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/catalogs"
	"beltgrid.ai/internal/sim/tuning"
	"beltgrid.ai/internal/sim/world"
)

func testMux(t *testing.T, admin bool) *http.ServeMux {
	t.Helper()
	cats, err := catalogs.Load("../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	tune := tuning.Defaults()
	tune.TickRateHz = 50
	w, err := world.New(configFromTuning("routes_test", tune), cats)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()

	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	return newMux(routeConfig{
		World:       w,
		Tuning:      tune,
		Validator:   v,
		Logger:      log.New(io.Discard, "", 0),
		EnableAdmin: admin,
	})
}

func serve(mux *http.ServeMux, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndMetrics(t *testing.T) {
	mux := testMux(t, false)
	if rec := serve(mux, http.MethodGet, "/healthz"); rec.Code != 200 || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
	body := serve(mux, http.MethodGet, "/metrics").Body.String()
	for _, want := range []string{
		`beltgrid_world_tick{world="routes_test"}`,
		`beltgrid_world_cells{world="routes_test"} 0`,
		`beltgrid_world_queue_depth{world="routes_test",queue="inbox"}`,
		`beltgrid_forced_total{world="routes_test"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
	if strings.Contains(body, "beltgrid_index_") {
		t.Fatalf("index metrics without an index")
	}
	if rec := serve(mux, http.MethodGet, "/admin/v1/state"); rec.Code != http.StatusNotFound {
		t.Fatalf("admin route registered while disabled: %d", rec.Code)
	}
}

func TestAdminRoutes(t *testing.T) {
	mux := testMux(t, true)

	rec := serve(mux, http.MethodGet, "/admin/v1/state")
	var state struct {
		WorldID string `json:"world_id"`
		Tick    uint64 `json:"tick"`
		Config  struct {
			TickRateHz int
		} `json:"config"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil || state.WorldID != "routes_test" || state.Config.TickRateHz != 50 {
		t.Fatalf("state: %v %+v", err, state)
	}

	if rec := serve(mux, http.MethodGet, "/admin/v1/snapshot"); rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET snapshot: %d", rec.Code)
	}
	// No sink is wired in tests, so the world refuses.
	if rec := serve(mux, http.MethodPost, "/admin/v1/snapshot"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("POST snapshot without sink: %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/state", nil)
	req.RemoteAddr = "203.0.113.9:1234"
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("remote admin: %d", rec.Code)
	}
}

func TestConfigFromTuning(t *testing.T) {
	tune := tuning.Defaults()
	tune.RateLimits.MaxInsertCount = 7
	tune.Machines.MinerPeriodTicks = 9
	cfg := configFromTuning("x", tune)
	if cfg.ID != "x" || cfg.MaxInsertCount != 7 || cfg.Machines.MinerPeriodTicks != 9 || cfg.BoundaryR != tune.WorldBoundaryR {
		t.Fatalf("cfg=%+v", cfg)
	}
}
