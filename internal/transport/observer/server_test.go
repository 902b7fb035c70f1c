package observer

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/catalogs"
	"beltgrid.ai/internal/sim/world"
)

func newServer(t *testing.T) (*httptest.Server, *world.World) {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "obs_test", TickRateHz: 50, BoundaryR: 16}, cats)
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
	srv := NewServer(w, log.New(io.Discard, "", 0), v)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/observer/bootstrap", srv.BootstrapHandler())
	mux.HandleFunc("/v1/observer/ws", srv.WSHandler())
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts, w
}

func TestObserverReceivesFrames(t *testing.T) {
	ts, w := newServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(protocol.SubscribeMsg{Type: protocol.TypeSubscribe, ProtocolVersion: protocol.Version, MaxCells: 10}); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	resp := make(chan protocol.ResultMsg, 1)
	w.Inbox() <- world.CommandEnvelope{
		SessionID: "s",
		Cmd: protocol.CmdMsg{
			Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ID: "p",
			Cmd: protocol.CmdPlace, Pos: [2]int{1, 2}, Kind: "CHEST", Facing: "N",
		},
		Resp: resp,
	}
	if r := <-resp; !r.Accepted {
		t.Fatalf("place: %+v", r)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		var f protocol.FrameMsg
		_ = conn.SetReadDeadline(deadline)
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if f.Type != protocol.TypeFrame || f.WorldID != "obs_test" {
			t.Fatalf("frame=%+v", f)
		}
		if len(f.Cells) == 1 && f.Cells[0].Kind == "CHEST" && f.Cells[0].Pos == [2]int{1, 2} {
			return
		}
	}
	t.Fatalf("chest never appeared in a frame")
}

func TestObserverRequiresSubscribe(t *testing.T) {
	ts, _ := newServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/v1/observer/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := conn.WriteJSON(map[string]string{"type": "HELLO", "protocol_version": protocol.Version}); err != nil {
		t.Fatalf("write: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy close, got %v", err)
	}
}

func TestBootstrap(t *testing.T) {
	ts, _ := newServer(t)
	res, err := http.Get(ts.URL + "/v1/observer/bootstrap")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	var welcome protocol.WelcomeMsg
	if err := json.NewDecoder(res.Body).Decode(&welcome); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if welcome.WorldID != "obs_test" || welcome.Catalogs.RecipesDigest == "" {
		t.Fatalf("bootstrap=%+v", welcome)
	}
}

func TestLoopbackCheck(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1:5000": true,
		"[::1]:80":       true,
		"10.0.0.2:80":    false,
		"garbage":        false,
	} {
		if got := isLoopbackRemote(addr); got != want {
			t.Fatalf("%s: got %v", addr, got)
		}
	}
}
