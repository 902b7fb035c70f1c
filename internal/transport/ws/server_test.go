package ws

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/catalogs"
	"beltgrid.ai/internal/sim/world"
)

func startServer(t *testing.T, opts Options) string {
	t.Helper()
	v, err := protocol.NewValidator()
	if err != nil {
		t.Fatalf("validator: %v", err)
	}
	return startServerWith(t, opts, v)
}

func startServerWith(t *testing.T, opts Options, v *protocol.Validator) string {
	t.Helper()
	cats, err := catalogs.Load("../../../configs")
	if err != nil {
		t.Fatalf("load catalogs: %v", err)
	}
	w, err := world.New(world.WorldConfig{ID: "ws_test", TickRateHz: 50, BoundaryR: 16}, cats)
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = w.Run(ctx) }()

	srv := NewServer(w, log.New(io.Discard, "", 0), v, opts)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url string) (*websocket.Conn, protocol.WelcomeMsg) {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "test"}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("hello: %v", err)
	}
	var welcome protocol.WelcomeMsg
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&welcome); err != nil {
		t.Fatalf("welcome: %v", err)
	}
	return conn, welcome
}

func readResults(t *testing.T, conn *websocket.Conn, n int) map[string]protocol.ResultMsg {
	t.Helper()
	out := map[string]protocol.ResultMsg{}
	for len(out) < n {
		var res protocol.ResultMsg
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&res); err != nil {
			t.Fatalf("read result: %v", err)
		}
		if res.Type != protocol.TypeResult {
			t.Fatalf("unexpected message type %q", res.Type)
		}
		out[res.ID] = res
	}
	return out
}

func placeCmd(id string, x int) protocol.CmdMsg {
	return protocol.CmdMsg{
		Type: protocol.TypeCmd, ProtocolVersion: protocol.Version, ID: id,
		Cmd: protocol.CmdPlace, Pos: [2]int{x, 0}, Kind: "BELT", Facing: "E",
	}
}

func TestHandshakeAndCommand(t *testing.T) {
	url := startServer(t, Options{TuningDigest: "abc"})
	conn, welcome := dial(t, url)
	if !strings.HasPrefix(welcome.SessionID, "C-") || welcome.WorldID != "ws_test" {
		t.Fatalf("welcome=%+v", welcome)
	}
	if welcome.Catalogs.TuningDigest != "abc" || welcome.WorldParams.BoundaryR != 16 {
		t.Fatalf("welcome catalogs=%+v params=%+v", welcome.Catalogs, welcome.WorldParams)
	}

	if err := conn.WriteJSON(placeCmd("p1", 0)); err != nil {
		t.Fatalf("write: %v", err)
	}
	bad := placeCmd("p2", 1)
	bad.Kind = ""
	if err := conn.WriteJSON(bad); err != nil {
		t.Fatalf("write: %v", err)
	}
	again := placeCmd("p3", 0)
	if err := conn.WriteJSON(again); err != nil {
		t.Fatalf("write: %v", err)
	}

	res := readResults(t, conn, 3)
	if !res["p1"].Accepted {
		t.Fatalf("p1=%+v", res["p1"])
	}
	if res["p2"].Accepted || res["p2"].Code != protocol.ErrProtoBadRequest {
		t.Fatalf("p2=%+v", res["p2"])
	}
	if res["p3"].Accepted || res["p3"].Code != protocol.ErrOccupied {
		t.Fatalf("p3=%+v", res["p3"])
	}
}

func TestUndecodableCommandIsRejected(t *testing.T) {
	url := startServerWith(t, Options{}, nil)
	conn, _ := dial(t, url)

	raw := `{"type":"CMD","protocol_version":"` + protocol.Version + `","id":"x1","cmd":"PLACE","pos":"oops"}`
	if err := conn.WriteMessage(websocket.TextMessage, []byte(raw)); err != nil {
		t.Fatalf("write: %v", err)
	}
	res := readResults(t, conn, 1)
	if r, ok := res["x1"]; !ok || r.Accepted || r.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("results=%+v", res)
	}
}

func TestRateLimitRejectsBurst(t *testing.T) {
	url := startServer(t, Options{CommandsPerSecond: 0.01, CommandBurst: 1})
	conn, _ := dial(t, url)
	for i, id := range []string{"a", "b"} {
		if err := conn.WriteJSON(placeCmd(id, i)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	res := readResults(t, conn, 2)
	if !res["a"].Accepted {
		t.Fatalf("a=%+v", res["a"])
	}
	if res["b"].Code != protocol.ErrRateLimit {
		t.Fatalf("b=%+v", res["b"])
	}
}

func TestObserverRoleIsRefused(t *testing.T) {
	url := startServer(t, Options{})
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	hello := protocol.HelloMsg{Type: protocol.TypeHello, ProtocolVersion: protocol.Version, ClientName: "viewer", Role: protocol.RoleObserver}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("hello: %v", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err = conn.ReadMessage()
	if !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
		t.Fatalf("expected policy close, got %v", err)
	}
}
