package observer

import (
	"encoding/json"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/world"
)

const (
	subscribeTimeout = 5 * time.Second
	idleTimeout      = 60 * time.Second
	writeTimeout     = 5 * time.Second
)

// Server streams per-tick FRAME messages to read-only viewers.
type Server struct {
	world     *world.World
	log       *log.Logger
	validator *protocol.Validator

	// AllowRemote lifts the loopback-only restriction.
	AllowRemote bool

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger, v *protocol.Validator) *Server {
	return &Server{
		world:     w,
		log:       logger,
		validator: v,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 << 10,
			WriteBufferSize: 64 << 10,
			// Viewers are local tools; origin is not meaningful here.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// BootstrapHandler describes the world so a viewer can size itself before
// subscribing.
func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method != http.MethodGet:
			rw.WriteHeader(http.StatusMethodNotAllowed)
		case !s.allowed(r):
			http.Error(rw, "forbidden", http.StatusForbidden)
		default:
			rw.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(rw).Encode(s.world.Welcome(""))
		}
	}
}

// WSHandler upgrades the connection and expects SUBSCRIBE as the first
// message. Later SUBSCRIBE messages change the frame cap.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !s.allowed(r) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.SetReadDeadline(time.Now().Add(subscribeTimeout))
		_, first, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := s.decodeSubscribe(first)
		if !ok {
			closeWith(conn, websocket.ClosePolicyViolation, "expected SUBSCRIBE")
			return
		}

		v := &viewer{srv: s, conn: conn, id: "O-" + uuid.NewString(), frames: make(chan []byte, 2)}
		if !v.join(sub.MaxCells) {
			closeWith(conn, websocket.CloseTryAgainLater, "server busy")
			return
		}
		defer v.leave()

		written := make(chan struct{})
		go func() {
			defer close(written)
			v.writeFrames()
		}()
		v.readSubscriptions()

		closeWith(conn, websocket.CloseNormalClosure, "bye")
		select {
		case <-written:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

// viewer is one subscribed observer connection.
type viewer struct {
	srv    *Server
	conn   *websocket.Conn
	id     string
	frames chan []byte
}

func (v *viewer) join(maxCells int) bool {
	req := world.ObserverJoinRequest{SessionID: v.id, Out: v.frames, MaxCells: maxCells}
	select {
	case v.srv.world.ObserverJoin() <- req:
		return true
	default:
		return false
	}
}

// leave is best effort: a stopped world loop no longer drains the channel.
func (v *viewer) leave() {
	select {
	case v.srv.world.ObserverLeave() <- v.id:
	default:
	}
}

// writeFrames runs until the world closes frames on leave or a write fails.
func (v *viewer) writeFrames() {
	for b := range v.frames {
		_ = v.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := v.conn.WriteMessage(websocket.TextMessage, b); err != nil {
			_ = v.conn.Close()
			return
		}
	}
}

func (v *viewer) readSubscriptions() {
	for {
		_ = v.conn.SetReadDeadline(time.Now().Add(idleTimeout))
		_, msg, err := v.conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := v.srv.decodeSubscribe(msg)
		if !ok {
			continue
		}
		// A busy world drops the update; the viewer may resend.
		select {
		case v.srv.world.ObserverSubscribe() <- world.ObserverSubscribeRequest{SessionID: v.id, MaxCells: sub.MaxCells}:
		default:
		}
	}
}

func (s *Server) decodeSubscribe(msg []byte) (protocol.SubscribeMsg, bool) {
	var sub protocol.SubscribeMsg
	if s.validator != nil && s.validator.Validate(protocol.TypeSubscribe, msg) != nil {
		return sub, false
	}
	if json.Unmarshal(msg, &sub) != nil {
		return sub, false
	}
	return sub, sub.Type == protocol.TypeSubscribe && sub.ProtocolVersion == protocol.Version
}

func (s *Server) allowed(r *http.Request) bool {
	return s.AllowRemote || isLoopbackRemote(r.RemoteAddr)
}

func closeWith(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
}

func isLoopbackRemote(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
