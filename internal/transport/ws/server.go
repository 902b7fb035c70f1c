package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/world"
)

// Options bounds what a single control session may send.
type Options struct {
	CommandsPerSecond float64
	CommandBurst      int
	// TuningDigest is echoed in WELCOME when set.
	TuningDigest string
}

type Server struct {
	world     *world.World
	log       *log.Logger
	validator *protocol.Validator
	opts      Options

	upgrader websocket.Upgrader
}

func NewServer(w *world.World, logger *log.Logger, v *protocol.Validator, opts Options) *Server {
	if opts.CommandsPerSecond <= 0 {
		opts.CommandsPerSecond = 20
	}
	if opts.CommandBurst <= 0 {
		opts.CommandBurst = 40
	}
	return &Server{
		world:     w,
		log:       logger,
		validator: v,
		opts:      opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		sid := s.handshake(conn)
		if sid == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		// The world answers each command on results; local rejections share it
		// so the writer goroutine is the only one touching conn.
		results := make(chan protocol.ResultMsg, 256)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case res := <-results:
					if err := writeJSON(conn, res); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		limiter := rate.NewLimiter(rate.Limit(s.opts.CommandsPerSecond), s.opts.CommandBurst)
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			s.handleCmd(sid, msg, limiter, results)
		}
		s.log.Printf("session %s closed", sid)
	}
}

func (s *Server) handleCmd(sid string, msg []byte, limiter *rate.Limiter, results chan protocol.ResultMsg) {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeCmd {
		return
	}
	// A type mismatch still fills the fields around it, so the reject below
	// can usually echo the command id.
	var cmd protocol.CmdMsg
	decodeErr := json.Unmarshal(msg, &cmd)

	reject := func(code, message string) {
		res := protocol.ResultMsg{
			Type:            protocol.TypeResult,
			ProtocolVersion: protocol.Version,
			ID:              cmd.ID,
			Tick:            s.world.CurrentTick(),
			Code:            code,
			Message:         message,
		}
		select {
		case results <- res:
		default:
		}
	}

	if !limiter.Allow() {
		reject(protocol.ErrRateLimit, "command rate exceeded")
		return
	}
	if base.ProtocolVersion != protocol.Version {
		reject(protocol.ErrProtoBadRequest, "bad protocol_version")
		return
	}
	if s.validator != nil {
		if err := s.validator.Validate(protocol.TypeCmd, msg); err != nil {
			reject(protocol.ErrProtoBadRequest, err.Error())
			return
		}
	}
	if decodeErr != nil {
		reject(protocol.ErrProtoBadRequest, "bad CMD: "+decodeErr.Error())
		return
	}

	select {
	case s.world.Inbox() <- world.CommandEnvelope{SessionID: sid, Cmd: cmd, Resp: results}:
	default:
		reject(protocol.ErrWorldBusy, "command queue full")
	}
}

func (s *Server) handshake(conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closePolicy(conn, "expected HELLO")
		return ""
	}
	if s.validator != nil {
		if err := s.validator.Validate(protocol.TypeHello, msg); err != nil {
			closePolicy(conn, "bad HELLO")
			return ""
		}
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return ""
	}
	if hello.ProtocolVersion != protocol.Version {
		closePolicy(conn, "bad protocol_version")
		return ""
	}
	if hello.Role == protocol.RoleObserver {
		closePolicy(conn, "observers use the observer endpoint")
		return ""
	}

	sid := "C-" + uuid.NewString()
	welcome := s.world.Welcome(sid)
	welcome.Catalogs.TuningDigest = s.opts.TuningDigest
	if err := writeJSON(conn, welcome); err != nil {
		return ""
	}
	s.log.Printf("session %s joined client=%s", sid, hello.ClientName)
	return sid
}

func closePolicy(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
