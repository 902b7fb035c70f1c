package main

import (
	"flag"
	"log"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"beltgrid.ai/internal/protocol"
	"beltgrid.ai/internal/sim/layout"
)

func main() {
	var (
		url        = flag.String("url", "ws://localhost:8080/v1/ws", "ws url")
		name       = flag.String("name", "bot", "client name")
		layoutPath = flag.String("layout", "./configs/layouts/demo.yaml", "layout yaml to build")
		timeout    = flag.Duration("timeout", 30*time.Second, "how long to wait for results")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[bot] ", log.LstdFlags|log.Lmicroseconds)

	l, err := layout.Load(*layoutPath)
	if err != nil {
		logger.Fatalf("%v", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      *name,
		Role:            protocol.RoleControl,
	}
	if err := conn.WriteJSON(hello); err != nil {
		logger.Fatalf("send HELLO: %v", err)
	}
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		logger.Fatalf("read WELCOME: %v", err)
	}
	logger.Printf("session=%s world=%s tick=%d", welcome.SessionID, welcome.WorldID, welcome.Tick)

	cmds := l.Commands(*name + "-")
	for _, c := range cmds {
		if err := conn.WriteJSON(c); err != nil {
			logger.Fatalf("send %s: %v", c.ID, err)
		}
	}

	var accepted, rejected int
	_ = conn.SetReadDeadline(time.Now().Add(*timeout))
	for accepted+rejected < len(cmds) {
		var res protocol.ResultMsg
		if err := conn.ReadJSON(&res); err != nil {
			logger.Fatalf("read RESULT: %v", err)
		}
		if res.Type != protocol.TypeResult {
			continue
		}
		if res.Accepted {
			accepted++
			continue
		}
		rejected++
		logger.Printf("%s rejected at tick %d: %s %s", res.ID, res.Tick, res.Code, res.Message)
	}
	logger.Printf("done: accepted=%d rejected=%d", accepted, rejected)
	if rejected > 0 {
		os.Exit(1)
	}
}
