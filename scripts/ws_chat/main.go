package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/scanrelay-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
	Code string          `json:"code,omitempty"`
}

func run() error {
	addr := flag.String("addr", "ws://localhost:3001/ws", "WebSocket address")
	room := flag.String("room", "", "room to join; empty creates a new one")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	send := func(eventType string, data any) {
		in := proto.Inbound{Type: eventType}
		if data != nil {
			raw, marshalErr := json.Marshal(data)
			if marshalErr != nil {
				log.Printf("marshal %s: %v", eventType, marshalErr)
				return
			}
			in.Data = raw
		}
		if writeErr := wsjson.Write(ctx, conn, in); writeErr != nil {
			cancel()
			log.Printf("send: %v", writeErr)
		}
	}

	if *room == "" {
		send(proto.InboundTypeCreateRoom, nil)
	} else {
		send(proto.InboundTypeJoinRoom, *room)
	}

	fmt.Printf("Connected to %s\n", *addr)
	fmt.Println("Type a barcode and press Enter to scan. Lines starting with /room switch rooms. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, send)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			}
			log.Printf("read error: %v", err)
			return
		}

		switch f.Type {
		case proto.OutboundTypeRoomCode:
			var code string
			if err := json.Unmarshal(f.Data, &code); err != nil {
				log.Printf("unmarshal roomCode: %v", err)
				continue
			}
			fmt.Printf("[room %s] joined\n", code)
		case proto.OutboundTypeBarcodeScanned:
			var evt proto.BarcodeScanned
			if err := json.Unmarshal(f.Data, &evt); err != nil {
				log.Printf("unmarshal barcodeScanned: %v", err)
				continue
			}
			fmt.Printf("scan %s at %d\n", evt.Code, evt.Timestamp)
		case proto.OutboundTypeTemplateShared:
			fmt.Printf("template %s\n", f.Data)
		case proto.OutboundTypeError:
			fmt.Printf("error %s: %s\n", f.Code, f.Data)
		default:
			fmt.Printf("event=%s data=%s\n", f.Type, f.Data)
		}
	}
}

func writeLoop(ctx context.Context, send func(string, any)) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if code, found := strings.CutPrefix(text, "/room "); found {
				send(proto.InboundTypeChangeRoom, strings.TrimSpace(code))
				continue
			}
			send(proto.InboundTypeScanBarcode, proto.ScanData{Code: text})
		}
	}
}
