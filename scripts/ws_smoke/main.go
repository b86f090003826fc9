package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/vovakirdan/scanrelay-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_smoke: %v", err)
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
	code := flag.String("code", "ABC123", "barcode to send")
	legacy := flag.Bool("legacy", false, "send the scan as a bare string")
	timeout := flag.Duration("timeout", 5*time.Second, "total timeout for the run")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	receiver, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial receiver: %w", err)
	}
	defer receiver.Close(websocket.StatusNormalClosure, "bye")

	sender, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial sender: %w", err)
	}
	defer sender.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, receiver, proto.InboundTypeCreateRoom, nil); err != nil {
		return err
	}
	room, err := expect(ctx, receiver, proto.OutboundTypeRoomCode)
	if err != nil {
		return err
	}
	var roomCode string
	if err := json.Unmarshal(room.Data, &roomCode); err != nil {
		return fmt.Errorf("decode room code: %w", err)
	}
	fmt.Printf("receiver created room %s\n", roomCode)

	if err := send(ctx, sender, proto.InboundTypeJoinRoom, roomCode); err != nil {
		return err
	}
	if _, err := expect(ctx, sender, proto.OutboundTypeRoomCode); err != nil {
		return err
	}
	fmt.Printf("sender joined room %s\n", roomCode)

	var payload any = proto.ScanData{Code: *code}
	if *legacy {
		payload = *code
	}
	if err := send(ctx, sender, proto.InboundTypeScanBarcode, payload); err != nil {
		return err
	}

	scanned, err := expect(ctx, receiver, proto.OutboundTypeBarcodeScanned)
	if err != nil {
		return err
	}
	var evt proto.BarcodeScanned
	if err := json.Unmarshal(scanned.Data, &evt); err != nil {
		return fmt.Errorf("decode scan: %w", err)
	}
	fmt.Printf("receiver got code=%q timestamp=%d\n", evt.Code, evt.Timestamp)
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, eventType string, data any) error {
	in := proto.Inbound{Type: eventType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", eventType, err)
		}
		in.Data = raw
	}
	if err := wsjson.Write(ctx, conn, in); err != nil {
		return fmt.Errorf("send %s: %w", eventType, err)
	}
	return nil
}

func expect(ctx context.Context, conn *websocket.Conn, eventType string) (frame, error) {
	for {
		var f frame
		if err := wsjson.Read(ctx, conn, &f); err != nil {
			return f, fmt.Errorf("read: %w", err)
		}
		if f.Type == proto.OutboundTypeError {
			return f, fmt.Errorf("server error %s: %s", f.Code, f.Data)
		}
		if f.Type == eventType {
			return f, nil
		}
	}
}
