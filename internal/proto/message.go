package proto

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Inbound is the envelope for messages coming from the client.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

const (
	InboundTypeCreateRoom    = "createRoom"
	InboundTypeJoinRoom      = "joinRoom"
	InboundTypeChangeRoom    = "changeRoom"
	InboundTypeScanBarcode   = "scanBarcode"
	InboundTypeShareTemplate = "shareTemplate"

	OutboundTypeRoomCode       = "roomCode"
	OutboundTypeBarcodeScanned = "barcodeScanned"
	OutboundTypeTemplateShared = "templateShared"
	OutboundTypeError          = "error"
)

// ErrUnknownType is returned by Decode for event names the server does not handle.
var ErrUnknownType = errors.New("unknown event type")

// Outbound is the envelope for messages sent to the client. Code is only set
// on error frames, where Data holds the human readable message.
type Outbound struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
	Code string `json:"code,omitempty"`
}

// ScanData is the scanBarcode payload. Older clients send the barcode as a
// bare JSON string instead.
type ScanData struct {
	Code         string                     `json:"code"`
	TemplateData map[string]json.RawMessage `json:"templateData,omitempty"`
	FieldOrder   []string                   `json:"fieldOrder,omitempty"`
}

// BarcodeScanned is relayed to the other members of the room.
type BarcodeScanned struct {
	Code         string                     `json:"code"`
	Timestamp    int64                      `json:"timestamp"`
	TemplateData map[string]json.RawMessage `json:"templateData,omitempty"`
	FieldOrder   []string                   `json:"fieldOrder,omitempty"`
}

// Request is one decoded client event.
type Request interface {
	request()
}

type (
	CreateRoom struct{}
	JoinRoom   struct{ Code string }
	ChangeRoom struct{ Code string }
	// ScanBarcode carries a scan. Legacy is set for the bare string form.
	ScanBarcode struct {
		ScanData
		Legacy bool
	}
	// ShareTemplate carries the raw template object, unvalidated beyond JSON.
	ShareTemplate struct{ Template json.RawMessage }
)

func (CreateRoom) request()    {}
func (JoinRoom) request()      {}
func (ChangeRoom) request()    {}
func (ScanBarcode) request()   {}
func (ShareTemplate) request() {}

// Decode maps an inbound envelope to its request variant. Payloads of the wrong
// shape decode to empty values so that the room logic reports the matching
// domain error; only unknown event types fail here.
func Decode(in Inbound) (Request, error) {
	switch in.Type {
	case InboundTypeCreateRoom:
		return CreateRoom{}, nil
	case InboundTypeJoinRoom:
		return JoinRoom{Code: decodeString(in.Data)}, nil
	case InboundTypeChangeRoom:
		return ChangeRoom{Code: decodeString(in.Data)}, nil
	case InboundTypeScanBarcode:
		return decodeScan(in.Data), nil
	case InboundTypeShareTemplate:
		return ShareTemplate{Template: in.Data}, nil
	default:
		return nil, ErrUnknownType
	}
}

func decodeString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func decodeScan(raw json.RawMessage) ScanBarcode {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		return ScanBarcode{ScanData: ScanData{Code: decodeString(trimmed)}, Legacy: true}
	}

	var fields struct {
		Code         json.RawMessage `json:"code"`
		TemplateData json.RawMessage `json:"templateData"`
		FieldOrder   json.RawMessage `json:"fieldOrder"`
	}
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return ScanBarcode{}
	}

	// Optional members of the wrong shape are dropped; the scan still goes out.
	var data ScanData
	data.Code = decodeString(fields.Code)
	if err := json.Unmarshal(fields.TemplateData, &data.TemplateData); err != nil {
		data.TemplateData = nil
	}
	if err := json.Unmarshal(fields.FieldOrder, &data.FieldOrder); err != nil {
		data.FieldOrder = nil
	}
	return ScanBarcode{ScanData: data}
}
