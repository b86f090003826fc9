package http

import (
	"context"

	"github.com/vovakirdan/scanrelay-server/internal/core"
	"github.com/vovakirdan/scanrelay-server/internal/proto"
)

var (
	errUnknownEvent     = &core.CoreError{Code: core.ErrCodeInvalidMessage, Message: "Unknown event"}
	errMalformedMessage = &core.CoreError{Code: core.ErrCodeInvalidMessage, Message: "Malformed message"}
)

func dispatch(ctx context.Context, session *core.Session, req proto.Request) error {
	switch r := req.(type) {
	case proto.CreateRoom:
		return session.CreateRoom(ctx)
	case proto.JoinRoom:
		return session.JoinRoom(ctx, r.Code)
	case proto.ChangeRoom:
		return session.ChangeRoom(ctx, r.Code)
	case proto.ScanBarcode:
		return session.ScanBarcode(ctx, core.Scan{
			Code:         r.Code,
			TemplateData: r.TemplateData,
			FieldOrder:   r.FieldOrder,
		})
	case proto.ShareTemplate:
		return session.ShareTemplate(ctx, r.Template)
	default:
		session.Reject(errUnknownEvent)
		return nil
	}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventRoomCode:
		return proto.Outbound{Type: proto.OutboundTypeRoomCode, Data: event.Room}
	case core.EventBarcodeScanned:
		return proto.Outbound{
			Type: proto.OutboundTypeBarcodeScanned,
			Data: proto.BarcodeScanned{
				Code:         event.Scan.Code,
				Timestamp:    event.Scan.Timestamp,
				TemplateData: event.Scan.TemplateData,
				FieldOrder:   event.Scan.FieldOrder,
			},
		}
	case core.EventTemplateShared:
		return proto.Outbound{Type: proto.OutboundTypeTemplateShared, Data: event.Template}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Data: "Unknown error", Code: core.ErrCodeInternal}
		}
		return proto.Outbound{Type: proto.OutboundTypeError, Data: event.Error.Message, Code: event.Error.Code}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Data: "Unknown error", Code: core.ErrCodeInternal}
	}
}
