package core

import "encoding/json"

// EventKind is a notification the core emits to clients.
type EventKind int

const (
	// EventRoomCode confirms the room the client is now a member of.
	EventRoomCode EventKind = iota
	// EventBarcodeScanned delivers a scan from another room member.
	EventBarcodeScanned
	// EventTemplateShared delivers a template from another room member.
	EventTemplateShared
	// EventError notifies the client about a failed request.
	EventError
)

// Event is sent to clients to describe what happened in the system.
type Event struct {
	Kind     EventKind
	Room     string
	Scan     Scan
	Template json.RawMessage
	Error    *CoreError
}

func errorEvent(err *CoreError) *Event {
	return &Event{Kind: EventError, Error: err}
}
