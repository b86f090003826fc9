package core

import "encoding/json"

// CommandKind describes what the client wants to do.
type CommandKind int

const (
	// CommandCreateRoom allocates a fresh room and joins it.
	CommandCreateRoom CommandKind = iota
	// CommandJoinRoom joins an existing room.
	CommandJoinRoom
	// CommandChangeRoom leaves the current room and joins (or creates) another.
	CommandChangeRoom
	// CommandScanBarcode relays a scan to the other room members.
	CommandScanBarcode
	// CommandShareTemplate relays a data entry template to the other room members.
	CommandShareTemplate
)

func (k CommandKind) String() string {
	switch k {
	case CommandCreateRoom:
		return "createRoom"
	case CommandJoinRoom:
		return "joinRoom"
	case CommandChangeRoom:
		return "changeRoom"
	case CommandScanBarcode:
		return "scanBarcode"
	case CommandShareTemplate:
		return "shareTemplate"
	default:
		return "unknown"
	}
}

// Command represents an action requested by a client.
type Command struct {
	Kind     CommandKind
	Room     string
	Scan     Scan
	Template json.RawMessage
}
