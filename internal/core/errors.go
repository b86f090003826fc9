package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeInvalidRoomCode = "invalid_room_code"
	ErrCodeRoomNotFound    = "room_not_found"
	ErrCodeRoomFull        = "room_full"
	ErrCodeNotInRoom       = "not_in_room"
	ErrCodeInvalidBarcode  = "invalid_barcode"
	ErrCodeInvalidTemplate = "invalid_template"
	ErrCodeRateLimited     = "rate_limited"
	ErrCodeInternal        = "internal"
	ErrCodeInvalidMessage  = "invalid_message"
)

var (
	ErrRoomNotFound     = errors.New("room not found")
	ErrRoomFull         = errors.New("room is full")
	ErrNoCodesAvailable = errors.New("no room codes available")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

var (
	errInvalidRoomCode = coreError(ErrCodeInvalidRoomCode, "Invalid room code")
	errRoomNotFound    = coreError(ErrCodeRoomNotFound, "Room not found")
	errRoomFull        = coreError(ErrCodeRoomFull, "Room is full")
	errNotInRoom       = coreError(ErrCodeNotInRoom, "Not in a room")
	errInvalidBarcode  = coreError(ErrCodeInvalidBarcode, "Invalid barcode")
	errInvalidTemplate = coreError(ErrCodeInvalidTemplate, "Invalid template")
	errRateLimited     = coreError(ErrCodeRateLimited, "Rate limit exceeded. Please try again later.")
)

// failure builds the generic error reported when something unexpected breaks
// while handling kind.
func failure(kind CommandKind) *CoreError {
	switch kind {
	case CommandJoinRoom:
		return coreError(ErrCodeInternal, "Failed to join room")
	case CommandChangeRoom:
		return coreError(ErrCodeInternal, "Failed to change room")
	default:
		return coreError(ErrCodeInternal, "Failed to create room")
	}
}
