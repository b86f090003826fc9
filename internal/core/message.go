package core

import (
	"encoding/json"
	"unicode/utf8"
)

// BarcodePositionField marks where the barcode value sits inside FieldOrder.
const BarcodePositionField = "__barcode__"

const maxBarcodeLength = 1000

// Scan is a barcode read relayed from a sender to the receivers of a room.
// TemplateData and FieldOrder are passed through untouched.
type Scan struct {
	Code         string
	Timestamp    int64 // unix milliseconds, set by the hub
	TemplateData map[string]json.RawMessage
	FieldOrder   []string
}

// validBarcode bounds the barcode length in characters, not bytes.
func validBarcode(code string) bool {
	n := utf8.RuneCountInString(code)
	return n > 0 && n <= maxBarcodeLength
}
