// Package column implements the per-field column builder and decoder (spec
// §4.4, §4.6): the presence bitmap, type-tag stream, and the five optional
// typed sub-payloads (dictionary, bool, integer, decimal, string) that make
// up one field's uncompressed segment payload.
package column

import (
	"github.com/jac-archive/jac/decimal"
	"github.com/jac-archive/jac/format"
)

// Value is one present field value. Absence is represented out-of-band by
// the presence bitmap, never by a Value.
type Value struct {
	Tag     format.ValueTag
	Bool    bool
	Int     int64
	Decimal decimal.Decimal
	// Text carries the payload for String (UTF-8 text), and for Object and
	// Array (minified JSON text, spec §3's nested-opaque representation).
	Text string
}

// Null returns the Null value.
func Null() Value { return Value{Tag: format.TagNull} }

// BoolValue returns a Bool value.
func BoolValue(b bool) Value { return Value{Tag: format.TagBool, Bool: b} }

// IntValue returns an Int value.
func IntValue(v int64) Value { return Value{Tag: format.TagInt, Int: v} }

// DecimalValue returns a Decimal value.
func DecimalValue(d decimal.Decimal) Value { return Value{Tag: format.TagDecimal, Decimal: d} }

// StringValue returns a String value.
func StringValue(s string) Value { return Value{Tag: format.TagString, Text: s} }

// ObjectValue returns an Object value; text is the minified JSON object
// text (v1 does not recursively columnarize nested objects).
func ObjectValue(text string) Value { return Value{Tag: format.TagObject, Text: text} }

// ArrayValue returns an Array value; text is the minified JSON array text.
func ArrayValue(text string) Value { return Value{Tag: format.TagArray, Text: text} }
