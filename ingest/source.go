// Package ingest implements the "Input source" external collaborator
// (spec §6): NDJSON and JSON-array record sources that preserve each
// object's field order exactly as it appears on the wire, since the
// engine's determinism guarantee (spec §8.2, §9) depends on records
// arriving in a stable field order rather than one reshuffled by a
// decode-into-map step.
package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/jac-archive/jac/block"
	"github.com/jac-archive/jac/column"
	"github.com/jac-archive/jac/decimal"
	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/limits"
)

// Source yields block.Record values from an underlying JSON byte stream.
// Next returns io.EOF once exhausted.
type Source interface {
	Next() (block.Record, error)
	ContainerHint() format.ContainerHint
}

var api = jsoniter.ConfigCompatibleWithStandardLibrary

// decodeObjectFromIterator reads one JSON object's fields in encounter
// order via ReadObjectCB, the one jsoniter entry point that does not lose
// key order the way decoding into a Go map would.
func decodeObjectFromIterator(it *jsoniter.Iterator, lim limits.Limits) (block.Record, error) {
	var (
		rec      block.Record
		decodeErr error
	)

	it.ReadObjectCB(func(it *jsoniter.Iterator, field string) bool {
		v, err := decodeValue(it, lim)
		if err != nil {
			decodeErr = err
			return false
		}

		rec = append(rec, block.Field{Name: field, Value: v})

		return true
	})

	if decodeErr != nil {
		return nil, decodeErr
	}

	if it.Error != nil && it.Error != io.EOF {
		return nil, fmt.Errorf("%w: %v", errs.ErrJSON, it.Error)
	}

	return rec, nil
}

func decodeValue(it *jsoniter.Iterator, lim limits.Limits) (column.Value, error) {
	switch next := it.WhatIsNext(); next {
	case jsoniter.NilValue:
		it.ReadNil()
		return column.Null(), checkIterErr(it)
	case jsoniter.BoolValue:
		v := it.ReadBool()
		return column.BoolValue(v), checkIterErr(it)
	case jsoniter.NumberValue:
		lit := string(it.ReadNumber())
		return decodeNumber(lit, lim)
	case jsoniter.StringValue:
		v := it.ReadString()
		return column.StringValue(v), checkIterErr(it)
	case jsoniter.ObjectValue, jsoniter.ArrayValue:
		raw := it.SkipAndReturnBytes()
		if err := checkIterErr(it); err != nil {
			return column.Value{}, err
		}

		var compact bytes.Buffer
		if err := json.Compact(&compact, raw); err != nil {
			return column.Value{}, fmt.Errorf("%w: %v", errs.ErrJSON, err)
		}

		if next == jsoniter.ObjectValue {
			return column.ObjectValue(compact.String()), nil
		}

		return column.ArrayValue(compact.String()), nil
	default:
		return column.Value{}, fmt.Errorf("%w: unrecognized JSON value", errs.ErrJSON)
	}
}

func checkIterErr(it *jsoniter.Iterator) error {
	if it.Error != nil && it.Error != io.EOF {
		return fmt.Errorf("%w: %v", errs.ErrJSON, it.Error)
	}

	return nil
}

// decodeNumber classifies a JSON number literal per spec §4.6: one that
// fits a signed 64-bit integer with no fractional or exponent part
// becomes Int; everything else is parsed exactly into Decimal, never
// rounded through a float.
func decodeNumber(lit string, lim limits.Limits) (column.Value, error) {
	if looksLikeInteger(lit) {
		if v, err := parseInt64(lit); err == nil {
			return column.IntValue(v), nil
		}
	}

	d, err := decimal.FromString(lit, lim)
	if err != nil {
		return column.Value{}, err
	}

	return column.DecimalValue(d), nil
}

func looksLikeInteger(lit string) bool {
	for i := 0; i < len(lit); i++ {
		switch lit[i] {
		case '.', 'e', 'E':
			return false
		}
	}

	return true
}

func parseInt64(lit string) (int64, error) {
	neg := false
	i := 0

	if i < len(lit) && (lit[i] == '-' || lit[i] == '+') {
		neg = lit[i] == '-'
		i++
	}

	if i == len(lit) {
		return 0, errs.ErrCorruptBlock
	}

	var v uint64

	for ; i < len(lit); i++ {
		c := lit[i]
		if c < '0' || c > '9' {
			return 0, errs.ErrCorruptBlock
		}

		d := uint64(c - '0')
		if v > (1<<63-1)/10+1 {
			return 0, errs.ErrLimitExceeded
		}

		v = v*10 + d
	}

	if neg {
		if v > 1<<63 {
			return 0, errs.ErrLimitExceeded
		}

		return -int64(v), nil
	}

	if v > 1<<63-1 {
		return 0, errs.ErrLimitExceeded
	}

	return int64(v), nil
}
