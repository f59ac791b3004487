package ingest

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/jac-archive/jac/block"
	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/format"
)

// Sink is the symmetric counterpart of Source on the decode side: it
// renders decoded records back to their wire JSON shape.
type Sink interface {
	WriteRecord(rec block.Record) error
	Close() error
}

// NDJSONSink writes one JSON object per line.
type NDJSONSink struct {
	stream *jsoniter.Stream
}

// NewNDJSONSink wraps w as a newline-delimited JSON record sink.
func NewNDJSONSink(w io.Writer) *NDJSONSink {
	return &NDJSONSink{stream: jsoniter.NewStream(api, w, 4096)}
}

// WriteRecord renders rec as one JSON object followed by a newline,
// fields in the order rec carries them.
func (s *NDJSONSink) WriteRecord(rec block.Record) error {
	if err := writeObject(s.stream, rec); err != nil {
		return err
	}

	s.stream.WriteRaw("\n")

	return flushStream(s.stream)
}

// Close is a no-op; NDJSON has no closing delimiter.
func (s *NDJSONSink) Close() error { return nil }

// JSONArraySink writes records as elements of a single top-level JSON
// array, opening the bracket on the first write and closing it on Close.
type JSONArraySink struct {
	stream *jsoniter.Stream
	opened bool
	closed bool
}

// NewJSONArraySink wraps w as a JSON-array record sink.
func NewJSONArraySink(w io.Writer) *JSONArraySink {
	return &JSONArraySink{stream: jsoniter.NewStream(api, w, 4096)}
}

// WriteRecord appends rec as the next array element.
func (s *JSONArraySink) WriteRecord(rec block.Record) error {
	if !s.opened {
		s.stream.WriteArrayStart()
		s.opened = true
	} else {
		s.stream.WriteMore()
	}

	if err := writeObject(s.stream, rec); err != nil {
		return err
	}

	return flushStream(s.stream)
}

// Close emits the closing bracket, opening one first if no record was
// ever written.
func (s *JSONArraySink) Close() error {
	if s.closed {
		return nil
	}

	s.closed = true

	if !s.opened {
		s.stream.WriteArrayStart()
	}

	s.stream.WriteArrayEnd()

	return flushStream(s.stream)
}

func writeObject(stream *jsoniter.Stream, rec block.Record) error {
	stream.WriteObjectStart()

	for i, f := range rec {
		if i > 0 {
			stream.WriteMore()
		}

		stream.WriteObjectField(f.Name)

		if err := writeValue(stream, f); err != nil {
			return err
		}
	}

	stream.WriteObjectEnd()

	return nil
}

func writeValue(stream *jsoniter.Stream, f block.Field) error {
	switch f.Value.Tag {
	case format.TagNull:
		stream.WriteNil()
	case format.TagBool:
		stream.WriteBool(f.Value.Bool)
	case format.TagInt:
		stream.WriteInt64(f.Value.Int)
	case format.TagDecimal:
		stream.WriteRaw(f.Value.Decimal.String())
	case format.TagString:
		stream.WriteString(f.Value.Text)
	case format.TagObject, format.TagArray:
		stream.WriteRaw(f.Value.Text)
	default:
		return fmt.Errorf("%w: unknown value tag %d", errs.ErrInternal, f.Value.Tag)
	}

	return nil
}

func flushStream(stream *jsoniter.Stream) error {
	if err := stream.Flush(); err != nil {
		return fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	return nil
}
