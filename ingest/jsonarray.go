package ingest

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/jac-archive/jac/block"
	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/limits"
)

// JSONArraySource streams records out of a single top-level JSON array,
// decoding one element at a time rather than buffering the whole array.
type JSONArraySource struct {
	iter *jsoniter.Iterator
	lim  limits.Limits
}

// NewJSONArraySource wraps r as a JSON-array record source.
func NewJSONArraySource(r io.Reader, lim limits.Limits) *JSONArraySource {
	return &JSONArraySource{iter: jsoniter.Parse(api, r, 64*1024), lim: lim}
}

// ContainerHint always reports ContainerJSONArray.
func (s *JSONArraySource) ContainerHint() format.ContainerHint { return format.ContainerJSONArray }

// Next returns the next array element's decoded record, or io.EOF once
// the closing bracket is reached.
func (s *JSONArraySource) Next() (block.Record, error) {
	if !s.iter.ReadArray() {
		if s.iter.Error != nil && s.iter.Error != io.EOF {
			return nil, fmt.Errorf("%w: %v", errs.ErrJSON, s.iter.Error)
		}

		return nil, io.EOF
	}

	return decodeObjectFromIterator(s.iter, s.lim)
}
