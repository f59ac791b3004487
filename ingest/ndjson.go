package ingest

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/jac-archive/jac/block"
	"github.com/jac-archive/jac/errs"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/limits"
)

// NDJSONSource reads one JSON object per line, skipping blank lines.
type NDJSONSource struct {
	scanner *bufio.Scanner
	lim     limits.Limits
}

// NewNDJSONSource wraps r as a newline-delimited JSON record source. The
// scanner's line buffer is capped at the segment ceiling, since a single
// line that would overflow it could not decode into a valid column
// anyway.
func NewNDJSONSource(r io.Reader, lim limits.Limits) *NDJSONSource {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), lim.MaxSegmentUncompressed)

	return &NDJSONSource{scanner: scanner, lim: lim}
}

// ContainerHint always reports ContainerNdjson.
func (s *NDJSONSource) ContainerHint() format.ContainerHint { return format.ContainerNdjson }

// Next returns the next non-blank line's decoded record, or io.EOF.
func (s *NDJSONSource) Next() (block.Record, error) {
	for s.scanner.Scan() {
		line := s.scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}

		it := jsoniter.ParseBytes(api, line)

		return decodeObjectFromIterator(it, s.lim)
	}

	if err := s.scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrIO, err)
	}

	return nil, io.EOF
}
