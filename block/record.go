// Package block implements the block builder and decoder (spec §4.7,
// §4.8): admission control over a record stream, per-field column
// finalization and compression, CRC32C coverage, and the read-side
// pre-allocation guard, checksum verification, and field projection.
package block

import "github.com/jac-archive/jac/column"

// Field is one (name, value) pair within a Record.
type Field struct {
	Name  string
	Value column.Value
}

// Record is an ordered list of present fields for one record. Field order
// is preserved from the input (e.g. JSON object key order) since map
// iteration order is not stable enough to satisfy the format's
// determinism requirement (spec §8.2, §9).
type Record []Field
