package column_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jac-archive/jac/column"
	"github.com/jac-archive/jac/decimal"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/section"
)

func entryFromSegment(fieldName string, seg column.Segment) section.DirEntry {
	return section.DirEntry{
		FieldName:              fieldName,
		Compressor:             format.CompressorNone,
		PresenceBytes:          seg.PresenceBytes,
		TagBytes:               seg.TagBytes,
		ValueCountPresent:      seg.ValueCountPresent,
		EncodingFlags:          seg.EncodingFlags,
		DictEntryCount:         seg.DictEntryCount,
		SegmentUncompressedLen: seg.SegmentUncompressedLen,
		SegmentCompressedLen:   seg.SegmentUncompressedLen,
	}
}

func TestRoundTripDictionaryStrings(t *testing.T) {
	lim := limits.Default()
	b := column.NewBuilder("user")

	// Eight occurrences, two distinct values: distinct_count(2) <=
	// min(max_dict_entries_per_field, max(2, present_count/4=2)) triggers
	// the dictionary per spec §4.4's literal heuristic.
	users := []string{"alice", "alice", "bob", "alice", "bob", "bob", "alice", "bob"}
	for i, u := range users {
		require.NoError(t, b.Append(i, column.StringValue(u)))
	}

	seg, err := b.Finalize(len(users), lim)
	require.NoError(t, err)

	entry := entryFromSegment("user", seg)
	require.True(t, entry.HasDictionary())

	dec, err := column.Decode(seg.Payload, entry, len(users), lim)
	require.NoError(t, err)

	for i, want := range users {
		v, present := dec.At(i)
		require.True(t, present)
		require.Equal(t, format.TagString, v.Tag)
		require.Equal(t, want, v.Text)
	}
}

func TestRoundTripIntegerDelta(t *testing.T) {
	lim := limits.Default()
	b := column.NewBuilder("ts")

	// Deltas 10,10,15,10: spread 5 over a value range of 45 (ratio ~0.11),
	// under the 0.5 delta threshold.
	values := []int64{1000, 1010, 1020, 1035, 1045}
	for i, v := range values {
		require.NoError(t, b.Append(i, column.IntValue(v)))
	}

	seg, err := b.Finalize(len(values), lim)
	require.NoError(t, err)

	entry := entryFromSegment("ts", seg)
	require.True(t, entry.HasDelta())

	dec, err := column.Decode(seg.Payload, entry, len(values), lim)
	require.NoError(t, err)

	for i, want := range values {
		v, present := dec.At(i)
		require.True(t, present)
		require.Equal(t, want, v.Int)
	}
}

func TestAbsentVsNull(t *testing.T) {
	lim := limits.Default()
	b := column.NewBuilder("k")

	// record 0: {"k": null}; record 1: {} (field absent)
	require.NoError(t, b.Append(0, column.Null()))

	seg, err := b.Finalize(2, lim)
	require.NoError(t, err)

	entry := entryFromSegment("k", seg)
	require.Equal(t, 1, entry.ValueCountPresent)

	dec, err := column.Decode(seg.Payload, entry, 2, lim)
	require.NoError(t, err)

	v, present := dec.At(0)
	require.True(t, present)
	require.Equal(t, format.TagNull, v.Tag)

	_, present = dec.At(1)
	require.False(t, present)
}

func TestNonMonotonicIntegersSkipDelta(t *testing.T) {
	lim := limits.Default()
	b := column.NewBuilder("n")

	values := []int64{5, 3, 9, 1}
	for i, v := range values {
		require.NoError(t, b.Append(i, column.IntValue(v)))
	}

	seg, err := b.Finalize(len(values), lim)
	require.NoError(t, err)

	entry := entryFromSegment("n", seg)
	require.False(t, entry.HasDelta())

	dec, err := column.Decode(seg.Payload, entry, len(values), lim)
	require.NoError(t, err)

	for i, want := range values {
		v, _ := dec.At(i)
		require.Equal(t, want, v.Int)
	}
}

func TestObjectArrayShareStringSubstream(t *testing.T) {
	lim := limits.Default()
	b := column.NewBuilder("nested")

	require.NoError(t, b.Append(0, column.ObjectValue(`{"a":1}`)))
	require.NoError(t, b.Append(1, column.ArrayValue(`[1,2,3]`)))

	seg, err := b.Finalize(2, lim)
	require.NoError(t, err)

	entry := entryFromSegment("nested", seg)

	dec, err := column.Decode(seg.Payload, entry, 2, lim)
	require.NoError(t, err)

	v0, _ := dec.At(0)
	require.Equal(t, format.TagObject, v0.Tag)
	require.Equal(t, `{"a":1}`, v0.Text)

	v1, _ := dec.At(1)
	require.Equal(t, format.TagArray, v1.Tag)
	require.Equal(t, `[1,2,3]`, v1.Text)
}

func TestDecimalRoundTrip(t *testing.T) {
	lim := limits.Default()
	b := column.NewBuilder("amount")

	d1 := decimal.Decimal{Negative: false, Digits: []byte("1"), Exp10: -1} // 0.1

	require.NoError(t, b.Append(0, column.DecimalValue(d1)))

	seg, err := b.Finalize(1, lim)
	require.NoError(t, err)

	entry := entryFromSegment("amount", seg)

	dec, err := column.Decode(seg.Payload, entry, 1, lim)
	require.NoError(t, err)

	v, present := dec.At(0)
	require.True(t, present)
	require.Equal(t, format.TagDecimal, v.Tag)
	require.Equal(t, d1.Digits, v.Decimal.Digits)
	require.Equal(t, d1.Exp10, v.Decimal.Exp10)
}

// TestSchemaDriftMixedTypesOnOneField covers the four-record drift
// scenario: {"v":1}, {"v":"one"}, {"v":null}, {} on the same field, tag
// stream encoding an int/string/null/absent sequence with presence 1110
// (spec §4.7: a field's column has no fixed type, only a per-value tag).
func TestSchemaDriftMixedTypesOnOneField(t *testing.T) {
	lim := limits.Default()
	b := column.NewBuilder("v")

	require.NoError(t, b.Append(0, column.IntValue(1)))
	require.NoError(t, b.Append(1, column.StringValue("one")))
	require.NoError(t, b.Append(2, column.Null()))
	// record 3: field absent, left to Finalize's trailing pad.

	seg, err := b.Finalize(4, lim)
	require.NoError(t, err)

	entry := entryFromSegment("v", seg)
	require.Equal(t, 3, entry.ValueCountPresent)

	dec, err := column.Decode(seg.Payload, entry, 4, lim)
	require.NoError(t, err)

	v0, present := dec.At(0)
	require.True(t, present)
	require.Equal(t, format.TagInt, v0.Tag)
	require.Equal(t, int64(1), v0.Int)

	v1, present := dec.At(1)
	require.True(t, present)
	require.Equal(t, format.TagString, v1.Tag)
	require.Equal(t, "one", v1.Text)

	v2, present := dec.At(2)
	require.True(t, present)
	require.Equal(t, format.TagNull, v2.Tag)

	_, present = dec.At(3)
	require.False(t, present, "record 3 omitted the field entirely, distinct from an explicit null")
}
