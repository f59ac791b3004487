package block_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jac-archive/jac/block"
	"github.com/jac-archive/jac/column"
	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/limits"
)

func rec(fields ...block.Field) block.Record { return block.Record(fields) }

func TestBuilderRoundTrip(t *testing.T) {
	lim := limits.Default()
	b := block.NewBuilder(lim, 100, format.CompressorNone, 0, false)

	records := []block.Record{
		rec(block.Field{Name: "id", Value: column.IntValue(1)}, block.Field{Name: "name", Value: column.StringValue("alice")}),
		rec(block.Field{Name: "id", Value: column.IntValue(2)}, block.Field{Name: "name", Value: column.StringValue("bob")}),
		rec(block.Field{Name: "id", Value: column.IntValue(3)}), // name absent
	}

	for _, r := range records {
		res, err := b.TryAddRecord(r)
		require.NoError(t, err)
		require.Equal(t, block.Added, res)
	}

	require.Equal(t, 3, b.RecordCount())

	raw, err := b.Finish()
	require.NoError(t, err)
	require.NotEmpty(t, raw)

	dec, err := block.NewDecoder(raw, lim, true)
	require.NoError(t, err)
	require.Equal(t, 3, dec.RecordCount())
	require.ElementsMatch(t, []string{"id", "name"}, dec.Fields())

	idCol, err := dec.Field("id")
	require.NoError(t, err)

	for i, want := range []int64{1, 2, 3} {
		v, present := idCol.At(i)
		require.True(t, present)
		require.Equal(t, want, v.Int)
	}

	nameCol, err := dec.Field("name")
	require.NoError(t, err)

	v0, present := nameCol.At(0)
	require.True(t, present)
	require.Equal(t, "alice", v0.Text)

	_, present = nameCol.At(2)
	require.False(t, present)
}

func TestBuilderRejectsBlockFullAtTargetRecords(t *testing.T) {
	lim := limits.Default()
	b := block.NewBuilder(lim, 2, format.CompressorNone, 0, false)

	r := rec(block.Field{Name: "k", Value: column.IntValue(1)})

	res, err := b.TryAddRecord(r)
	require.NoError(t, err)
	require.Equal(t, block.Added, res)

	res, err = b.TryAddRecord(r)
	require.NoError(t, err)
	require.Equal(t, block.Added, res)

	res, err = b.TryAddRecord(r)
	require.NoError(t, err)
	require.Equal(t, block.BlockFull, res)
	require.Equal(t, 2, b.RecordCount())
}

func TestDecoderDetectsChecksumMismatch(t *testing.T) {
	lim := limits.Default()
	b := block.NewBuilder(lim, 10, format.CompressorNone, 0, false)

	_, err := b.TryAddRecord(rec(block.Field{Name: "k", Value: column.BoolValue(true)}))
	require.NoError(t, err)

	raw, err := b.Finish()
	require.NoError(t, err)

	corrupted := append([]byte(nil), raw...)
	corrupted[len(corrupted)-1] ^= 0xFF

	_, err = block.NewDecoder(corrupted, lim, true)
	require.Error(t, err)
}

func TestCanonicalizeKeysSortsFieldOrder(t *testing.T) {
	lim := limits.Default()
	b := block.NewBuilder(lim, 10, format.CompressorNone, 0, true)

	_, err := b.TryAddRecord(rec(
		block.Field{Name: "zeta", Value: column.IntValue(1)},
		block.Field{Name: "alpha", Value: column.IntValue(2)},
	))
	require.NoError(t, err)

	raw, err := b.Finish()
	require.NoError(t, err)

	dec, err := block.NewDecoder(raw, lim, true)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "zeta"}, dec.Fields())
}
