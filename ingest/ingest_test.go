package ingest_test

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/ingest"
	"github.com/jac-archive/jac/limits"
)

func TestNDJSONSourcePreservesFieldOrderAndTypes(t *testing.T) {
	input := `{"z":1,"a":"hi","b":null,"c":true,"d":0.1,"e":1e-20}
{"z":2}
`
	src := ingest.NewNDJSONSource(strings.NewReader(input), limits.Default())
	require.Equal(t, format.ContainerNdjson, src.ContainerHint())

	rec, err := src.Next()
	require.NoError(t, err)
	require.Len(t, rec, 6)

	require.Equal(t, "z", rec[0].Name)
	require.Equal(t, format.TagInt, rec[0].Value.Tag)
	require.Equal(t, int64(1), rec[0].Value.Int)

	require.Equal(t, "a", rec[1].Name)
	require.Equal(t, "hi", rec[1].Value.Text)

	require.Equal(t, "b", rec[2].Name)
	require.Equal(t, format.TagNull, rec[2].Value.Tag)

	require.Equal(t, "c", rec[3].Name)
	require.True(t, rec[3].Value.Bool)

	require.Equal(t, "d", rec[4].Name)
	require.Equal(t, format.TagDecimal, rec[4].Value.Tag)
	require.Equal(t, "1", string(rec[4].Value.Decimal.Digits))
	require.Equal(t, int32(-1), rec[4].Value.Decimal.Exp10)

	require.Equal(t, "e", rec[5].Name)
	require.Equal(t, format.TagDecimal, rec[5].Value.Tag)

	rec2, err := src.Next()
	require.NoError(t, err)
	require.Len(t, rec2, 1)
	require.Equal(t, int64(2), rec2[0].Value.Int)

	_, err = src.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestNDJSONSourceSkipsBlankLines(t *testing.T) {
	input := "{\"a\":1}\n\n\n{\"a\":2}\n"
	src := ingest.NewNDJSONSource(strings.NewReader(input), limits.Default())

	r1, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, int64(1), r1[0].Value.Int)

	r2, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, int64(2), r2[0].Value.Int)

	_, err = src.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestJSONArraySourceStreamsElements(t *testing.T) {
	input := `[{"id":1},{"id":2},{"id":3}]`
	src := ingest.NewJSONArraySource(strings.NewReader(input), limits.Default())
	require.Equal(t, format.ContainerJSONArray, src.ContainerHint())

	var ids []int64

	for {
		rec, err := src.Next()
		if err == io.EOF {
			break
		}

		require.NoError(t, err)
		ids = append(ids, rec[0].Value.Int)
	}

	require.Equal(t, []int64{1, 2, 3}, ids)
}

func TestNestedObjectAndArrayBecomeMinifiedText(t *testing.T) {
	input := `{"obj":{"a": 1, "b":  2},"arr":[1, 2,3]}` + "\n"
	src := ingest.NewNDJSONSource(strings.NewReader(input), limits.Default())

	rec, err := src.Next()
	require.NoError(t, err)

	require.Equal(t, format.TagObject, rec[0].Value.Tag)
	require.Equal(t, `{"a":1,"b":2}`, rec[0].Value.Text)

	require.Equal(t, format.TagArray, rec[1].Value.Tag)
	require.Equal(t, `[1,2,3]`, rec[1].Value.Text)
}

func TestIntegerOverflowBecomesDecimal(t *testing.T) {
	input := `{"big":123456789012345678901234}` + "\n"
	src := ingest.NewNDJSONSource(strings.NewReader(input), limits.Default())

	rec, err := src.Next()
	require.NoError(t, err)
	require.Equal(t, format.TagDecimal, rec[0].Value.Tag)
	require.Equal(t, "123456789012345678901234", string(rec[0].Value.Decimal.Digits))
	require.Equal(t, int32(0), rec[0].Value.Decimal.Exp10)
}
