package compress_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jac-archive/jac/compress"
	"github.com/jac-archive/jac/format"
)

func TestNoOpRoundTrip(t *testing.T) {
	c := compress.NewNoOpCodec()
	data := []byte("hello field segment")

	compressed, err := c.Compress(data, 0)
	require.NoError(t, err)

	out, err := c.Decompress(compressed, len(data))
	require.NoError(t, err)
	require.True(t, bytes.Equal(data, out))
}

func TestZstdRoundTrip(t *testing.T) {
	c := compress.NewZstdCodec()
	data := bytes.Repeat([]byte("abcdefgh"), 4096)

	compressed, err := c.Compress(data, 19)
	require.NoError(t, err)
	require.Less(t, len(compressed), len(data))

	out, err := c.Decompress(compressed, len(data))
	require.NoError(t, err)
	require.True(t, bytes.Equal(data, out))
}

func TestZstdDecompressLengthMismatch(t *testing.T) {
	c := compress.NewZstdCodec()
	data := []byte("some payload bytes")

	compressed, err := c.Compress(data, 15)
	require.NoError(t, err)

	_, err = c.Decompress(compressed, len(data)+1)
	require.Error(t, err)
}

func TestCreateCodecRejectsReservedIDs(t *testing.T) {
	_, err := compress.CreateCodec(format.CompressorBrotliReserved)
	require.Error(t, err)

	_, err = compress.CreateCodec(format.CompressorDeflateReserved)
	require.Error(t, err)
}
