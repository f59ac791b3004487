package section_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jac-archive/jac/format"
	"github.com/jac-archive/jac/section"
)

func TestFileHeaderRoundTrip(t *testing.T) {
	h := section.NewFileHeader(format.ContainerNdjson)
	h.DefaultCompressionLevel = 19
	h.UserMetadata = []byte(`{"segment_max_bytes":134217728}`)

	buf := h.Bytes()

	got, n, err := section.ParseFileHeader(buf)
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, h.Flags, got.Flags)
	require.Equal(t, h.DefaultCompressor, got.DefaultCompressor)
	require.Equal(t, h.DefaultCompressionLevel, got.DefaultCompressionLevel)
	require.Equal(t, h.UserMetadata, got.UserMetadata)
	require.True(t, got.NestedOpaque())
	require.Equal(t, format.ContainerNdjson, got.ContainerHint())
}

func TestFileHeaderRejectsBadMagic(t *testing.T) {
	buf := []byte{'X', 'A', 'C', 0x01, 0, 0, 0, 0, 0, 0, 0}
	_, _, err := section.ParseFileHeader(buf)
	require.Error(t, err)
}

func TestFileHeaderRejectsBadVersion(t *testing.T) {
	h := section.NewFileHeader(format.ContainerUnknown)
	buf := h.Bytes()
	buf[3] = 0x02

	_, _, err := section.ParseFileHeader(buf)
	require.Error(t, err)
}

func TestFileHeaderSegmentMaxBytesOverrideRoundTrip(t *testing.T) {
	h := section.NewFileHeader(format.ContainerNdjson)
	h.SetSegmentMaxBytesOverride(128 * 1024 * 1024)

	buf := h.Bytes()

	got, _, err := section.ParseFileHeader(buf)
	require.NoError(t, err)

	n, ok := got.SegmentMaxBytesOverride()
	require.True(t, ok)
	require.Equal(t, 128*1024*1024, n)
}

func TestFileHeaderSegmentMaxBytesOverrideAbsentByDefault(t *testing.T) {
	h := section.NewFileHeader(format.ContainerNdjson)

	_, ok := h.SegmentMaxBytesOverride()
	require.False(t, ok)
}

func TestFileHeaderSegmentMaxBytesOverrideIgnoresMalformedMetadata(t *testing.T) {
	h := section.NewFileHeader(format.ContainerNdjson)
	h.UserMetadata = []byte("not json")

	_, ok := h.SegmentMaxBytesOverride()
	require.False(t, ok)
}

func TestFileHeaderRejectsMissingNestedOpaque(t *testing.T) {
	h := section.NewFileHeader(format.ContainerUnknown)
	h.Flags &^= section.FlagNestedOpaque
	buf := h.Bytes()

	_, _, err := section.ParseFileHeader(buf)
	require.Error(t, err)
}
