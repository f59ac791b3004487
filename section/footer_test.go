package section_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jac-archive/jac/limits"
	"github.com/jac-archive/jac/section"
)

func TestFooterRoundTrip(t *testing.T) {
	f := section.Footer{
		Entries: []section.FooterEntry{
			{Offset: 11, Size: 100, RecordCount: 4},
			{Offset: 111, Size: 200, RecordCount: 8},
		},
	}

	buf := f.Bytes()

	got, n, err := section.ParseFooter(buf, limits.Default())
	require.NoError(t, err)
	require.Equal(t, len(buf), n)
	require.Equal(t, f.Entries, got.Entries)
}
