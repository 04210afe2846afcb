package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/kcchat/server/internal/model"
)

func TestBanUntilEmptyIsPermanentSentinel(t *testing.T) {
	until, err := banUntil("", 1_700_000_000)
	require.NoError(t, err)
	assert.Equal(t, model.PermanentBan, until)
}

func TestBanUntilPlainIntegerSeconds(t *testing.T) {
	until, err := banUntil("45", 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(1045), until)
}

func TestBanUntilUnitSuffixes(t *testing.T) {
	cases := []struct {
		raw      string
		expected int64
	}{
		{"1y", 31536000},
		{"2d", 172800},
		{"3h", 10800},
		{"15m", 900},
		{"45s", 45},
	}

	for _, c := range cases {
		until, err := banUntil(c.raw, 0)
		require.NoError(t, err, c.raw)
		assert.Equal(t, c.expected, until, c.raw)
	}
}

func TestBanUntilUnitSuffixIsCaseInsensitive(t *testing.T) {
	until, err := banUntil("1Y", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(31536000), until)
}

func TestBanUntilUnknownUnitErrors(t *testing.T) {
	_, err := banUntil("5z", 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to parse ban timeframe")
}

func TestBanUntilHugeLiteralIsEffectivelyPermanent(t *testing.T) {
	until, err := banUntil("9007199254740991", 0)
	require.NoError(t, err)
	assert.Equal(t, model.PermanentBan, until)
}
