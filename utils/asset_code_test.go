package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAssetCode(t *testing.T) {
	t.Run("PadsShortSequences", func(t *testing.T) {
		code, err := FormatAssetCode("ACME", "PC", 7)
		require.NoError(t, err)
		assert.Equal(t, "ACME-PC0007", code)
	})

	t.Run("DoesNotTruncateLongSequences", func(t *testing.T) {
		code, err := FormatAssetCode("ACME", "PC", 10000)
		require.NoError(t, err)
		assert.Equal(t, "ACME-PC10000", code)
	})

	t.Run("SingleDigitCategory", func(t *testing.T) {
		code, err := FormatAssetCode("NORTH", "MON", 42)
		require.NoError(t, err)
		assert.Equal(t, "NORTH-MON0042", code)
	})

	t.Run("EmptyTenantCode", func(t *testing.T) {
		_, err := FormatAssetCode("", "PC", 1)
		assert.ErrorIs(t, err, ErrEmptyTenantCode)
	})

	t.Run("EmptyCategoryCode", func(t *testing.T) {
		_, err := FormatAssetCode("ACME", "", 1)
		assert.ErrorIs(t, err, ErrEmptyCategoryCode)
	})

	t.Run("ZeroSequence", func(t *testing.T) {
		_, err := FormatAssetCode("ACME", "PC", 0)
		assert.ErrorIs(t, err, ErrZeroSequenceNumber)
	})
}

func TestParseAssetCode(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		code, err := FormatAssetCode("ACME", "PC", 7)
		require.NoError(t, err)

		parts, err := ParseAssetCode(code)
		require.NoError(t, err)
		assert.Equal(t, "ACME", parts.TenantCode)
		assert.Equal(t, "PC", parts.CategoryCode)
		assert.Equal(t, uint64(7), parts.SequenceNumber)
	})

	t.Run("LongSequence", func(t *testing.T) {
		parts, err := ParseAssetCode("ACME-PC10000")
		require.NoError(t, err)
		assert.Equal(t, uint64(10000), parts.SequenceNumber)
	})

	t.Run("Malformed", func(t *testing.T) {
		cases := []string{
			"",
			"ACME",
			"ACME-",
			"-PC0001",
			"ACME-PC",   // no digits
			"ACME-0001", // no category prefix
			"ACME-PC0000",
		}
		for _, raw := range cases {
			_, err := ParseAssetCode(raw)
			assert.ErrorIs(t, err, ErrMalformedAssetCode, "input %q", raw)
		}
	})
}
