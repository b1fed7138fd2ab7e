package near_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nearflow/near"
)

func TestFormatNearAmount(t *testing.T) {
	cases := []struct {
		yocto      string
		fracDigits int
		want       string
	}{
		{"0", 4, "0"},
		{"1000000000000000000000000", 4, "1"},
		{"1234567890000000000000000000", 4, "1,234.5678"},
		{"1999950000000000000000000", 4, "2"},
		{"1500000000000000000000000", 0, "2"},
		{"1000000000000000000000000000000", 2, "1,000,000"},
		{"123", 24, "0.000000000000000000000123"},
		{"4990000000000000000000000", 4, "4.99"},
	}
	for _, c := range cases {
		got, err := near.FormatNearAmount(c.yocto, c.fracDigits)
		require.NoError(t, err, c.yocto)
		assert.Equal(t, c.want, got, c.yocto)
	}
}

func TestFormatNearAmount_Invalid(t *testing.T) {
	_, err := near.FormatNearAmount("abc", 4)
	assert.Error(t, err)
	_, err = near.FormatNearAmount("-1", 4)
	assert.Error(t, err)
	_, err = near.FormatNearAmount("1", 25)
	assert.Error(t, err)
}

func TestParseNearAmount(t *testing.T) {
	got, err := near.ParseNearAmount("1.5")
	require.NoError(t, err)
	assert.Equal(t, "1500000000000000000000000", got)

	got, err = near.ParseNearAmount(" 1,000 ")
	require.NoError(t, err)
	assert.Equal(t, "1000000000000000000000000000", got)

	got, err = near.ParseNearAmount("0.000000000000000000000001")
	require.NoError(t, err)
	assert.Equal(t, "1", got)

	_, err = near.ParseNearAmount("0.0000000000000000000000001")
	assert.Error(t, err)
	_, err = near.ParseNearAmount("near")
	assert.Error(t, err)
	_, err = near.ParseNearAmount("-1")
	assert.Error(t, err)
}
