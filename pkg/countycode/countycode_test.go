package countycode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWisconsinTable(t *testing.T) {
	table := Wisconsin()
	assert.Equal(t, 72, table.Len())

	code, ok := table.Lookup("VILAS")
	require.True(t, ok)
	assert.Equal(t, "125", code)

	code, ok = table.Lookup("ADAMS")
	require.True(t, ok)
	assert.Equal(t, "001", code)
}

func TestLookupCaseInsensitive(t *testing.T) {
	table := Wisconsin()

	for _, name := range []string{"vilas", "Vilas", " VILAS ", "VILAS"} {
		code, ok := table.Lookup(name)
		require.True(t, ok, name)
		assert.Equal(t, "125", code)
	}
}

func TestLookupUnknownCounty(t *testing.T) {
	table := Wisconsin()

	code, ok := table.Lookup("NOT A COUNTY")
	assert.False(t, ok)
	assert.Empty(t, code)
}

func TestNewTableNormalizesNames(t *testing.T) {
	table := NewTable(map[string]string{" fond du lac ": "039"})

	code, ok := table.Lookup("FOND DU LAC")
	require.True(t, ok)
	assert.Equal(t, "039", code)
}
