package tabular

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveFields(t *testing.T) {
	header := []string{"Monument Name", "Materials", `"Lat"`, "Custom Column"}
	overrides := map[string]string{
		"Monument Name": "title",
		"Lat":           "Latitude",
	}

	fields := ResolveFields(header, overrides)

	assert.Equal(t, FieldMap{
		0: "title",
		1: "materials",
		2: "latitude",
		3: "custom column",
	}, fields)
}

func TestResolveFieldsWithoutOverrides(t *testing.T) {
	fields := ResolveFields([]string{"Title", "IMAGES", "images"}, nil)
	assert.Equal(t, []int{1, 2}, fields.Columns("images"))
	assert.Equal(t, []int{0}, fields.Columns("title"))
	assert.Nil(t, fields.Columns("address"))
}

func TestLoadMapping(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		m, err := LoadMapping(strings.NewReader("\"Monument Name\": title\nLat: latitude\n"))
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"Monument Name": "title", "Lat": "latitude"}, m)
	})

	t.Run("json", func(t *testing.T) {
		m, err := LoadMapping(strings.NewReader(`{"Where": "address"}`))
		require.NoError(t, err)
		assert.Equal(t, "address", m["Where"])
	})

	t.Run("empty", func(t *testing.T) {
		m, err := LoadMapping(strings.NewReader("  "))
		require.NoError(t, err)
		assert.Empty(t, m)
	})

	t.Run("not a flat mapping", func(t *testing.T) {
		_, err := LoadMapping(strings.NewReader("- a\n- b\n"))
		assert.Error(t, err)
	})
}
