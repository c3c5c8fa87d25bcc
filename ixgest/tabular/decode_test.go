package tabular

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("quoted delimiter stays in one cell", func(t *testing.T) {
		rows := Decode("title,materials\nT,\"Metal, Bronze\"\n")
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"T", `"Metal, Bronze"`}, rows[1])
	})

	t.Run("crlf, bom and blank lines", func(t *testing.T) {
		rows := Decode("\ufefftitle,address\r\n\r\nA,B\r\n   \n")
		require.Len(t, rows, 2)
		assert.Equal(t, []string{"title", "address"}, rows[0])
		assert.Equal(t, []string{"A", "B"}, rows[1])
	})

	t.Run("empty cells are kept", func(t *testing.T) {
		rows := Decode(",,x,")
		require.Len(t, rows, 1)
		assert.Equal(t, []string{"", "", "x", ""}, rows[0])
	})

	t.Run("unterminated quote never fails", func(t *testing.T) {
		rows := Decode(`a,"b,c`)
		require.Len(t, rows, 1)
		assert.Equal(t, []string{"a", `"b,c`}, rows[0])
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Empty(t, Decode(""))
	})
}

func TestDecodeWithSemicolon(t *testing.T) {
	rows := DecodeWith("a;\"b;c\";d", ';')
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"a", `"b;c"`, "d"}, rows[0])
}

func TestStripQuotes(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`"Metal, Bronze"`, "Metal, Bronze"},
		{`  plain  `, "plain"},
		{`"say ""hi"""`, `say "hi"`},
		{`"`, `"`},
		{``, ``},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StripQuotes(tt.in), "input %q", tt.in)
	}
}
