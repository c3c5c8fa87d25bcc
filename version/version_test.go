package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.NotEmpty(t, info.CommitHash)
	assert.NotEmpty(t, info.BuildTime)
	assert.Contains(t, info.Platform, "/")
	assert.Contains(t, info.String(), "monuments ")
}

func TestShort(t *testing.T) {
	assert.Equal(t, "abcdef1", Info{CommitHash: "abcdef1234567"}.Short())
	assert.Equal(t, "abc", Info{CommitHash: "abc"}.Short())
}

func TestStringMarksModified(t *testing.T) {
	s := Info{Version: "1.2.0", CommitHash: "abcdef1234", BuildTime: "2026-01-01", Modified: true}.String()
	assert.Equal(t, "monuments 1.2.0 (commit abcdef1+dirty, built 2026-01-01)", s)
}
