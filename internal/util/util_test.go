package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsEither(t *testing.T) {
	assert.True(t, ContainsEither("lincoln memorial", "lincoln"))
	assert.True(t, ContainsEither("lincoln", "lincoln memorial"))
	assert.True(t, ContainsEither("same", "same"))
	assert.False(t, ContainsEither("lincoln", "jefferson"))
	assert.False(t, ContainsEither("", "x"))
	assert.False(t, ContainsEither("x", ""))
}

func TestPtr(t *testing.T) {
	p := Ptr(42.0)
	assert.Equal(t, 42.0, *p)
}

func TestClonePtr(t *testing.T) {
	assert.Nil(t, ClonePtr[float64](nil))

	orig := Ptr(38.8893)
	c := ClonePtr(orig)
	*c = 0
	assert.Equal(t, 38.8893, *orig)
}

func TestCloneSlice(t *testing.T) {
	assert.Nil(t, CloneSlice[string](nil))
	assert.NotNil(t, CloneSlice([]string{}))

	orig := []string{"Bronze", "Granite"}
	c := CloneSlice(orig)
	c[0] = "Marble"
	assert.Equal(t, []string{"Bronze", "Granite"}, orig)
}
