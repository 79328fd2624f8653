package testutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequentialIDGenerator(t *testing.T) {
	gen := NewSequentialIDGenerator("")
	assert.Equal(t, "sub-0001", gen.Generate())
	assert.Equal(t, "sub-0002", gen.Generate())

	named := NewSequentialIDGenerator("golden")
	assert.Equal(t, "golden-0001", named.Generate())
}

func TestIdentityStable(t *testing.T) {
	assert.Equal(t, Identity("alice"), Identity("alice"))
	assert.NotEqual(t, Identity("alice"), Identity("bob"))
	assert.False(t, Identity("alice").IsZero())
}
