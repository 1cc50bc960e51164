package authinfra

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptPasswordEncoder(t *testing.T) {
	enc := NewBcryptPasswordEncoder(bcrypt.MinCost)

	hash, err := enc.Encode("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)
	assert.True(t, enc.Matches("s3cret", hash))
	assert.False(t, enc.Matches("wrong", hash))
	assert.False(t, enc.Matches("", ""))
}

func TestBcryptCostOutOfRangeUsesDefault(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptPasswordEncoder(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptPasswordEncoder(99).cost)
}
