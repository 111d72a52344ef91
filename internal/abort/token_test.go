package abort

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToken_CheckBeforeTrip(t *testing.T) {
	var tok Token
	assert.False(t, tok.Tripped())
	assert.NoError(t, tok.Check("Muxing"))
}

func TestToken_CheckAfterTrip(t *testing.T) {
	var tok Token
	tok.Trip()
	tok.Trip() // idempotent

	err := tok.Check("GPX Generation")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAborted))
	assert.Contains(t, err.Error(), "GPX Generation")
}

func TestToken_NilIsSafe(t *testing.T) {
	var tok *Token
	tok.Trip()
	assert.False(t, tok.Tripped())
	assert.NoError(t, tok.Check("anything"))
}
