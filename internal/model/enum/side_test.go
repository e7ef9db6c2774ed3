package enum

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSideIsAvailable(t *testing.T) {
	assert.True(t, SideBuy.IsAvailable())
	assert.True(t, SideSell.IsAvailable())
	assert.False(t, Side("hold").IsAvailable())
	assert.False(t, Side("").IsAvailable())
}

func TestSideSign(t *testing.T) {
	assert.Equal(t, 1, SideBuy.Sign())
	assert.Equal(t, -1, SideSell.Sign())
	assert.Equal(t, 0, Side("hold").Sign())
}
