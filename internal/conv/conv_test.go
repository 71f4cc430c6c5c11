package conv

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAsInt(t *testing.T) {
	assert.Equal(t, 7, AsInt(7))
	assert.Equal(t, 7, AsInt(int64(7)))
	assert.Equal(t, 7, AsInt(uint64(7)))
	// JSON numbers decode as float64
	assert.Equal(t, 7, AsInt(float64(7)))
	assert.Equal(t, 7, AsInt("7"))
	assert.Equal(t, 0, AsInt("seven"))
	assert.Equal(t, 0, AsInt(nil))
}
