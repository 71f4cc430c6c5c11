//go:build !windows

package portutil

import (
	"fmt"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePIDs(t *testing.T) {
	assert.Equal(t, []string{"1234", "5678"}, parsePIDs("1234\n5678\n", 3001))
	assert.Empty(t, parsePIDs("", 3001))
	// non-numeric noise is skipped
	assert.Equal(t, []string{"42"}, parsePIDs("warning: something\n42\n", 3001))
}

func TestIsAddrInUse(t *testing.T) {
	assert.False(t, IsAddrInUse(nil))
	assert.True(t, IsAddrInUse(syscall.EADDRINUSE))
	assert.True(t, IsAddrInUse(fmt.Errorf("listen tcp 127.0.0.1:3001: bind: address already in use")))
	assert.False(t, IsAddrInUse(fmt.Errorf("connection refused")))
}
