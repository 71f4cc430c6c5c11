//go:build !windows

package portutil

import (
	"errors"
	"fmt"
	"strings"
	"syscall"
)

func listCommand(port int) string {
	return fmt.Sprintf("lsof -ti tcp:%d -sTCP:LISTEN", port)
}

func killCommand(pid string) string {
	return fmt.Sprintf("kill -9 %s", pid)
}

// parsePIDs extracts pids from lsof -t output, one pid per line.
func parsePIDs(output string, _ int) []string {
	var ret []string
	for _, line := range lines(output) {
		if isNumeric(line) {
			ret = append(ret, line)
		}
	}
	return ret
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// IsAddrInUse reports whether err represents an EADDRINUSE-class bind failure.
func IsAddrInUse(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EADDRINUSE) {
		return true
	}
	return strings.Contains(err.Error(), "address already in use")
}
