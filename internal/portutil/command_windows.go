//go:build windows

package portutil

import (
	"fmt"
	"strings"
)

func listCommand(port int) string {
	return fmt.Sprintf("netstat -ano -p tcp | findstr :%d", port)
}

func killCommand(pid string) string {
	return fmt.Sprintf("taskkill /F /PID %s", pid)
}

// parsePIDs extracts owning pids from netstat output lines in LISTENING state
// whose local address matches the port.
func parsePIDs(output string, port int) []string {
	seen := map[string]bool{}
	var ret []string
	suffix := fmt.Sprintf(":%d", port)
	for _, line := range lines(output) {
		columns := strings.Fields(line)
		if len(columns) < 5 || !strings.EqualFold(columns[3], "LISTENING") {
			continue
		}
		if !strings.HasSuffix(columns[1], suffix) {
			continue
		}
		pid := columns[len(columns)-1]
		if !seen[pid] {
			seen[pid] = true
			ret = append(ret, pid)
		}
	}
	return ret
}

// IsAddrInUse reports whether err represents an EADDRINUSE-class bind failure.
func IsAddrInUse(err error) bool {
	if err == nil {
		return false
	}
	message := err.Error()
	return strings.Contains(message, "Only one usage of each socket address") ||
		strings.Contains(message, "address already in use")
}
