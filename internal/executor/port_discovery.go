package executor

import (
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
)

var listenPortPattern = regexp.MustCompile(`(?:\*|127\.0\.0\.1|localhost|\[::1?\]):(\d+)\s*\(LISTEN\)`)

// discoverListeningPort shells out to lsof to find a TCP LISTEN socket owned
// by pid. This is best-effort: any failure (lsof missing, no matching
// socket) is returned as an error and the caller treats absence as fine
// (spec §4.4).
func discoverListeningPort(pid int) (int, error) {
	if _, err := exec.LookPath("lsof"); err != nil {
		return 0, err
	}
	out, err := exec.Command("lsof", "-a", "-p", strconv.Itoa(pid), "-i", "-P", "-n").Output()
	if err != nil {
		return 0, err
	}
	match := listenPortPattern.FindSubmatch(out)
	if match == nil {
		return 0, fmt.Errorf("no listening socket found for pid %d", pid)
	}
	port, err := strconv.Atoi(string(match[1]))
	if err != nil {
		return 0, err
	}
	return port, nil
}
