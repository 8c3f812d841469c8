// Package blocklist implements the substring callsign blocklist and
// its Fletcher-16 hot-reload, spec.md §4.8.
package blocklist

import (
	"bufio"
	"os"
	"strings"
	"sync"

	"github.com/dbehnke/ysf-gateway/internal/correction"
	"github.com/dbehnke/ysf-gateway/internal/netutil"
)

// List is a reloadable set of case-insensitive callsign substrings.
type List struct {
	mu       sync.RWMutex
	path     string
	patterns []string
	checksum uint16

	reload *netutil.Timer
}

// New builds an empty List. If path is empty the list never matches
// anything (blocklisting disabled).
func New(path string, reloadPeriodMS int) *List {
	l := &List{path: path, reload: netutil.NewTimer(reloadPeriodMS)}
	if path != "" {
		_ = l.load()
		l.reload.Start()
	}
	return l
}

// Check reports whether any loaded pattern is a case-insensitive
// substring of callsign.
func (l *List) Check(callsign string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	up := strings.ToUpper(strings.TrimSpace(callsign))
	for _, p := range l.patterns {
		if strings.Contains(up, p) {
			return true
		}
	}
	return false
}

// Clock ticks the reload timer and rereads the file when its
// Fletcher-16 checksum has changed since the last load.
func (l *List) Clock(ms int) {
	if l.path == "" {
		return
	}
	l.reload.Clock(ms)
	if !l.reload.HasExpired() {
		return
	}
	l.reload.Start()
	_ = l.load()
}

func (l *List) load() error {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return err
	}
	sum := correction.Fletcher16(data)
	l.mu.RLock()
	unchanged := sum == l.checksum && l.checksum != 0
	l.mu.RUnlock()
	if unchanged {
		return nil
	}

	var patterns []string
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r\n")
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, strings.ToUpper(line))
	}

	l.mu.Lock()
	l.patterns = patterns
	l.checksum = sum
	l.mu.Unlock()
	return nil
}
