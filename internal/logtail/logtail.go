package logtail

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// levelTokens are the level labels the text formatter writes.
var levelTokens = map[string]log.Level{
	"DEBU": log.DebugLevel,
	"INFO": log.InfoLevel,
	"WARN": log.WarnLevel,
	"ERRO": log.ErrorLevel,
	"FATA": log.FatalLevel,
}

// Read returns at most maxLines from the end of the file at path, keeping
// only records at or above minLevel. A non-positive maxLines returns every
// matching line. A missing file yields no lines and no error.
func Read(path string, maxLines int, minLevel log.Level) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer file.Close()

	var ring []string
	if maxLines > 0 {
		ring = make([]string, maxLines)
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count, idx := 0, 0
	keep := true
	for scanner.Scan() {
		line := scanner.Text()
		if lvl, ok := LineLevel(line); ok {
			keep = lvl >= minLevel
		}
		// Continuation lines follow the record they belong to.
		if !keep {
			continue
		}
		if maxLines <= 0 {
			ring = append(ring, line)
			count++
			continue
		}
		ring[idx] = line
		idx = (idx + 1) % maxLines
		if count < maxLines {
			count++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}

	if maxLines <= 0 || count < maxLines {
		return ring[:count:count], nil
	}
	lines := make([]string, count)
	for i := range count {
		lines[i] = ring[(idx+i)%maxLines]
	}
	return lines, nil
}

// LineLevel extracts the level of a record written by the text formatter.
// The level follows the optional date and time fields; indented lines are
// continuations and carry no level.
func LineLevel(line string) (log.Level, bool) {
	if line == "" || line[0] == ' ' || line[0] == '\t' {
		return 0, false
	}
	for i, field := range strings.Fields(line) {
		if i > 2 {
			break
		}
		if lvl, ok := levelTokens[field]; ok {
			return lvl, true
		}
	}
	return 0, false
}
