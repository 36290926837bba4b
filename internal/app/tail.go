package app

import (
	"context"
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/five82/lookout/internal/eventlog"
	"github.com/five82/lookout/internal/state"
)

const maxDataWidth = 160

// printEvents writes connection transitions and newly applied events to w
// each time the store changes.
func printEvents(ctx context.Context, store *state.Store, w io.Writer) error {
	updates, cancel := store.Subscribe()
	defer cancel()

	var p tailPrinter
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-updates:
		}
		if err := p.print(w, store.Snapshot()); err != nil {
			return fmt.Errorf("write events: %w", err)
		}
	}
}

type tailPrinter struct {
	lastSeq   uint64
	lastState string
	started   bool
}

func (p *tailPrinter) print(w io.Writer, snap state.Snapshot) error {
	conn := connectionLine(snap.Connection)
	if !p.started || conn != p.lastState {
		p.started = true
		p.lastState = conn
		if _, err := fmt.Fprintln(w, conn); err != nil {
			return err
		}
	}
	for _, e := range eventlog.Since(snap.Events, p.lastSeq) {
		p.lastSeq = e.Seq
		if _, err := fmt.Fprintln(w, formatEntry(e)); err != nil {
			return err
		}
	}
	return nil
}

func connectionLine(c state.Connection) string {
	line := "-- stream " + c.State.String()
	switch c.State {
	case state.Reconnecting:
		line += fmt.Sprintf(" (attempt %d/%d in %s)", c.ReconnectAttempt, c.MaxAttempts, c.RetryIn)
	case state.ClosedTerminal:
		line += ": " + c.LastError
	}
	return line
}

func formatEntry(e eventlog.Entry) string {
	data := string(e.Data)
	if utf8.RuneCountInString(data) > maxDataWidth {
		data = string([]rune(data)[:maxDataWidth-3]) + "..."
	}
	id := e.ID
	if id == "" {
		id = "-"
	}
	return fmt.Sprintf("%s #%d %s %s %s", e.At.Format(time.TimeOnly), e.Seq, e.Type, id, data)
}
