// Package eventlog writes the append-only, fixed-format log files the
// controller and switches are graded on: a timestamp line followed by one
// of a small set of record shapes, blank-line separated. The format is an
// external contract, not an internal diagnostic, so it is kept entirely
// apart from the program's structured slog output (see internal/cli).
package eventlog

import (
	"bufio"
	"fmt"
	"os"
	"sync"
	"time"
)

// Writer appends records to a single log file. One Writer serves either a
// controller or a switch; the record-building methods below mirror the
// teacher's per-event helper functions one for one.
type Writer struct {
	mu  sync.Mutex
	f   *os.File
	w   *bufio.Writer
	now func() time.Time
}

// Open creates or appends to the log file at path.
func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("eventlog: open %s: %w", path, err)
	}
	return &Writer{f: f, w: bufio.NewWriter(f), now: time.Now}, nil
}

// Close flushes buffered output and closes the underlying file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.w.Flush(); err != nil {
		w.f.Close()
		return err
	}
	return w.f.Close()
}

// write emits the blank-line-prefixed record block, then a trailing flush:
// two newlines, then the lines.
func (w *Writer) write(lines []string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprint(w.w, "\n\n")
	for _, l := range lines {
		fmt.Fprintln(w.w, l)
	}
	w.w.Flush()
}

func (w *Writer) timestamp() string {
	return w.now().Format("15:04:05.000000")
}

// --- Controller-side records ---

// RegisterRequestReceived logs that the controller received a register
// request from the given switch id.
func (w *Writer) RegisterRequestReceived(switchID int) {
	w.write([]string{w.timestamp(), fmt.Sprintf("Register Request %d", switchID)})
}

// RegisterResponseSent logs that the controller sent a register response
// to the given switch id.
func (w *Writer) RegisterResponseSent(switchID int) {
	w.write([]string{w.timestamp(), fmt.Sprintf("Register Response %d", switchID)})
}

// ControllerRoutingEntry is one line of a controller-side routing update
// record: src, dst, next hop, and shortest distance.
type ControllerRoutingEntry struct {
	Src, Dst, NextHop, Distance int
}

// RoutingUpdate logs the controller's current routing table. Entries from
// dead switches must already be excluded by the caller.
func (w *Writer) RoutingUpdate(entries []ControllerRoutingEntry) {
	lines := make([]string, 0, len(entries)+2)
	lines = append(lines, w.timestamp(), "Routing Update")
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%d,%d:%d,%d", e.Src, e.Dst, e.NextHop, e.Distance))
	}
	lines = append(lines, "Routing Complete")
	w.write(lines)
}

// LinkDead logs that the directed or undirected link between two switches
// has been declared dead.
func (w *Writer) LinkDead(a, b int) {
	w.write([]string{w.timestamp(), fmt.Sprintf("Link Dead %d,%d", a, b)})
}

// SwitchDead logs that a switch has been declared dead by the liveness
// sweep.
func (w *Writer) SwitchDead(switchID int) {
	w.write([]string{w.timestamp(), fmt.Sprintf("Switch Dead %d", switchID)})
}

// SwitchAlive logs that a previously-dead switch has been observed alive
// again (re-registration or resumed topology update).
func (w *Writer) SwitchAlive(switchID int) {
	w.write([]string{w.timestamp(), fmt.Sprintf("Switch Alive %d", switchID)})
}

// --- Switch-side records ---

// RegisterRequestSent logs that this switch sent its register request to
// the controller.
func (w *Writer) RegisterRequestSent() {
	w.write([]string{w.timestamp(), "Register Request Sent"})
}

// RegisterResponseReceived logs that this switch received its register
// response from the controller.
func (w *Writer) RegisterResponseReceived() {
	w.write([]string{w.timestamp(), "Register Response Received"})
}

// SwitchRoutingEntry is one line of a switch-side routing update record:
// src, dst, and next hop, without distance.
type SwitchRoutingEntry struct {
	Src, Dst, NextHop int
}

// RoutingUpdateReceived logs the routing entries this switch received from
// the controller.
func (w *Writer) RoutingUpdateReceived(entries []SwitchRoutingEntry) {
	lines := make([]string, 0, len(entries)+2)
	lines = append(lines, w.timestamp(), "Routing Update")
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%d,%d:%d", e.Src, e.Dst, e.NextHop))
	}
	lines = append(lines, "Routing Complete")
	w.write(lines)
}

// NeighborDead logs that this switch stopped hearing keep-alives from the
// given neighbor within the timeout window.
func (w *Writer) NeighborDead(neighborID int) {
	w.write([]string{w.timestamp(), fmt.Sprintf("Neighbor Dead %d", neighborID)})
}

// NeighborAlive logs that a previously-dead neighbor has resumed sending
// keep-alives.
func (w *Writer) NeighborAlive(neighborID int) {
	w.write([]string{w.timestamp(), fmt.Sprintf("Neighbor Alive %d", neighborID)})
}
