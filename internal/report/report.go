// Package report prints build progress for the user.
package report

import (
	"fmt"
	"io"
	"sync"
)

// Level is the weight of a reported line.
type Level int

const (
	Info Level = iota
	Notice
	Warning
	Error
)

var markers = [...]string{
	Info:    "+",
	Notice:  "~",
	Warning: "WARN",
	Error:   "ERROR",
}

func (l Level) String() string {
	if l < 0 || int(l) >= len(markers) {
		return fmt.Sprintf("Level(%d)", int(l))
	}
	return markers[l]
}

// Reporter writes marked lines to w and counts them by level.
// It is safe for concurrent use.
type Reporter struct {
	mu     sync.Mutex
	w      io.Writer
	counts [len(markers)]int
}

// New returns a Reporter writing to w.
func New(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

func (r *Reporter) printf(l Level, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[l]++
	fmt.Fprintf(r.w, "%s %s\n", l, fmt.Sprintf(format, args...))
}

func (r *Reporter) Infof(format string, args ...any)   { r.printf(Info, format, args...) }
func (r *Reporter) Noticef(format string, args ...any) { r.printf(Notice, format, args...) }
func (r *Reporter) Warnf(format string, args ...any)   { r.printf(Warning, format, args...) }
func (r *Reporter) Errorf(format string, args ...any)  { r.printf(Error, format, args...) }

// Count returns how many lines of level l were reported.
func (r *Reporter) Count(l Level) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[l]
}

// Summary prints the error and warning totals.
func (r *Reporter) Summary() {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%d error(s), %d warning(s)\n", r.counts[Error], r.counts[Warning])
}
