package models

import "strings"

// CycleReport collects the human-readable outcome lines of one backup cycle.
// A report is created at the start of a cycle, handed to the notifier at the
// end, and discarded. An empty report means nothing noteworthy happened and
// no notification is sent.
type CycleReport struct {
	lines []string
}

// NewCycleReport creates an empty report.
func NewCycleReport() *CycleReport {
	return &CycleReport{}
}

// Append adds a single event line to the report.
func (r *CycleReport) Append(line string) {
	r.lines = append(r.lines, line)
}

// AppendAll adds multiple event lines, preserving order.
func (r *CycleReport) AppendAll(lines []string) {
	r.lines = append(r.lines, lines...)
}

// Lines returns the accumulated event lines in order.
func (r *CycleReport) Lines() []string {
	return r.lines
}

// Len returns the number of event lines.
func (r *CycleReport) Len() int {
	return len(r.lines)
}

// Empty reports whether the cycle produced no events.
func (r *CycleReport) Empty() bool {
	return len(r.lines) == 0
}

// Join renders the report as a single newline-joined text blob.
func (r *CycleReport) Join() string {
	return strings.Join(r.lines, "\n")
}
