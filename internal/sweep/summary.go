// Package sweep orchestrates reconciliation runs: it indexes the library,
// ranks duplicate groups, executes cleanup against the library and the
// downstream acquisition systems, and reports what happened.
package sweep

import (
	"fmt"
	"time"
)

// Counters tallies the actions of one run. Dry runs count into the Would*
// fields instead of their live counterparts.
type Counters struct {
	Deleted            int `json:"deleted"`
	WouldDelete        int `json:"wouldDelete"`
	NotFound           int `json:"notFound"`           // delete targets already gone
	DownstreamNotFound int `json:"downstreamNotFound"` // no acquisition entity resolved
	Unmonitored        int `json:"unmonitored"`
	WouldUnmonitor     int `json:"wouldUnmonitor"`
	Removed            int `json:"removed"` // watchlist entries
	WouldRemove        int `json:"wouldRemove"`
	Skipped            int `json:"skipped"` // blocked by the completeness guard
	Failures           int `json:"failures"`
}

// Add merges o into c.
func (c *Counters) Add(o Counters) {
	c.Deleted += o.Deleted
	c.WouldDelete += o.WouldDelete
	c.NotFound += o.NotFound
	c.DownstreamNotFound += o.DownstreamNotFound
	c.Unmonitored += o.Unmonitored
	c.WouldUnmonitor += o.WouldUnmonitor
	c.Removed += o.Removed
	c.WouldRemove += o.WouldRemove
	c.Skipped += o.Skipped
	c.Failures += o.Failures
}

// Summary is the full report of one run, serialized as-is into the run
// history.
type Summary struct {
	Mode       string    `json:"mode"`
	Target     string    `json:"target,omitempty"`
	DryRun     bool      `json:"dryRun"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`

	Sections       int `json:"sections"`
	FailedSections int `json:"failedSections"`
	Items          int `json:"items"`
	Groups         int `json:"groups"`

	Counters

	Warnings []string `json:"warnings,omitempty"`
}

// Warnf records a non-fatal problem on the summary.
func (s *Summary) Warnf(format string, args ...any) {
	s.Warnings = append(s.Warnings, fmt.Sprintf(format, args...))
}

func newSummary(mode, target string, dryRun bool) *Summary {
	return &Summary{
		Mode:      mode,
		Target:    target,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}
}

func (s *Summary) finish() *Summary {
	s.FinishedAt = time.Now().UTC()
	return s
}
