package cycle

import (
	"fmt"
	"strings"
	"time"
)

// OutcomeStatus classifies one group of a run.
type OutcomeStatus string

const (
	// OutcomeSent means the group was delivered and advanced.
	OutcomeSent OutcomeStatus = "sent"

	// OutcomeSkipped means there was nothing to deliver.
	OutcomeSkipped OutcomeStatus = "skipped"

	// OutcomeFailed means the group was left untouched.
	OutcomeFailed OutcomeStatus = "failed"
)

// GroupOutcome is the result for one day-group.
type GroupOutcome struct {
	// Day is 0 for the motivation group.
	Day        int
	Key        string
	Status     OutcomeStatus
	Recipients []string
	Delivered  []string
	Reasons    []string
}

func (o GroupOutcome) fail(reasons ...string) GroupOutcome {
	o.Status = OutcomeFailed
	o.Reasons = append(o.Reasons, reasons...)
	return o
}

// Report summarizes a run.
type Report struct {
	RunID       string
	Mode        Mode
	StartedAt   time.Time
	CompletedAt time.Time
	Duration    time.Duration
	Groups      []GroupOutcome

	Sent       int
	Skipped    int
	Failed     int
	Recipients int
}

func newReport(runID string, mode Mode, now time.Time) *Report {
	return &Report{RunID: runID, Mode: mode, StartedAt: now}
}

func (r *Report) add(o GroupOutcome) {
	r.Groups = append(r.Groups, o)
	switch o.Status {
	case OutcomeSent:
		r.Sent++
		r.Recipients += len(o.Delivered)
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeFailed:
		r.Failed++
	}
}

func (r *Report) finish(now time.Time) {
	r.CompletedAt = now
	r.Duration = now.Sub(r.StartedAt)
}

// OK reports whether no group failed.
func (r *Report) OK() bool {
	return r.Failed == 0
}

// FailedGroups returns the failed outcomes.
func (r *Report) FailedGroups() []GroupOutcome {
	var out []GroupOutcome
	for _, g := range r.Groups {
		if g.Status == OutcomeFailed {
			out = append(out, g)
		}
	}
	return out
}

// Summary renders the run on one line.
func (r *Report) Summary() string {
	if len(r.Groups) == 0 {
		return fmt.Sprintf("%s cycle: nothing to do", r.Mode)
	}
	s := fmt.Sprintf("%s cycle: %d sent, %d skipped, %d failed (%d recipients) in %s",
		r.Mode, r.Sent, r.Skipped, r.Failed, r.Recipients, r.Duration.Round(time.Millisecond))
	if r.Failed == 0 {
		return s
	}
	parts := make([]string, 0, r.Failed)
	for _, g := range r.FailedGroups() {
		parts = append(parts, g.Key+" ["+strings.Join(g.Reasons, ", ")+"]")
	}
	return s + "; failed: " + strings.Join(parts, "; ")
}
