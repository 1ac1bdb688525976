package collector

import "time"

// Result is the structured outcome of one collection run. Every internal
// failure is folded into this shape; nothing below the collector boundary
// panics or leaks raw errors to the scheduler.
type Result struct {
	Source     string
	RunID      string
	Success    bool
	Collected  int
	Saved      int
	Dropped    int
	SaveErrors int
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
	Message    string
}

// Duration returns the wall time the run took
func (r Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// ErrorString returns the run error as a string, empty for clean runs
func (r Result) ErrorString() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Failed reports whether the run ended in a counted failure. A disabled
// source returns Success=false with no error, which is a skip, not a failure.
func (r Result) Failed() bool {
	return r.Err != nil
}
