package models

import "time"

type VerdictStatus string

const (
	Passed       VerdictStatus = "passed"
	Failed       VerdictStatus = "failed"
	TimedOut     VerdictStatus = "timed_out"
	RuntimeError VerdictStatus = "runtime_error"
)

// Verdict is the outcome of one sample case. Case is 1-based.
type Verdict struct {
	RunID       string        `json:"runId,omitempty"`
	Case        int           `json:"case"`
	Status      VerdictStatus `json:"status"`
	Actual      string        `json:"actual"`             // normalized
	Expected    string        `json:"expected,omitempty"` // normalized, set for Failed
	RawExpected string        `json:"rawExpected,omitempty"`
	Stderr      string        `json:"stderr,omitempty"`
	Error       string        `json:"error,omitempty"`
	Limit       time.Duration `json:"limit"`
	Elapsed     time.Duration `json:"elapsed"`
	MemoryKb    int           `json:"memoryKb"`
}

// Report is the per-run presentation artifact. It is rebuilt on every run.
type Report struct {
	RunID      string        `json:"runId"`
	ProblemID  string        `json:"problemId"`
	Title      string        `json:"title"`
	SourcePath string        `json:"sourcePath"`
	Language   string        `json:"language"`
	TimeLimit  time.Duration `json:"timeLimit"`
	Verdicts   []Verdict     `json:"verdicts"`
}

// PassedCount returns how many verdicts are Passed.
func (r *Report) PassedCount() int {
	n := 0
	for _, v := range r.Verdicts {
		if v.Status == Passed {
			n++
		}
	}
	return n
}

// AllPassed reports whether every case passed. A report with no cases has
// nothing to pass and returns false.
func (r *Report) AllPassed() bool {
	return len(r.Verdicts) > 0 && r.PassedCount() == len(r.Verdicts)
}
