package sandbox

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Mirai3103/boj-runner/internal/config"
)

// Outcome is the terminal state a case execution reached.
type Outcome string

const (
	Completed Outcome = "completed" // exited on its own before the timer fired
	TimedOut  Outcome = "timed_out" // killed by the timer
	Errored   Outcome = "errored"   // spawn or wait failure
)

// RunRequest holds what is needed to run one already-built program against
// one sample input.
type RunRequest struct {
	RunID   string
	Case    int // 1-based, for logs only
	Command []string
	Dir     string
	Env     []string // appended to the parent environment
	Input   string
	Timeout time.Duration
}

// ExecuteResult is produced exactly once per RunRequest.
type ExecuteResult struct {
	Outcome Outcome
	// Output is stdout and stderr in arrival order. It is what gets compared.
	Output       string
	Stderr       string
	ExitCode     int
	Error        string
	TimeUsed     time.Duration
	MemoryUsedKb int
}

// Executor runs a prepared command. It does not compile anything.
type Executor interface {
	// Execute blocks until the process reaches a terminal state. The
	// returned error is reserved for requests that cannot be attempted at
	// all; process failures are reported through ExecuteResult.
	Execute(ctx context.Context, req RunRequest) (*ExecuteResult, error)

	ID() string
}

// NewExecutor returns the host process executor.
func NewExecutor(rc config.RunnerConfig, logger *zap.SugaredLogger) Executor {
	waitDelay := time.Duration(rc.WaitDelayMs) * time.Millisecond
	if waitDelay <= 0 {
		waitDelay = defaultWaitDelay
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &directExecutor{
		waitDelay:    waitDelay,
		pollInterval: memoryPollInterval,
		logger:       logger,
	}
}
