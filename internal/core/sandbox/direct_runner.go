package sandbox

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

const (
	memoryPollInterval = 20 * time.Millisecond
	defaultWaitDelay   = 500 * time.Millisecond
)

type caseState int

const (
	stateStarting caseState = iota
	stateRunning
	stateCompleted
	stateTimedOut
	stateErrored
)

func (s caseState) String() string {
	switch s {
	case stateStarting:
		return "starting"
	case stateRunning:
		return "running"
	case stateCompleted:
		return "completed"
	case stateTimedOut:
		return "timed_out"
	case stateErrored:
		return "errored"
	}
	return fmt.Sprintf("caseState(%d)", int(s))
}

func (s caseState) terminal() bool { return s >= stateCompleted }

// caseRun tracks one case through Starting -> Running -> terminal. Once a
// terminal state is reached every later transition is refused.
type caseRun struct {
	mu    sync.Mutex
	state caseState
}

func (c *caseRun) transition(to caseState) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.terminal() {
		return false
	}
	c.state = to
	return true
}

func (c *caseRun) current() caseState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// lockedBuffer lets the stdout and stderr copiers share one buffer.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// directExecutor runs the program straight on the host. It only enforces the
// wall clock timeout; there is no isolation.
type directExecutor struct {
	waitDelay    time.Duration
	pollInterval time.Duration
	logger       *zap.SugaredLogger
}

func (e *directExecutor) ID() string {
	return "direct"
}

func (e *directExecutor) Execute(ctx context.Context, req RunRequest) (*ExecuteResult, error) {
	if len(req.Command) == 0 {
		return nil, &Error{Type: ErrInternal, Message: "empty run command"}
	}
	if req.Timeout <= 0 {
		return nil, &Error{Type: ErrInternal, Message: fmt.Sprintf("invalid timeout %s", req.Timeout)}
	}
	log := e.logger.With("run", req.RunID, "case", req.Case)

	run := &caseRun{}
	cmd := exec.Command(req.Command[0], req.Command[1:]...)
	cmd.Dir = req.Dir
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), req.Env...)
	}
	var combined lockedBuffer
	var stderr bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = io.MultiWriter(&combined, &stderr)
	// Grandchildren may keep the pipes open after the child dies.
	cmd.WaitDelay = e.waitDelay

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &Error{Type: ErrInternal, Message: "failed to create stdin pipe", Cause: err}
	}

	start := time.Now()
	if err := cmd.Start(); err != nil {
		run.transition(stateErrored)
		log.Debugw("spawn failed", "command", req.Command, "error", err)
		return &ExecuteResult{
			Outcome:  Errored,
			ExitCode: -1,
			Error:    (&Error{Type: ErrCmdStart, Message: "failed to start command", Cause: err}).Error(),
		}, nil
	}

	timer := time.NewTimer(req.Timeout)
	defer timer.Stop()

	pid := int32(cmd.Process.Pid)
	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	defer stopMonitor()
	var peakRSS atomic.Uint64
	go e.monitorMemory(monitorCtx, pid, &peakRSS)

	go feedInput(stdin, req.Input, log)
	run.transition(stateRunning)
	log.Debugw("process started", "pid", pid, "command", req.Command, "timeout", req.Timeout)

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	result := &ExecuteResult{}
	select {
	case waitErr := <-done:
		timer.Stop()
		e.completed(run, result, waitErr, log)

	case <-timer.C:
		if run.transition(stateTimedOut) {
			e.kill(cmd, log)
			<-done // reap; the exit that follows a kill is not an outcome
			result.Outcome = TimedOut
			result.ExitCode = -1
			log.Debugw("timed out", "pid", pid, "limit", req.Timeout)
		}

	case <-ctx.Done():
		if run.transition(stateErrored) {
			e.kill(cmd, log)
			<-done
			result.Outcome = Errored
			result.ExitCode = -1
			result.Error = ctx.Err().Error()
		}
	}
	stopMonitor()

	if result.Outcome == TimedOut || (result.Outcome == Errored && ctx.Err() != nil) {
		if alive, _ := process.PidExists(pid); alive {
			log.Warnw("process still present after kill", "pid", pid)
		}
	}

	result.TimeUsed = time.Since(start)
	result.Output = combined.String()
	result.Stderr = stderr.String()
	result.MemoryUsedKb = int(peakRSS.Load() / 1024)
	if result.Stderr != "" {
		log.Debugw("stderr", "text", result.Stderr)
	}
	log.Debugw("case finished", "state", run.current(), "exitCode", result.ExitCode,
		"time", result.TimeUsed, "memoryKb", result.MemoryUsedKb)
	return result, nil
}

// completed handles the Wait result when the process exited before the timer.
// A non-zero exit still counts as Completed; its output gets compared.
func (e *directExecutor) completed(run *caseRun, result *ExecuteResult, waitErr error, log *zap.SugaredLogger) {
	var exitErr *exec.ExitError
	switch {
	case waitErr == nil:
		run.transition(stateCompleted)
		result.Outcome = Completed
	case errors.As(waitErr, &exitErr):
		run.transition(stateCompleted)
		result.Outcome = Completed
		result.ExitCode = exitCode(exitErr)
		result.Error = waitErr.Error()
	case errors.Is(waitErr, exec.ErrWaitDelay):
		// exited cleanly but something held the pipes; what we have is final
		run.transition(stateCompleted)
		result.Outcome = Completed
	default:
		run.transition(stateErrored)
		result.Outcome = Errored
		result.ExitCode = -1
		result.Error = (&Error{Type: ErrCmdWait, Message: "command wait failed", Cause: waitErr}).Error()
		log.Debugw("wait failed", "error", waitErr)
	}
}

func (e *directExecutor) kill(cmd *exec.Cmd, log *zap.SugaredLogger) {
	if cmd.Process == nil {
		return
	}
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		log.Warnw("failed to kill process", "pid", cmd.Process.Pid, "error", err)
	}
}

// monitorMemory samples the child's RSS until ctx is cancelled.
func (e *directExecutor) monitorMemory(ctx context.Context, pid int32, peak *atomic.Uint64) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			proc, err := process.NewProcessWithContext(ctx, pid)
			if err != nil {
				continue
			}
			mem, err := proc.MemoryInfoWithContext(ctx)
			if err != nil {
				continue
			}
			for {
				old := peak.Load()
				if mem.RSS <= old || peak.CompareAndSwap(old, mem.RSS) {
					break
				}
			}
		}
	}
}

// feedInput writes the sample input and closes stdin so the program sees EOF.
// A program that exits without reading produces EPIPE, which is fine.
func feedInput(stdin io.WriteCloser, input string, log *zap.SugaredLogger) {
	if _, err := io.WriteString(stdin, input); err != nil && !isClosedPipe(err) {
		log.Debugw("writing stdin failed", "error", err)
	}
	if err := stdin.Close(); err != nil && !isClosedPipe(err) {
		log.Debugw("closing stdin failed", "error", err)
	}
}

func isClosedPipe(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, os.ErrClosed)
}

func exitCode(exitErr *exec.ExitError) int {
	if ws, ok := exitErr.Sys().(syscall.WaitStatus); ok {
		return ws.ExitStatus()
	}
	return exitErr.ExitCode()
}

type ErrorType string

const (
	ErrCmdStart ErrorType = "COMMAND_START_ERROR"
	ErrCmdWait  ErrorType = "COMMAND_WAIT_ERROR"
	ErrInternal ErrorType = "INTERNAL_SANDBOX_ERROR"
)

type Error struct {
	Type    ErrorType
	Message string
	Cause   error
	Details string
}

func (se *Error) Error() string {
	if se.Cause != nil {
		return fmt.Sprintf("%s: %s (type: %s)", se.Message, se.Cause.Error(), se.Type)
	}
	return fmt.Sprintf("%s (type: %s)", se.Message, se.Type)
}

func (se *Error) Unwrap() error {
	return se.Cause
}
