package core

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Mirai3103/boj-runner/internal/config"
	"github.com/Mirai3103/boj-runner/internal/core/checker"
	"github.com/Mirai3103/boj-runner/internal/core/limit"
	"github.com/Mirai3103/boj-runner/internal/core/plan"
	"github.com/Mirai3103/boj-runner/internal/core/sandbox"
	"github.com/Mirai3103/boj-runner/internal/models"
	"github.com/Mirai3103/boj-runner/internal/problem"
)

const defaultCompilationTimeout = 30 * time.Second

// ProblemProvider supplies the title, time limit text and samples of a problem.
type ProblemProvider interface {
	Fetch(ctx context.Context, problemID string) (*models.Problem, error)
}

// VerdictSink receives every verdict as soon as it is decided.
type VerdictSink interface {
	PublishVerdict(v models.Verdict) error
}

// Runner builds a solution once and runs it against every sample of a
// problem, one case at a time.
type Runner struct {
	resolver *plan.Resolver
	executor sandbox.Executor
	provider ProblemProvider
	sink     VerdictSink
	cfg      config.RunnerConfig
	logger   *zap.SugaredLogger
}

type RunnerOption func(*Runner)

// WithVerdictSink streams verdicts to sink while the run progresses.
func WithVerdictSink(sink VerdictSink) RunnerOption {
	return func(r *Runner) { r.sink = sink }
}

// NewRunner creates a new Runner instance. provider may be nil when only
// RunSamples is used.
func NewRunner(resolver *plan.Resolver, executor sandbox.Executor, provider ProblemProvider, cfg config.RunnerConfig, logger *zap.SugaredLogger, opts ...RunnerOption) *Runner {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	r := &Runner{
		resolver: resolver,
		executor: executor,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run resolves the execution plan, fetches the problem and runs its samples.
// Only configuration, provider and build failures are returned as errors.
func (r *Runner) Run(ctx context.Context, req models.RunRequest) (*models.Report, error) {
	req = withRunID(req)
	p, err := r.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	prob, err := r.fetch(ctx, req.ProblemID)
	if err != nil {
		return nil, err
	}
	return r.execute(ctx, req, p, prob)
}

// RunSamples runs against a problem the caller already has. A problem
// without samples yields a report with no verdicts.
func (r *Runner) RunSamples(ctx context.Context, req models.RunRequest, prob *models.Problem) (*models.Report, error) {
	req = withRunID(req)
	p, err := r.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	if prob == nil {
		return nil, &RunError{Type: ErrProvider, Message: "no problem given"}
	}
	return r.execute(ctx, req, p, prob)
}

func withRunID(req models.RunRequest) models.RunRequest {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	return req
}

func (r *Runner) resolve(ctx context.Context, req models.RunRequest) (*plan.Plan, error) {
	p, err := r.resolver.Resolve(ctx, req.Language, req.SourcePath)
	if err != nil {
		return nil, &RunError{Type: ErrConfiguration, Message: "cannot resolve execution plan", Cause: err}
	}
	if _, err := os.Stat(req.SourcePath); err != nil {
		return nil, &RunError{Type: ErrConfiguration, Message: "source file is not accessible", Cause: err}
	}
	return p, nil
}

func (r *Runner) fetch(ctx context.Context, problemID string) (*models.Problem, error) {
	if r.provider == nil {
		return nil, &RunError{Type: ErrProvider, Message: "no problem provider configured"}
	}
	if strings.TrimSpace(problemID) == "" {
		return nil, &RunError{Type: ErrProvider, Message: "problem number not found"}
	}
	if !problem.ValidID(problemID) {
		return nil, &RunError{Type: ErrProvider, Message: "invalid problem number " + strconv.Quote(problemID), Cause: problem.ErrInvalidID}
	}
	p, err := r.provider.Fetch(ctx, problemID)
	if err != nil {
		return nil, &RunError{Type: ErrProvider, Message: "failed to fetch problem " + problemID, Cause: err}
	}
	if p == nil || len(p.Samples) == 0 {
		return nil, &RunError{Type: ErrProvider, Message: "sample inputs or outputs not found for problem " + problemID}
	}
	return p, nil
}

func (r *Runner) execute(ctx context.Context, req models.RunRequest, p *plan.Plan, prob *models.Problem) (*models.Report, error) {
	log := r.logger.With("run", req.ID, "problem", prob.ID, "language", p.Language)
	wait := limit.Wait(prob.LimitText)
	report := &models.Report{
		RunID:      req.ID,
		ProblemID:  prob.ID,
		Title:      prob.Title,
		SourcePath: req.SourcePath,
		Language:   string(p.Language),
		TimeLimit:  wait,
		Verdicts:   make([]models.Verdict, 0, len(prob.Samples)),
	}
	if report.ProblemID == "" {
		report.ProblemID = req.ProblemID
	}

	if p.Build != nil {
		if err := r.build(ctx, p, log); err != nil {
			return nil, err
		}
	}

	for i, sample := range prob.Samples {
		v := r.runCase(ctx, req.ID, i+1, p, sample, wait, log)
		report.Verdicts = append(report.Verdicts, v)
		if r.sink != nil {
			if err := r.sink.PublishVerdict(v); err != nil {
				log.Warnw("failed to publish verdict", "case", v.Case, "error", err)
			}
		}
	}
	log.Infow("run finished", "passed", report.PassedCount(), "total", len(report.Verdicts))
	return report, nil
}

// build runs the compile step once; any failure aborts the run.
func (r *Runner) build(ctx context.Context, p *plan.Plan, log *zap.SugaredLogger) error {
	timeout := time.Duration(r.cfg.CompilationTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = defaultCompilationTimeout
	}
	buildCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	step := p.Build
	cmd := exec.CommandContext(buildCtx, step.Path, step.Args...)
	cmd.Dir = step.Dir
	if len(step.Env) > 0 {
		cmd.Env = append(os.Environ(), step.Env...)
	}
	log.Infow("compiling", "command", step.String())
	out, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(buildCtx.Err(), context.DeadlineExceeded) {
			err = errors.Join(err, buildCtx.Err())
		}
		log.Warnw("compilation failed", "error", err, "output", string(out))
		return &RunError{Type: ErrBuild, Message: "compilation failed", Cause: err, Details: string(out)}
	}
	log.Debugw("compilation finished", "artifact", p.Artifact)
	return nil
}

func (r *Runner) runCase(ctx context.Context, runID string, index int, p *plan.Plan, sample models.Sample, wait time.Duration, log *zap.SugaredLogger) models.Verdict {
	res, err := r.executor.Execute(ctx, sandbox.RunRequest{
		RunID:   runID,
		Case:    index,
		Command: p.Run.Command(),
		Dir:     p.Run.Dir,
		Env:     p.Run.Env,
		Input:   sample.Input,
		Timeout: wait,
	})
	if err != nil {
		log.Warnw("executor rejected case", "case", index, "error", err)
		return models.Verdict{RunID: runID, Case: index, Status: models.RuntimeError, Error: err.Error(), Limit: wait}
	}
	v := Judge(sample, res)
	v.RunID = runID
	v.Case = index
	v.Limit = wait
	return v
}

// Judge turns an execution result into a verdict. The pass/fail decision
// uses normalized text only.
func Judge(sample models.Sample, res *sandbox.ExecuteResult) models.Verdict {
	v := models.Verdict{
		Actual:   checker.NormalizeText(res.Output),
		Stderr:   res.Stderr,
		Elapsed:  res.TimeUsed,
		MemoryKb: res.MemoryUsedKb,
	}
	switch res.Outcome {
	case sandbox.TimedOut:
		v.Status = models.TimedOut
	case sandbox.Errored:
		v.Status = models.RuntimeError
		v.Error = res.Error
	default:
		expected := checker.Normalize(sample.Output)
		if checker.Equal(expected, checker.Normalize(res.Output)) {
			v.Status = models.Passed
		} else {
			v.Status = models.Failed
			v.Expected = strings.Join(expected, "\n")
			v.RawExpected = sample.Output
			v.Error = res.Error
		}
	}
	return v
}
