package worker

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/Mirai3103/boj-runner/internal/config"
	"github.com/Mirai3103/boj-runner/internal/core"
	"github.com/Mirai3103/boj-runner/internal/models"
	"github.com/Mirai3103/boj-runner/internal/report"
)

const defaultRunTimeout = 5 * time.Minute

// Runner is the part of core.Runner the worker needs.
type Runner interface {
	Run(ctx context.Context, req models.RunRequest) (*models.Report, error)
}

type ResultPublisher interface {
	PublishResult(result models.RunResult) error
}

// JobHandler runs requests concurrently on a bounded pool. Cases inside one
// run are still executed one after another by the Runner.
type JobHandler struct {
	runner     Runner
	publisher  ResultPublisher
	renderer   report.Renderer
	pool       *pool.Pool
	runTimeout time.Duration
	logger     *zap.SugaredLogger
}

func NewJobHandler(runner Runner, publisher ResultPublisher, renderer report.Renderer, cfg config.WorkerConfig, logger *zap.SugaredLogger) *JobHandler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	p := pool.New()
	if cfg.MaxConcurrentJobs > 0 {
		p = p.WithMaxGoroutines(cfg.MaxConcurrentJobs)
		logger.Infow("job handler initialized", "maxConcurrentJobs", cfg.MaxConcurrentJobs)
	} else {
		logger.Infow("job handler initialized without concurrency limit")
	}
	return &JobHandler{
		runner:     runner,
		publisher:  publisher,
		renderer:   renderer,
		pool:       p,
		runTimeout: defaultRunTimeout,
		logger:     logger,
	}
}

// HandleRunRequest queues req. It blocks while every slot is busy.
func (h *JobHandler) HandleRunRequest(req models.RunRequest) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	start := time.Now()
	h.pool.Go(func() {
		h.logger.Debugw("run slot acquired", "request", req.ID, "waited", time.Since(start))
		h.process(req)
	})
}

// Wait blocks until every queued run has finished. The handler must not be
// used afterwards.
func (h *JobHandler) Wait() {
	h.pool.Wait()
}

func (h *JobHandler) process(req models.RunRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), h.runTimeout)
	defer cancel()

	log := h.logger.With("request", req.ID, "problem", req.ProblemID)
	log.Infow("processing run request", "source", req.SourcePath, "language", req.Language)
	rep, err := h.runner.Run(ctx, req)
	result := Result(req, rep, err, h.renderer)
	if err != nil {
		log.Warnw("run aborted", "errorType", result.ErrorType, "error", err)
	}
	if err := h.publisher.PublishResult(result); err != nil {
		log.Errorw("failed to publish run result", "error", err)
	}
}

// Result builds the message published for a finished run. A run-level
// failure carries its error type and, for build failures, the compiler
// output as Text.
func Result(req models.RunRequest, rep *models.Report, err error, renderer report.Renderer) models.RunResult {
	result := models.RunResult{RequestID: req.ID}
	if err == nil {
		result.Report = rep
		result.Text = renderer.String(rep)
		return result
	}
	result.Error = err.Error()
	var runErr *core.RunError
	if errors.As(err, &runErr) {
		result.ErrorType = string(runErr.Type)
		result.Text = runErr.Details
	} else {
		result.ErrorType = "internal"
	}
	return result
}
