package core

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Mirai3103/boj-runner/internal/config"
	"github.com/Mirai3103/boj-runner/internal/core/plan"
	"github.com/Mirai3103/boj-runner/internal/core/sandbox"
	"github.com/Mirai3103/boj-runner/internal/models"
)

type fakeExecutor struct {
	results []*sandbox.ExecuteResult
	reqs    []sandbox.RunRequest
}

func (f *fakeExecutor) ID() string { return "fake" }

func (f *fakeExecutor) Execute(ctx context.Context, req sandbox.RunRequest) (*sandbox.ExecuteResult, error) {
	f.reqs = append(f.reqs, req)
	idx := len(f.reqs) - 1
	if idx < len(f.results) {
		return f.results[idx], nil
	}
	return &sandbox.ExecuteResult{Outcome: sandbox.Completed, Output: req.Input}, nil
}

type fakeProvider struct {
	problem *models.Problem
	err     error
	calls   int
}

func (f *fakeProvider) Fetch(ctx context.Context, id string) (*models.Problem, error) {
	f.calls++
	return f.problem, f.err
}

type recordingSink struct {
	verdicts []models.Verdict
}

func (s *recordingSink) PublishVerdict(v models.Verdict) error {
	s.verdicts = append(s.verdicts, v)
	return nil
}

func okProbe(context.Context, string) error { return nil }

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func threeSamples() *models.Problem {
	return &models.Problem{
		ID:        "1000",
		Title:     "A+B",
		LimitText: "2 초",
		Samples: []models.Sample{
			{Input: "1 2\n", Output: "3\n"},
			{Input: "2 2\n", Output: "4\n"},
			{Input: "5 5\n", Output: "10\n"},
		},
	}
}

func TestRunContinuesAfterFailedCase(t *testing.T) {
	exe := &fakeExecutor{results: []*sandbox.ExecuteResult{
		{Outcome: sandbox.Completed, Output: "3\n"},
		{Outcome: sandbox.Completed, Output: "5\r\n\r\n"},
		{Outcome: sandbox.Completed, Output: "10"},
	}}
	provider := &fakeProvider{problem: threeSamples()}
	sink := &recordingSink{}
	r := NewRunner(plan.NewResolver(nil, plan.WithProber(okProbe)), exe, provider, config.RunnerConfig{}, zaptest.NewLogger(t).Sugar(), WithVerdictSink(sink))

	report, err := r.Run(context.Background(), models.RunRequest{
		ProblemID:  "1000",
		SourcePath: writeSource(t, "main.py", "print(0)"),
		Language:   "py",
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Verdicts) != 3 {
		t.Fatalf("verdicts = %d", len(report.Verdicts))
	}
	want := []models.VerdictStatus{models.Passed, models.Failed, models.Passed}
	for i, v := range report.Verdicts {
		if v.Case != i+1 || v.Status != want[i] {
			t.Errorf("verdict %d = case %d status %s", i, v.Case, v.Status)
		}
	}
	failed := report.Verdicts[1]
	if failed.Expected != "4" || failed.Actual != "5" || failed.RawExpected != "4\n" {
		t.Fatalf("failed verdict = %+v", failed)
	}
	if report.RunID == "" || failed.RunID != report.RunID {
		t.Fatalf("run id not propagated: %q / %q", report.RunID, failed.RunID)
	}
	if report.TimeLimit != 2*time.Second {
		t.Fatalf("time limit = %v", report.TimeLimit)
	}
	if len(sink.verdicts) != 3 || sink.verdicts[1].Status != models.Failed {
		t.Fatalf("sink got %+v", sink.verdicts)
	}
	for i, req := range exe.reqs {
		if req.Input != provider.problem.Samples[i].Input || req.Timeout != 2*time.Second {
			t.Errorf("request %d = %+v", i, req)
		}
	}
}

func TestRunUnsupportedLanguage(t *testing.T) {
	exe := &fakeExecutor{}
	provider := &fakeProvider{problem: threeSamples()}
	r := NewRunner(plan.NewResolver(nil, plan.WithProber(okProbe)), exe, provider, config.RunnerConfig{}, zaptest.NewLogger(t).Sugar())

	report, err := r.Run(context.Background(), models.RunRequest{
		ProblemID:  "1000",
		SourcePath: writeSource(t, "main.hs", "main = pure ()"),
		Language:   "haskell",
	})
	if !IsErrorType(err, ErrConfiguration) {
		t.Fatalf("err = %v", err)
	}
	if !errors.Is(err, plan.ErrUnsupportedLanguage) {
		t.Fatalf("cause lost: %v", err)
	}
	if report != nil || len(exe.reqs) != 0 || provider.calls != 0 {
		t.Fatalf("nothing should run: report=%v execs=%d fetches=%d", report, len(exe.reqs), provider.calls)
	}
}

func TestRunMissingSource(t *testing.T) {
	r := NewRunner(plan.NewResolver(nil, plan.WithProber(okProbe)), &fakeExecutor{}, &fakeProvider{problem: threeSamples()}, config.RunnerConfig{}, nil)
	_, err := r.Run(context.Background(), models.RunRequest{
		ProblemID:  "1000",
		SourcePath: filepath.Join(t.TempDir(), "missing.py"),
		Language:   "py",
	})
	if !IsErrorType(err, ErrConfiguration) {
		t.Fatalf("err = %v", err)
	}
}

func TestRunProviderFailures(t *testing.T) {
	source := writeSource(t, "main.py", "")
	tests := []struct {
		name     string
		provider *fakeProvider
		id       string
	}{
		{"fetch error", &fakeProvider{err: errors.New("connection refused")}, "1000"},
		{"no samples", &fakeProvider{problem: &models.Problem{ID: "1000", Title: "A+B"}}, "1000"},
		{"no problem id", &fakeProvider{problem: threeSamples()}, ""},
		{"path-like id", &fakeProvider{problem: threeSamples()}, "../../../escaped"},
		{"nil problem", &fakeProvider{}, "1000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exe := &fakeExecutor{}
			r := NewRunner(plan.NewResolver(nil, plan.WithProber(okProbe)), exe, tt.provider, config.RunnerConfig{}, zaptest.NewLogger(t).Sugar())
			report, err := r.Run(context.Background(), models.RunRequest{ProblemID: tt.id, SourcePath: source, Language: "py"})
			if !IsErrorType(err, ErrProvider) {
				t.Fatalf("err = %v", err)
			}
			if report != nil || len(exe.reqs) != 0 {
				t.Fatal("no cases should run")
			}
			if tt.id == "../../../escaped" && tt.provider.calls != 0 {
				t.Fatal("provider must not see an invalid id")
			}
		})
	}
}

func TestRunSamplesNilProblem(t *testing.T) {
	exe := &fakeExecutor{}
	r := NewRunner(plan.NewResolver(nil, plan.WithProber(okProbe)), exe, nil, config.RunnerConfig{}, zaptest.NewLogger(t).Sugar())
	report, err := r.RunSamples(context.Background(), models.RunRequest{
		SourcePath: writeSource(t, "main.js", ""),
		Language:   "js",
	}, nil)
	if !IsErrorType(err, ErrProvider) || report != nil || len(exe.reqs) != 0 {
		t.Fatalf("report = %+v, err = %v", report, err)
	}
}

func TestRunSamplesWithoutCases(t *testing.T) {
	r := NewRunner(plan.NewResolver(nil, plan.WithProber(okProbe)), &fakeExecutor{}, nil, config.RunnerConfig{}, zaptest.NewLogger(t).Sugar())
	report, err := r.RunSamples(context.Background(), models.RunRequest{
		SourcePath: writeSource(t, "main.js", ""),
		Language:   "js",
	}, &models.Problem{ID: "1", Title: "empty"})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Verdicts) != 0 || report.AllPassed() {
		t.Fatalf("report = %+v", report)
	}
}

func TestRunBuildFailureAbortsBeforeCases(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}
	exe := &fakeExecutor{}
	resolver := plan.NewResolver(map[string]config.LanguageOverride{"cpp": {Compiler: "false"}}, plan.WithProber(okProbe))
	r := NewRunner(resolver, exe, &fakeProvider{problem: threeSamples()}, config.RunnerConfig{CompilationTimeoutSec: 5}, zaptest.NewLogger(t).Sugar())

	report, err := r.Run(context.Background(), models.RunRequest{
		ProblemID:  "1000",
		SourcePath: writeSource(t, "main.cpp", "int main( {"),
		Language:   "cpp",
	})
	if !IsErrorType(err, ErrBuild) {
		t.Fatalf("err = %v", err)
	}
	if report != nil || len(exe.reqs) != 0 {
		t.Fatal("no case may start after a failed build")
	}
}

func TestJudge(t *testing.T) {
	sample := models.Sample{Input: "1\n", Output: "a\nb\n"}
	tests := []struct {
		name string
		res  sandbox.ExecuteResult
		want models.VerdictStatus
	}{
		{"exact", sandbox.ExecuteResult{Outcome: sandbox.Completed, Output: "a\nb\n"}, models.Passed},
		{"crlf and padding", sandbox.ExecuteResult{Outcome: sandbox.Completed, Output: "a  \r\nb\r\n\r\n"}, models.Passed},
		{"extra blank line inside", sandbox.ExecuteResult{Outcome: sandbox.Completed, Output: "a\n\nb"}, models.Failed},
		{"stderr mixed in", sandbox.ExecuteResult{Outcome: sandbox.Completed, Output: "a\nwarn\nb\n", Stderr: "warn\n"}, models.Failed},
		{"timed out", sandbox.ExecuteResult{Outcome: sandbox.TimedOut, Output: "a\n"}, models.TimedOut},
		{"errored", sandbox.ExecuteResult{Outcome: sandbox.Errored, Error: "exec: not found"}, models.RuntimeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Judge(sample, &tt.res)
			if v.Status != tt.want {
				t.Fatalf("status = %s, want %s", v.Status, tt.want)
			}
			if v.Status == models.Failed && v.Expected != "a\nb" {
				t.Fatalf("expected = %q", v.Expected)
			}
			if v.Status == models.RuntimeError && v.Error == "" {
				t.Fatal("runtime error must carry message")
			}
		})
	}
}

func requirePython(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("python3"); err != nil {
		if _, err := exec.LookPath("python"); err != nil {
			t.Skip("python not available")
		}
	}
}

func newProcessRunner(t *testing.T, problem *models.Problem) *Runner {
	t.Helper()
	logger := zaptest.NewLogger(t).Sugar()
	return NewRunner(
		plan.NewResolver(nil),
		sandbox.NewExecutor(config.RunnerConfig{WaitDelayMs: 200}, logger),
		&fakeProvider{problem: problem},
		config.RunnerConfig{},
		logger,
	)
}

func TestRunEchoProgramPasses(t *testing.T) {
	requirePython(t)
	inputs := []string{"1\n", "hello world\n\n", "a\nb\nc", ""}
	problem := &models.Problem{ID: "1", Title: "echo"}
	for _, in := range inputs {
		problem.Samples = append(problem.Samples, models.Sample{Input: in, Output: in})
	}
	r := newProcessRunner(t, problem)
	source := writeSource(t, "echo.py", "import sys\nsys.stdout.write(sys.stdin.read())\n")

	report, err := r.Run(context.Background(), models.RunRequest{ProblemID: "1", SourcePath: source, Language: "py"})
	if err != nil {
		t.Fatal(err)
	}
	for _, v := range report.Verdicts {
		if v.Status != models.Passed {
			t.Errorf("case %d = %s (%s)", v.Case, v.Status, v.Error)
		}
	}
}

func TestRunInfiniteLoopTimesOut(t *testing.T) {
	requirePython(t)
	problem := &models.Problem{
		ID:        "2",
		Title:     "loop",
		LimitText: "Time limit: 0.1 seconds",
		Samples:   []models.Sample{{Input: "1\n1", Output: "2\n"}},
	}
	r := newProcessRunner(t, problem)
	source := writeSource(t, "loop.py", "while True:\n    pass\n")

	start := time.Now()
	report, err := r.Run(context.Background(), models.RunRequest{ProblemID: "2", SourcePath: source, Language: "python"})
	if err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)
	if len(report.Verdicts) != 1 || report.Verdicts[0].Status != models.TimedOut {
		t.Fatalf("verdicts = %+v", report.Verdicts)
	}
	if report.TimeLimit != time.Second {
		t.Fatalf("limit should clamp to 1s, got %v", report.TimeLimit)
	}
	if elapsed < time.Second || elapsed > 5*time.Second {
		t.Fatalf("elapsed = %v", elapsed)
	}
}
