package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/Mirai3103/boj-runner/internal/core"
	"github.com/Mirai3103/boj-runner/internal/core/plan"
	"github.com/Mirai3103/boj-runner/internal/core/sandbox"
	"github.com/Mirai3103/boj-runner/internal/models"
	natsClient "github.com/Mirai3103/boj-runner/internal/nats"
	"github.com/Mirai3103/boj-runner/internal/problem"
	"github.com/Mirai3103/boj-runner/internal/report"
	"github.com/Mirai3103/boj-runner/internal/scaffold"
	"github.com/Mirai3103/boj-runner/internal/worker"
)

func (a *app) httpClient() *http.Client {
	return &http.Client{Timeout: time.Duration(a.cfg.Provider.TimeoutSec) * time.Second}
}

func (a *app) httpProvider() *problem.HTTPProvider {
	return problem.NewHTTPProvider(a.cfg.Provider, a.httpClient(), a.logger.Named("provider"))
}

func (a *app) provider(useCache bool) core.ProblemProvider {
	p := a.httpProvider()
	if useCache && a.cfg.Cache.Enabled && a.cfg.Cache.Dir != "" {
		return problem.NewCachedProvider(p, a.cfg.Cache.Dir, a.logger.Named("cache"))
	}
	return p
}

func (a *app) newRunner(useCache bool, opts ...core.RunnerOption) *core.Runner {
	resolver := plan.NewResolver(a.cfg.Runner.Languages)
	executor := sandbox.NewExecutor(a.cfg.Runner, a.logger.Named("sandbox"))
	return core.NewRunner(resolver, executor, a.provider(useCache), a.cfg.Runner, a.logger.Named("runner"), opts...)
}

// problemID prefers the --problem flag and falls back to the folder name of
// source.
func (a *app) problemID(source string) (string, error) {
	if id, _ := a.flags.GetString("problem"); id != "" {
		return id, nil
	}
	return problem.NumberFromPath(source)
}

// extension turns the configured language (tag or alias) into the source
// file extension.
func (a *app) extension() string {
	if lang, ok := plan.ParseLanguage(a.cfg.Language); ok {
		return string(lang)
	}
	return a.cfg.Language
}

func (a *app) fail(err error) int {
	fmt.Fprintf(a.stderr, "boj: %v\n", err)
	var runErr *core.RunError
	if errors.As(err, &runErr) && runErr.Details != "" {
		fmt.Fprintln(a.stderr, strings.TrimRight(runErr.Details, "\n"))
	}
	return 1
}

func oneArg(a *app, args []string, what string) (string, bool) {
	if len(args) != 1 {
		fmt.Fprintf(a.stderr, "boj %s: expected exactly one %s\n", a.flags.Name(), what)
		return "", false
	}
	return args[0], true
}

func testCmd(a *app, args []string) int {
	source, ok := oneArg(a, args, "source file")
	if !ok {
		return 2
	}
	if abs, err := filepath.Abs(source); err == nil {
		source = abs
	}
	id, err := a.problemID(source)
	if err != nil {
		return a.fail(&core.RunError{Type: core.ErrProvider, Message: "problem number not found", Cause: err})
	}
	noCache, _ := a.flags.GetBool("no-cache")

	var opts []core.RunnerOption
	var publisher *natsClient.Publisher
	if a.cfg.NATS.Enabled {
		nc, err := connectNATS(a.cfg.NATS.URL, a.logger)
		if err != nil {
			a.logger.Warnw("NATS unavailable, verdicts will not be published", "error", err)
		} else {
			defer nc.Drain()
			publisher = natsClient.NewPublisher(nc, a.cfg.NATS, a.logger.Named("nats"))
			opts = append(opts, core.WithVerdictSink(publisher))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := models.RunRequest{ProblemID: id, SourcePath: source, Language: a.cfg.Language}
	rep, err := a.newRunner(!noCache, opts...).Run(ctx, req)
	renderer := report.NewRenderer(a.cfg.Report.Width)
	if publisher != nil {
		if perr := publisher.PublishResult(worker.Result(req, rep, err, renderer)); perr != nil {
			a.logger.Warnw("failed to publish run result", "error", perr)
		}
	}
	if err != nil {
		return a.fail(err)
	}
	if err := renderer.Render(a.stdout, rep); err != nil {
		return a.fail(err)
	}
	if !rep.AllPassed() {
		return 1
	}
	return 0
}

func createCmd(a *app, args []string) int {
	id, ok := oneArg(a, args, "problem number")
	if !ok {
		return 2
	}
	root, _ := a.flags.GetString("root")
	overwrite, _ := a.flags.GetBool("overwrite")

	p, err := a.provider(true).Fetch(context.Background(), id)
	if err != nil {
		return a.fail(&core.RunError{Type: core.ErrProvider, Message: "failed to fetch problem " + id, Cause: err})
	}
	path, err := scaffold.Create(root, id, p, a.extension(), scaffold.CreateOptions{
		Author:    a.cfg.Author,
		Overwrite: overwrite,
	})
	if errors.Is(err, scaffold.ErrFileExists) {
		fmt.Fprintf(a.stderr, "%s already exists; use --overwrite to replace it\n", path)
		return 1
	}
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintln(a.stdout, path)
	return 0
}

func headerCmd(a *app, args []string) int {
	source, ok := oneArg(a, args, "source file")
	if !ok {
		return 2
	}
	if a.cfg.Author == "" {
		return a.fail(errors.New("author is not configured"))
	}
	id, err := a.problemID(source)
	if err != nil {
		return a.fail(err)
	}
	ext := strings.TrimPrefix(filepath.Ext(source), ".")
	inserted, err := scaffold.InsertHeader(source, scaffold.NewHeaderInfo(id, a.cfg.Author), ext, time.Now())
	if err != nil {
		return a.fail(err)
	}
	if !inserted {
		fmt.Fprintln(a.stderr, "header comment already exists")
		return 1
	}
	return 0
}

func workflowCmd(a *app, args []string) int {
	root, _ := a.flags.GetString("root")
	path, created, err := scaffold.WriteWorkflow(root, a.cfg.Author, a.extension())
	if err != nil {
		return a.fail(err)
	}
	if !created {
		fmt.Fprintf(a.stdout, "%s already exists, left unchanged\n", path)
		return 0
	}
	fmt.Fprintln(a.stdout, path)
	return 0
}

func tierCmd(a *app, args []string) int {
	id, ok := oneArg(a, args, "problem number")
	if !ok {
		return 2
	}
	client := problem.NewTierClient(a.cfg.Provider.TierURL, a.httpClient())
	tier, err := client.Fetch(context.Background(), id)
	if err != nil {
		return a.fail(err)
	}
	fmt.Fprintf(a.stdout, "%s: %s\n%s\n", id, tier.Name, tier.BadgeURL)
	return 0
}

func showCmd(a *app, args []string) int {
	id, ok := oneArg(a, args, "problem number")
	if !ok {
		return 2
	}
	noCache, _ := a.flags.GetBool("no-cache")
	ctx := context.Background()

	p, err := a.provider(!noCache).Fetch(ctx, id)
	if err != nil {
		return a.fail(&core.RunError{Type: core.ErrProvider, Message: "failed to fetch problem " + id, Cause: err})
	}
	var tierName string
	if a.cfg.Provider.TierURL != "" {
		tier, err := problem.NewTierClient(a.cfg.Provider.TierURL, a.httpClient()).Fetch(ctx, id)
		if err != nil {
			a.logger.Debugw("tier lookup failed", "problem", id, "error", err)
		} else {
			tierName = tier.Name
		}
	}
	fmt.Fprint(a.stdout, report.NewRenderer(a.cfg.Report.Width).Problem(p, tierName))
	return 0
}

func statusCmd(a *app, args []string) int {
	id, ok := oneArg(a, args, "problem number")
	if !ok {
		return 2
	}
	user, _ := a.flags.GetString("user")
	if user == "" {
		user = a.cfg.Author
	}
	if user == "" {
		return a.fail(errors.New("no user given; set --user or author"))
	}
	languageID := 0
	if all, _ := a.flags.GetBool("all-languages"); !all {
		lid, ok := scaffold.LanguageID(a.extension())
		if !ok {
			return a.fail(fmt.Errorf("no judge language id for %q; use --all-languages", a.cfg.Language))
		}
		languageID = lid
	}

	subs, err := a.httpProvider().Submissions(context.Background(), id, user, languageID)
	if err != nil {
		return a.fail(&core.RunError{Type: core.ErrProvider, Message: "failed to fetch submissions for " + id, Cause: err})
	}
	if err := report.NewRenderer(a.cfg.Report.Width).Submissions(a.stdout, id, user, subs); err != nil {
		return a.fail(err)
	}
	return 0
}
