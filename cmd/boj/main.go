// Command boj tests solutions against judge samples and scaffolds solution
// folders. `boj serve` runs the same runner as a NATS worker.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/Mirai3103/boj-runner/internal/config"
	"github.com/Mirai3103/boj-runner/internal/core/plan"
	"github.com/Mirai3103/boj-runner/internal/logging"
)

const usage = `Usage: boj <command> [flags] [args]

Commands:
  test <source>     run a solution against the problem's samples
  create <id>       create "{id}번: {title}/{title}.{ext}" with a banner
  header <source>   prepend the banner to an existing source file
  workflow          write .github/workflows/workflow.yml
  show <id>         print the statement and samples of a problem
  status <id>       list your submissions to a problem
  tier <id>         show the solved.ac tier of a problem
  serve             process run requests from NATS
`

type command func(app *app, args []string) int

var commands = map[string]command{
	"test":     testCmd,
	"create":   createCmd,
	"header":   headerCmd,
	"workflow": workflowCmd,
	"show":     showCmd,
	"status":   statusCmd,
	"tier":     tierCmd,
	"serve":    serveCmd,
}

// commandFlags declares the flags each command accepts besides the common
// ones; they are bound to config keys where a key exists.
var commandFlags = map[string]func(fs *pflag.FlagSet){
	"test": func(fs *pflag.FlagSet) {
		fs.StringP("problem", "p", "", "problem number (default: read from the source's folder name)")
		fs.Bool("no-cache", false, "always fetch the problem page")
	},
	"create": func(fs *pflag.FlagSet) {
		fs.String("root", ".", "workspace root")
		fs.Bool("overwrite", false, "replace an existing solution file")
	},
	"header": func(fs *pflag.FlagSet) {
		fs.StringP("problem", "p", "", "problem number (default: read from the source's folder name)")
	},
	"workflow": func(fs *pflag.FlagSet) {
		fs.String("root", ".", "workspace root")
	},
	"show": func(fs *pflag.FlagSet) {
		fs.Bool("no-cache", false, "always fetch the problem page")
	},
	"status": func(fs *pflag.FlagSet) {
		fs.StringP("user", "u", "", "judge user id (default: author)")
		fs.Bool("all-languages", false, "do not filter by the configured language")
	},
	"tier":  func(fs *pflag.FlagSet) {},
	"serve": func(fs *pflag.FlagSet) {},
}

type app struct {
	cfg    *config.Config
	logger *zap.SugaredLogger
	flags  *pflag.FlagSet
	stdout io.Writer
	stderr io.Writer
}

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "error loading .env file: %v\n", err)
	}
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		fmt.Fprint(stdout, usage)
		return 0
	}
	name := args[0]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", name, usage)
		return 2
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.String("config", "", "config file (default: config.yaml in ./configs, . or ~/.config/boj-runner)")
	fs.StringP("language", "l", "", "language tag: "+languageList())
	fs.String("author", "", "judge user id shown in banners and workflows")
	fs.String("log-level", "", "debug, info, warn or error")
	commandFlags[name](fs)
	if err := fs.Parse(args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	a, err := newApp(fs, stdout, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "boj: %v\n", err)
		return 1
	}
	defer a.logger.Sync()
	return cmd(a, fs.Args())
}

func newApp(fs *pflag.FlagSet, stdout, stderr io.Writer) (*app, error) {
	v := config.New()
	for key, flag := range map[string]string{"language": "language", "author": "author", "log.level": "log-level"} {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return nil, err
		}
	}
	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	cfg, used, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if used != "" {
		logger.Debugw("configuration loaded", "file", used)
	}
	return &app{cfg: cfg, logger: logger, flags: fs, stdout: stdout, stderr: stderr}, nil
}

func languageList() string {
	var tags []string
	for _, l := range plan.Supported() {
		tags = append(tags, string(l))
	}
	return strings.Join(tags, ", ")
}
