// Package plan maps a language tag and a source file to the concrete build
// and run commands needed to execute it.
package plan

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/google/shlex"

	"github.com/Mirai3103/boj-runner/internal/config"
)

type Language string

const (
	C          Language = "c"
	CPP        Language = "cpp"
	Java       Language = "java"
	JavaScript Language = "js"
	Rust       Language = "rs"
	Python     Language = "py"
)

// ErrUnsupportedLanguage is returned by Resolve for tags outside the table.
var ErrUnsupportedLanguage = errors.New("unsupported language")

var aliases = map[string]Language{
	"c":          C,
	"cpp":        CPP,
	"c++":        CPP,
	"cc":         CPP,
	"java":       Java,
	"js":         JavaScript,
	"javascript": JavaScript,
	"node":       JavaScript,
	"rs":         Rust,
	"rust":       Rust,
	"py":         Python,
	"python":     Python,
	"python3":    Python,
}

// ParseLanguage resolves a tag or one of its aliases, case-insensitively.
func ParseLanguage(tag string) (Language, bool) {
	lang, ok := aliases[strings.ToLower(strings.TrimSpace(tag))]
	return lang, ok
}

// Step is one process invocation. Env entries are added on top of the
// parent environment.
type Step struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

// Command returns Path followed by Args.
func (s Step) Command() []string {
	return append([]string{s.Path}, s.Args...)
}

func (s Step) String() string {
	return strings.Join(s.Command(), " ")
}

// Plan is derived from the tag and the source path only; it is never stored.
type Plan struct {
	Language Language
	Source   string
	Artifact string // empty for interpreted languages
	Build    *Step  // nil when nothing has to be compiled
	Run      Step
}

// Prober checks whether an interpreter binary is usable.
type Prober func(ctx context.Context, binary string) error

// VersionProbe runs "<binary> --version" and reports its error.
func VersionProbe(ctx context.Context, binary string) error {
	return exec.CommandContext(ctx, binary, "--version").Run()
}

type builder func(r *Resolver, ctx context.Context, source string) (*Plan, error)

var builders = map[Language]builder{
	C:          buildC,
	CPP:        buildCPP,
	Java:       buildJava,
	JavaScript: buildJavaScript,
	Rust:       buildRust,
	Python:     buildPython,
}

// Supported lists the canonical tags in a stable order.
func Supported() []Language {
	langs := make([]Language, 0, len(builders))
	for l := range builders {
		langs = append(langs, l)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i] < langs[j] })
	return langs
}

// Resolver builds Plans. It holds no per-run state and may be shared.
type Resolver struct {
	overrides map[string]config.LanguageOverride
	probe     Prober
}

type Option func(*Resolver)

// WithProber replaces the interpreter probe, mostly for tests.
func WithProber(p Prober) Option {
	return func(r *Resolver) { r.probe = p }
}

func NewResolver(overrides map[string]config.LanguageOverride, opts ...Option) *Resolver {
	r := &Resolver{overrides: overrides, probe: VersionProbe}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the plan for tag and the absolute source path. Unknown
// tags yield an error wrapping ErrUnsupportedLanguage and no plan.
func (r *Resolver) Resolve(ctx context.Context, tag, source string) (*Plan, error) {
	lang, ok := ParseLanguage(tag)
	if !ok {
		if strings.TrimSpace(tag) == "" {
			return nil, fmt.Errorf("%w: language is not set", ErrUnsupportedLanguage)
		}
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, tag)
	}
	p, err := builders[lang](r, ctx, source)
	if err != nil {
		return nil, err
	}
	p.Language = lang
	p.Source = source
	return p, nil
}

func (r *Resolver) override(lang Language) config.LanguageOverride {
	if r.overrides == nil {
		return config.LanguageOverride{}
	}
	return r.overrides[string(lang)]
}

func (r *Resolver) compiler(lang Language, def string) string {
	if c := r.override(lang).Compiler; c != "" {
		return c
	}
	return def
}

func (r *Resolver) interpreter(lang Language, def string) string {
	if c := r.override(lang).Interpreter; c != "" {
		return c
	}
	return def
}

func (r *Resolver) flags(lang Language) ([]string, error) {
	raw := r.override(lang).Flags
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	fields, err := shlex.Split(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s flags %q: %w", lang, raw, err)
	}
	return fields, nil
}

// stripExt drops the final extension; a source without one gets ".out" so
// the compiler never writes over it.
func stripExt(source string) string {
	artifact := strings.TrimSuffix(source, filepath.Ext(source))
	if artifact == source {
		artifact += ".out"
	}
	return artifact
}

func buildC(r *Resolver, _ context.Context, source string) (*Plan, error) {
	flags, err := r.flags(C)
	if err != nil {
		return nil, err
	}
	artifact := stripExt(source)
	args := append(flags, source, "-o", artifact)
	return &Plan{
		Artifact: artifact,
		Build:    &Step{Path: r.compiler(C, "gcc"), Args: args},
		Run:      Step{Path: artifact},
	}, nil
}

func buildCPP(r *Resolver, _ context.Context, source string) (*Plan, error) {
	flags, err := r.flags(CPP)
	if err != nil {
		return nil, err
	}
	artifact := stripExt(source)
	if strings.HasSuffix(source, ".cpp") {
		artifact = source[:len(source)-len(".cpp")]
	}
	args := append([]string{"-std=c++17"}, flags...)
	args = append(args, source, "-o", artifact)
	return &Plan{
		Artifact: artifact,
		Build:    &Step{Path: r.compiler(CPP, "g++"), Args: args},
		Run:      Step{Path: artifact},
	}, nil
}

func buildJava(r *Resolver, _ context.Context, source string) (*Plan, error) {
	return &Plan{
		Run: Step{Path: r.interpreter(Java, "java"), Args: []string{"-cp", filepath.Dir(source), source}},
	}, nil
}

func buildJavaScript(r *Resolver, _ context.Context, source string) (*Plan, error) {
	return &Plan{
		Run: Step{Path: r.interpreter(JavaScript, "node"), Args: []string{source}},
	}, nil
}

func buildPython(r *Resolver, ctx context.Context, source string) (*Plan, error) {
	bin := r.interpreter(Python, "python3")
	if err := r.probe(ctx, bin); err != nil {
		bin = "python"
	}
	return &Plan{
		Run: Step{Path: bin, Args: []string{source}},
	}, nil
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// CrateName derives the rustc crate name from a source path.
func CrateName(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), ".rs")
	return strings.ToLower(nonAlnum.ReplaceAllString(base, "_"))
}

func buildRust(r *Resolver, _ context.Context, source string) (*Plan, error) {
	flags, err := r.flags(Rust)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(source)
	crate := CrateName(source)
	out := "./" + crate + ".out"
	args := append([]string{"--crate-name", crate}, flags...)
	args = append(args, source, "-o", out)
	artifact := filepath.Join(dir, crate+".out")
	return &Plan{
		Artifact: artifact,
		Build: &Step{
			Path: r.compiler(Rust, "rustc"),
			Args: args,
			Dir:  dir,
			Env:  []string{"RUSTC_FLAGS=-D tempdir=/tmp"},
		},
		Run: Step{Path: artifact, Dir: dir},
	}, nil
}
