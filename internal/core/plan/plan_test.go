package plan

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Mirai3103/boj-runner/internal/config"
)

func okProbe(context.Context, string) error { return nil }

func TestResolveCompiledLanguages(t *testing.T) {
	r := NewResolver(nil, WithProber(okProbe))
	ctx := context.Background()

	p, err := r.Resolve(ctx, "c", "/work/1000/main.c")
	if err != nil {
		t.Fatalf("c: %v", err)
	}
	if p.Artifact != "/work/1000/main" {
		t.Fatalf("c artifact = %q", p.Artifact)
	}
	if got, want := p.Build.Command(), []string{"gcc", "/work/1000/main.c", "-o", "/work/1000/main"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("c build = %v, want %v", got, want)
	}
	if p.Run.Path != "/work/1000/main" || len(p.Run.Args) != 0 {
		t.Fatalf("c run = %+v", p.Run)
	}

	p, err = r.Resolve(ctx, "cpp", "/work/1000/A+B.cpp")
	if err != nil {
		t.Fatalf("cpp: %v", err)
	}
	if got, want := p.Build.Command(), []string{"g++", "-std=c++17", "/work/1000/A+B.cpp", "-o", "/work/1000/A+B"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("cpp build = %v, want %v", got, want)
	}
	if p.Run.Path != "/work/1000/A+B" {
		t.Fatalf("cpp run = %+v", p.Run)
	}
}

func TestResolveRust(t *testing.T) {
	r := NewResolver(nil, WithProber(okProbe))
	source := filepath.Join("/work", "1000", "A Plus-B.rs")
	p, err := r.Resolve(context.Background(), "rs", source)
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join("/work", "1000")
	if p.Build.Dir != dir || p.Run.Dir != dir {
		t.Fatalf("rust dirs build=%q run=%q", p.Build.Dir, p.Run.Dir)
	}
	want := []string{"rustc", "--crate-name", "a_plus_b", source, "-o", "./a_plus_b.out"}
	if got := p.Build.Command(); !reflect.DeepEqual(got, want) {
		t.Fatalf("rust build = %v, want %v", got, want)
	}
	if len(p.Build.Env) != 1 || p.Build.Env[0] != "RUSTC_FLAGS=-D tempdir=/tmp" {
		t.Fatalf("rust env = %v", p.Build.Env)
	}
	if p.Run.Path != filepath.Join(dir, "a_plus_b.out") {
		t.Fatalf("rust run = %q", p.Run.Path)
	}
}

func TestCrateName(t *testing.T) {
	tests := map[string]string{
		"/x/main.rs":          "main",
		"/x/Hello World!!.rs": "hello_world_",
		"/x/1000번 A+B.rs":     "1000_a_b",
	}
	for in, want := range tests {
		if got := CrateName(in); got != want {
			t.Errorf("CrateName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestResolveInterpreted(t *testing.T) {
	r := NewResolver(nil, WithProber(okProbe))
	ctx := context.Background()

	p, err := r.Resolve(ctx, "java", "/work/1000/Main.java")
	if err != nil {
		t.Fatal(err)
	}
	if p.Build != nil {
		t.Fatal("java should have no build step")
	}
	if got, want := p.Run.Command(), []string{"java", "-cp", "/work/1000", "/work/1000/Main.java"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("java run = %v", got)
	}

	p, err = r.Resolve(ctx, "javascript", "/work/1000/main.js")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := p.Run.Command(), []string{"node", "/work/1000/main.js"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("js run = %v", got)
	}
	if p.Language != JavaScript {
		t.Fatalf("alias not canonicalized: %q", p.Language)
	}
}

func TestPythonFallsBackWhenProbeFails(t *testing.T) {
	var probed []string
	failing := func(_ context.Context, bin string) error {
		probed = append(probed, bin)
		return errors.New("exec: not found")
	}
	r := NewResolver(nil, WithProber(failing))
	p, err := r.Resolve(context.Background(), "py", "/w/main.py")
	if err != nil {
		t.Fatalf("probe failure must not surface: %v", err)
	}
	if p.Run.Path != "python" {
		t.Fatalf("run = %q, want fallback python", p.Run.Path)
	}
	if len(probed) != 1 || probed[0] != "python3" {
		t.Fatalf("probed = %v", probed)
	}

	r = NewResolver(nil, WithProber(okProbe))
	p, _ = r.Resolve(context.Background(), "py", "/w/main.py")
	if p.Run.Path != "python3" {
		t.Fatalf("run = %q, want python3", p.Run.Path)
	}
}

func TestResolveUnsupported(t *testing.T) {
	r := NewResolver(nil, WithProber(okProbe))
	for _, tag := range []string{"haskell", "", "  "} {
		p, err := r.Resolve(context.Background(), tag, "/w/main.hs")
		if !errors.Is(err, ErrUnsupportedLanguage) {
			t.Errorf("tag %q: err = %v", tag, err)
		}
		if p != nil {
			t.Errorf("tag %q: plan should be nil", tag)
		}
	}
}

func TestOverrides(t *testing.T) {
	r := NewResolver(map[string]config.LanguageOverride{
		"cpp": {Compiler: "clang++", Flags: `-O2 -DNAME="a b"`},
		"py":  {Interpreter: "pypy3"},
	}, WithProber(okProbe))

	p, err := r.Resolve(context.Background(), "cpp", "/w/main.cpp")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"clang++", "-std=c++17", "-O2", "-DNAME=a b", "/w/main.cpp", "-o", "/w/main"}
	if got := p.Build.Command(); !reflect.DeepEqual(got, want) {
		t.Fatalf("build = %v, want %v", got, want)
	}

	p, _ = r.Resolve(context.Background(), "py", "/w/main.py")
	if p.Run.Path != "pypy3" {
		t.Fatalf("python interpreter override ignored: %q", p.Run.Path)
	}
}

func TestBadFlagsAreReported(t *testing.T) {
	r := NewResolver(map[string]config.LanguageOverride{"c": {Flags: `-D"unterminated`}}, WithProber(okProbe))
	if _, err := r.Resolve(context.Background(), "c", "/w/main.c"); err == nil {
		t.Fatal("expected flag parse error")
	}
}

func TestSupported(t *testing.T) {
	got := Supported()
	want := []Language{C, CPP, Java, JavaScript, Python, Rust}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Supported = %v, want %v", got, want)
	}
}
