package problem

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/Mirai3103/boj-runner/internal/config"
	"github.com/Mirai3103/boj-runner/internal/core/limit"
)

func readFixture(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/1000.html")
	if err != nil {
		t.Fatal(err)
	}
	return data
}

func TestParse(t *testing.T) {
	f, err := os.Open("testdata/1000.html")
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if p.Title != "A+B" {
		t.Fatalf("title = %q", p.Title)
	}
	if p.LimitText != "2 초" {
		t.Fatalf("limit text = %q", p.LimitText)
	}
	if limit.Parse(p.LimitText) != 2.0 {
		t.Fatalf("limit does not parse: %q", p.LimitText)
	}
	if !strings.Contains(p.Description, "A+B를 출력하는") {
		t.Fatalf("description = %q", p.Description)
	}
	if !strings.Contains(p.InputDesc, "0 < A, B < 10") {
		t.Fatalf("input = %q", p.InputDesc)
	}
	// sample 3 has no output and ends the list
	if len(p.Samples) != 2 {
		t.Fatalf("samples = %d", len(p.Samples))
	}
	if p.Samples[0].Input != "1 2\n" || p.Samples[0].Output != "3\n" {
		t.Fatalf("sample 1 = %+v", p.Samples[0])
	}
	if p.Samples[1].Explanation != "5 더하기 5" || p.Samples[0].Explanation != "" {
		t.Fatalf("explanations = %q / %q", p.Samples[0].Explanation, p.Samples[1].Explanation)
	}
	if err := Validate(p); err != nil {
		t.Fatalf("fixture should be valid: %v", err)
	}
}

func TestParseWithoutTitle(t *testing.T) {
	if _, err := Parse(strings.NewReader("<html><body>404</body></html>")); err != ErrNoTitle {
		t.Fatalf("err = %v", err)
	}
}

func TestHTTPProviderRetriesAccepted(t *testing.T) {
	page := readFixture(t)
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/problem/1000" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("user agent = %q", r.Header.Get("User-Agent"))
		}
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusAccepted)
			return
		}
		w.Write(page)
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.ProviderConfig{
		BaseURL:     srv.URL + "/",
		UserAgent:   "test-agent",
		MaxRetries:  3,
		RetryWaitMs: 1,
		TimeoutSec:  5,
		RatePerSec:  1000,
	}, srv.Client(), zaptest.NewLogger(t).Sugar())

	problem, err := p.Fetch(context.Background(), "1000")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if problem.ID != "1000" || problem.Title != "A+B" || len(problem.Samples) != 2 {
		t.Fatalf("problem = %+v", problem)
	}
	if hits.Load() != 2 {
		t.Fatalf("hits = %d", hits.Load())
	}
}

func TestHTTPProviderGivesUpAfterRetries(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.ProviderConfig{BaseURL: srv.URL, MaxRetries: 3, RetryWaitMs: 1, RatePerSec: 1000}, srv.Client(), nil)
	if _, err := p.Fetch(context.Background(), "1"); err == nil {
		t.Fatal("expected parse error for empty page")
	}
	if hits.Load() != 3 {
		t.Fatalf("hits = %d", hits.Load())
	}
}

func TestHTTPProviderRejectsInvalidID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL)
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.ProviderConfig{BaseURL: srv.URL}, srv.Client(), nil)
	if _, err := p.Fetch(context.Background(), "1000?x=../"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("err = %v", err)
	}
}

func TestHTTPProviderPacesRequests(t *testing.T) {
	page := readFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(page)
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.ProviderConfig{BaseURL: srv.URL, RatePerSec: 10}, srv.Client(), nil)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := p.Fetch(context.Background(), "1000"); err != nil {
			t.Fatal(err)
		}
	}
	// burst of one, then 100ms per request
	if elapsed := time.Since(start); elapsed < 150*time.Millisecond {
		t.Fatalf("3 fetches took %s", elapsed)
	}
}

func TestHTTPProviderLimiterHonoursContext(t *testing.T) {
	page := readFixture(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(page)
	}))
	defer srv.Close()

	p := NewHTTPProvider(config.ProviderConfig{BaseURL: srv.URL, RatePerSec: 0.01}, srv.Client(), nil)
	if _, err := p.Fetch(context.Background(), "1000"); err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := p.Fetch(ctx, "1000"); err == nil {
		t.Fatal("expected the limiter to give up on the deadline")
	}
}
