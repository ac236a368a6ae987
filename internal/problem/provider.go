// Package problem fetches problem statements and samples from the judge site
// and caches them on disk.
package problem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/Mirai3103/boj-runner/internal/config"
	"github.com/Mirai3103/boj-runner/internal/models"
)

const (
	defaultMaxRetries = 3
	defaultRetryWait  = time.Second
	defaultRatePerSec = 2.0
)

// HTTPProvider scrapes problem pages.
type HTTPProvider struct {
	client     *http.Client
	baseURL    string
	userAgent  string
	maxRetries int
	retryWait  time.Duration
	limiter    *rate.Limiter
	logger     *zap.SugaredLogger
}

func NewHTTPProvider(cfg config.ProviderConfig, client *http.Client, logger *zap.SugaredLogger) *HTTPProvider {
	if client == nil {
		client = &http.Client{Timeout: time.Duration(cfg.TimeoutSec) * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	p := &HTTPProvider{
		client:     client,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		retryWait:  time.Duration(cfg.RetryWaitMs) * time.Millisecond,
		logger:     logger,
	}
	if p.maxRetries <= 0 {
		p.maxRetries = defaultMaxRetries
	}
	if p.retryWait <= 0 {
		p.retryWait = defaultRetryWait
	}
	perSec := cfg.RatePerSec
	if perSec <= 0 {
		perSec = defaultRatePerSec
	}
	p.limiter = rate.NewLimiter(rate.Limit(perSec), 1)
	return p
}

// Fetch downloads and parses problem id. The site answers 202 while a page
// is being prepared; those responses are retried.
func (p *HTTPProvider) Fetch(ctx context.Context, id string) (*models.Problem, error) {
	if err := checkID(id); err != nil {
		return nil, err
	}
	body, err := p.fetchPage(ctx, fmt.Sprintf("%s/problem/%s", p.baseURL, id))
	if err != nil {
		return nil, err
	}

	problem, err := Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse problem %s: %w", id, err)
	}
	problem.ID = id
	p.logger.Debugw("problem fetched", "problem", id, "title", problem.Title, "samples", len(problem.Samples))
	return problem, nil
}

// fetchPage GETs url, retrying while the site answers 202 (page still
// being prepared). Other statuses are returned as-is for parsing.
func (p *HTTPProvider) fetchPage(ctx context.Context, url string) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		status, data, err := p.get(ctx, url)
		if err != nil {
			return nil, err
		}
		if status == http.StatusAccepted && attempt < p.maxRetries {
			p.logger.Debugw("page not ready, retrying", "url", url, "attempt", attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(p.retryWait):
			}
			continue
		}
		if status != http.StatusOK {
			p.logger.Warnw("unexpected status, parsing anyway", "url", url, "status", status)
		}
		return data, nil
	}
}

// get is paced by the provider's limiter, retries included.
func (p *HTTPProvider) get(ctx context.Context, url string) (int, []byte, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, err
	}
	if p.userAgent != "" {
		req.Header.Set("User-Agent", p.userAgent)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, data, nil
}

// ErrNoTitle is returned by Parse when the page has no problem title, which
// is what the site serves for unknown problem numbers.
var ErrNoTitle = errors.New("problem title not found")

// Parse reads a problem page. Sections are located by element id; sample
// pairs are read as sample-input-N / sample-output-N until one is missing.
func Parse(r io.Reader) (*models.Problem, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*html.Node)
	indexIDs(doc, byID)

	title := strings.TrimSpace(textOf(byID["problem_title"]))
	if title == "" {
		return nil, ErrNoTitle
	}
	problem := &models.Problem{
		Title:       title,
		LimitText:   timeLimitCell(byID["problem-info"]),
		Info:        strings.TrimSpace(textOf(byID["problem-info"])),
		Description: strings.TrimSpace(textOf(byID["problem_description"])),
		InputDesc:   strings.TrimSpace(textOf(byID["problem_input"])),
		OutputDesc:  strings.TrimSpace(textOf(byID["problem_output"])),
		Limit:       strings.TrimSpace(textOf(byID["problem_limit"])),
		Hint:        strings.TrimSpace(textOf(byID["problem_hint"])),
		Source:      strings.TrimSpace(textOf(byID["source"])),
	}
	for i := 1; ; i++ {
		in, okIn := byID[fmt.Sprintf("sample-input-%d", i)]
		out, okOut := byID[fmt.Sprintf("sample-output-%d", i)]
		if !okIn || !okOut {
			break
		}
		problem.Samples = append(problem.Samples, models.Sample{
			Input:       textOf(in),
			Output:      textOf(out),
			Explanation: strings.TrimSpace(textOf(byID[fmt.Sprintf("sample_explain_%d", i)])),
		})
	}
	return problem, nil
}

func indexIDs(n *html.Node, byID map[string]*html.Node) {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "id" {
				if _, seen := byID[a.Val]; !seen {
					byID[a.Val] = n
				}
				break
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		indexIDs(c, byID)
	}
}

// textOf concatenates the text below n. <br> becomes a newline.
func textOf(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

// timeLimitCell returns the first <td> of the info table, which holds the
// time limit ("1 초").
func timeLimitCell(info *html.Node) string {
	td := findElement(info, "td")
	return strings.TrimSpace(textOf(td))
}

func findElement(n *html.Node, tag string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode && n.Data == tag {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}
