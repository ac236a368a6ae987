package problem

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/Mirai3103/boj-runner/internal/models"
)

// ErrNoStatusTable is returned when the status page has no submissions table.
var ErrNoStatusTable = errors.New("status table not found")

// Submissions lists userID's submissions for a problem, newest first.
// languageID filters by judge language id when positive.
func (p *HTTPProvider) Submissions(ctx context.Context, problemID, userID string, languageID int) ([]models.Submission, error) {
	if err := checkID(problemID); err != nil {
		return nil, err
	}
	if userID == "" {
		return nil, errors.New("user id is required")
	}
	q := url.Values{}
	q.Set("problem_id", problemID)
	q.Set("user_id", userID)
	if languageID > 0 {
		q.Set("language_id", strconv.Itoa(languageID))
	}
	body, err := p.fetchPage(ctx, p.baseURL+"/status?"+q.Encode())
	if err != nil {
		return nil, err
	}
	subs, err := ParseStatus(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse status of %s for %s: %w", problemID, userID, err)
	}
	p.logger.Debugw("submissions fetched", "problem", problemID, "user", userID, "count", len(subs))
	return subs, nil
}

// ParseStatus reads the rows of #status-table. Columns: id, user, problem,
// result, memory, time, language, code length, submitted at.
func ParseStatus(r io.Reader) ([]models.Submission, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*html.Node)
	indexIDs(doc, byID)
	table, ok := byID["status-table"]
	if !ok {
		return nil, ErrNoStatusTable
	}

	subs := []models.Submission{}
	tbody := findElement(table, "tbody")
	if tbody == nil {
		return subs, nil
	}
	for tr := tbody.FirstChild; tr != nil; tr = tr.NextSibling {
		if tr.Type != html.ElementNode || tr.Data != "tr" {
			continue
		}
		cells := children(tr, "td")
		if len(cells) < 9 {
			continue
		}
		cell := func(i int) string { return strings.TrimSpace(textOf(cells[i])) }
		problemLink := findElement(cells[2], "a")
		result := findByClass(cells[3], "result-text")
		subs = append(subs, models.Submission{
			ID:           cell(0),
			User:         cell(1),
			ProblemID:    cell(2),
			ProblemTitle: attr(problemLink, "title"),
			Result:       strings.TrimSpace(textOf(result)),
			ResultClass:  resultClass(attr(result, "class")),
			Memory:       cell(4),
			Time:         cell(5),
			Language:     cell(6),
			CodeLength:   cell(7),
			SubmittedAt:  attr(findElement(cells[8], "a"), "title"),
		})
	}
	return subs, nil
}

func children(n *html.Node, tag string) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			out = append(out, c)
		}
	}
	return out
}

func attr(n *html.Node, key string) string {
	if n == nil {
		return ""
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findByClass(n *html.Node, class string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode {
		for _, c := range strings.Fields(attr(n, "class")) {
			if c == class {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
}

// resultClass picks the "result-xx" class out of a class list.
func resultClass(classes string) string {
	for _, c := range strings.Fields(classes) {
		if strings.HasPrefix(c, "result-") && c != "result-text" {
			return c
		}
	}
	return ""
}
