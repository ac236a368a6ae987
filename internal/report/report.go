// Package report renders a run report as line-oriented text.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Mirai3103/boj-runner/internal/models"
)

const (
	DefaultWidth   = 40
	DefaultFill    = '-'
	problemURLBase = "https://boj.kr/"
)

// CenterText pads text with fill on both sides up to width runes, the
// smaller half on the left. Text longer than width is returned unchanged.
func CenterText(text string, width int, fill rune) string {
	padding := width - utf8.RuneCountInString(text)
	if padding <= 0 {
		return text
	}
	left := padding / 2
	right := padding - left
	f := string(fill)
	return strings.Repeat(f, left) + text + strings.Repeat(f, right)
}

type Renderer struct {
	Width int
}

func NewRenderer(width int) Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	return Renderer{Width: width}
}

func (r Renderer) center(text string) string {
	return CenterText(text, r.Width, DefaultFill)
}

// Render writes the header, one block per verdict in case order, a summary
// and the closing banner.
func (r Renderer) Render(w io.Writer, rep *models.Report) error {
	_, err := io.WriteString(w, r.String(rep))
	return err
}

func (r Renderer) String(rep *models.Report) string {
	var b strings.Builder
	b.WriteString(r.Header(rep))
	if len(rep.Verdicts) == 0 {
		b.WriteString("No sample cases.\n")
	}
	for _, v := range rep.Verdicts {
		b.WriteString(r.Verdict(v))
	}
	b.WriteString("\n")
	if len(rep.Verdicts) > 0 {
		fmt.Fprintf(&b, "Passed %d/%d\n", rep.PassedCount(), len(rep.Verdicts))
	}
	b.WriteString(r.Footer())
	return b.String()
}

func (r Renderer) Header(rep *models.Report) string {
	var b strings.Builder
	b.WriteString(r.center(fmt.Sprintf(" %s. %s ", rep.ProblemID, rep.Title)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Problem: %s%s\n", problemURLBase, rep.ProblemID)
	fmt.Fprintf(&b, "Time limit: %s\n", formatDuration(rep.TimeLimit))
	if rep.SourcePath != "" {
		fmt.Fprintf(&b, "Source: %s\n", rep.SourcePath)
	}
	b.WriteString("\n")
	return b.String()
}

func (r Renderer) Footer() string {
	return r.center(" Finished ") + "\n"
}

// Verdict renders one case. The expected block of a failed case shows the
// text as the problem page had it.
func (r Renderer) Verdict(v models.Verdict) string {
	var b strings.Builder
	switch v.Status {
	case models.Passed:
		fmt.Fprintf(&b, "✅ Test Case #%d: Passed (%s)\n", v.Case, formatDuration(v.Elapsed))
		b.WriteString(r.center(" Expected==Actual "))
		b.WriteString("\n")
		writeBlock(&b, v.Actual)
	case models.Failed:
		fmt.Fprintf(&b, "❌ Test Case #%d: Failed (%s)\n", v.Case, formatDuration(v.Elapsed))
		b.WriteString(r.center(" Expected "))
		b.WriteString("\n")
		expected := v.RawExpected
		if expected == "" {
			expected = v.Expected
		}
		writeBlock(&b, expected)
		b.WriteString(r.center(" Actual "))
		b.WriteString("\n")
		writeBlock(&b, v.Actual)
	case models.TimedOut:
		fmt.Fprintf(&b, "⏰ Test Case #%d: Timed out (limit %s)\n", v.Case, formatDuration(v.Limit))
	case models.RuntimeError:
		fmt.Fprintf(&b, "💥 Test Case #%d: Runtime error\n", v.Case)
		writeBlock(&b, v.Error)
	default:
		fmt.Fprintf(&b, "Test Case #%d: %s\n", v.Case, v.Status)
	}
	return b.String()
}

func writeBlock(b *strings.Builder, text string) {
	if text == "" {
		return
	}
	b.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		b.WriteString("\n")
	}
}

func formatDuration(d time.Duration) string {
	if d >= time.Second {
		return fmt.Sprintf("%gs", d.Seconds())
	}
	return fmt.Sprintf("%dms", d.Milliseconds())
}
