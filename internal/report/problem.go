package report

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/Mirai3103/boj-runner/internal/models"
)

// Problem renders a statement with its samples. tier is omitted when empty.
func (r Renderer) Problem(p *models.Problem, tier string) string {
	var b strings.Builder
	b.WriteString(r.center(fmt.Sprintf(" %s번: %s ", p.ID, p.Title)))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Problem: %s%s\n", problemURLBase, p.ID)
	if tier != "" {
		fmt.Fprintf(&b, "Tier: %s\n", tier)
	}
	if p.LimitText != "" {
		fmt.Fprintf(&b, "Time limit: %s\n", p.LimitText)
	}

	r.section(&b, "문제", p.Description)
	r.section(&b, "입력", p.InputDesc)
	r.section(&b, "출력", p.OutputDesc)
	r.section(&b, "제한", p.Limit)
	for i, s := range p.Samples {
		r.section(&b, fmt.Sprintf("예제 입력 %d", i+1), s.Input)
		r.section(&b, fmt.Sprintf("예제 출력 %d", i+1), s.Output)
		if s.Explanation != "" {
			b.WriteString("\n")
			writeBlock(&b, s.Explanation)
		}
	}
	r.section(&b, "힌트", p.Hint)
	r.section(&b, "출처", p.Source)
	return b.String()
}

// section skips empty bodies. Sample bodies are kept verbatim so that
// trailing spaces survive a copy from the terminal.
func (r Renderer) section(b *strings.Builder, title, body string) {
	if body == "" {
		return
	}
	b.WriteString("\n")
	b.WriteString(r.center(" " + title + " "))
	b.WriteString("\n")
	writeBlock(b, body)
}

// Submissions writes one row per submission under a centered header.
func (r Renderer) Submissions(w io.Writer, problemID, user string, subs []models.Submission) error {
	if _, err := fmt.Fprintf(w, "%s\n", r.center(fmt.Sprintf(" %s / %s ", problemID, user))); err != nil {
		return err
	}
	if len(subs) == 0 {
		_, err := io.WriteString(w, "No submissions.\n")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tRESULT\tMEMORY\tTIME\tLANGUAGE\tLENGTH\tSUBMITTED")
	for _, s := range subs {
		mark := "  "
		if s.Accepted() {
			mark = "✅"
		}
		fmt.Fprintf(tw, "%s\t%s %s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, mark, s.Result, unit(s.Memory, "KB"), unit(s.Time, "ms"), s.Language, unit(s.CodeLength, "B"), s.SubmittedAt)
	}
	return tw.Flush()
}

func unit(v, suffix string) string {
	if v == "" {
		return "-"
	}
	return v + " " + suffix
}
