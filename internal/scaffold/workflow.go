package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// languageIDs maps a source extension to the judge's language id.
var languageIDs = map[string]int{
	"cpp":   1001,
	"java":  1002,
	"py":    1003,
	"c":     1004,
	"rs":    1005,
	"rb":    68,
	"kt":    69,
	"swift": 74,
	"cs":    86,
	"js":    17,
	"go":    12,
}

func LanguageID(ext string) (int, bool) {
	id, ok := languageIDs[strings.TrimPrefix(ext, ".")]
	return id, ok
}

type workflow struct {
	Name string         `yaml:"name"`
	On   workflowOn     `yaml:"on"`
	Jobs map[string]job `yaml:"jobs"`
}

type workflowOn struct {
	Push struct {
		Paths []string `yaml:"paths"`
	} `yaml:"push"`
}

type job struct {
	RunsOn string `yaml:"runs-on"`
	Steps  []step `yaml:"steps"`
}

type step struct {
	Name string         `yaml:"name"`
	ID   string         `yaml:"id,omitempty"`
	Uses string         `yaml:"uses,omitempty"`
	With map[string]any `yaml:"with,omitempty"`
	Run  string         `yaml:"run,omitempty"`
}

func newWorkflow(author string, languageID int) workflow {
	w := workflow{
		Name: "Update Markdown Performance",
		Jobs: map[string]job{
			"update": {
				RunsOn: "ubuntu-latest",
				Steps: []step{
					{
						Name: "Checkout Repository",
						Uses: "actions/checkout@v2",
						With: map[string]any{"fetch-depth": 0, "token": "${{ secrets.GH_TOKEN }}"},
					},
					{
						Name: "Get List of Not Filled Markdown Files",
						ID:   "getfile",
						Run: strings.Join([]string{
							`echo "" > not_filled_files.txt`,
							`while IFS= read -r -d $'\0' file; do`,
							"\tif ! grep -q \"### 성능 요약\" \"$file\"; then",
							"\t\techo \"$file\" >> not_filled_files.txt",
							"\tfi",
							`done < <(find . -name "*.md" -print0)`,
						}, "\n"),
					},
					{
						Name: "Update Performance in Markdown",
						Uses: "dltkdgns00/BOJ-action@main",
						With: map[string]any{
							"path":        "not_filled_files.txt",
							"user_id":     author,
							"language_id": languageID,
						},
					},
					{
						Name: "remove not_filled_files.txt",
						Run:  "rm not_filled_files.txt",
					},
					{
						Name: "Commit and push changes",
						Run: strings.Join([]string{
							`git config --local user.email "github-actions[bot]@users.noreply.github.com"`,
							`git config --local user.name "github-actions[bot]"`,
							"git add .",
							"git status",
							`if [[ -n "$(git status --porcelain)" ]]; then`,
							"\tgit commit -m \"Update performance details\"",
							"\tgit push",
							"else",
							"\techo \"No changes to commit.\"",
							"fi",
						}, "\n"),
					},
				},
			},
		},
	}
	w.On.Push.Paths = []string{"**.md"}
	return w
}

// WriteWorkflow writes .github/workflows/workflow.yml under root. An existing
// workflow is left alone and reported with created == false.
func WriteWorkflow(root, author, ext string) (path string, created bool, err error) {
	id, ok := LanguageID(ext)
	if !ok {
		return "", false, fmt.Errorf("no language id for extension %q", ext)
	}
	if author == "" {
		return "", false, errors.New("author is not configured")
	}
	dir := filepath.Join(root, ".github", "workflows")
	path = filepath.Join(dir, "workflow.yml")
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, err
	}

	data, err := yaml.Marshal(newWorkflow(author, id))
	if err != nil {
		return "", false, err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", false, err
	}
	return path, true, nil
}
