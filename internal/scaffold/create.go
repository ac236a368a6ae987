package scaffold

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Mirai3103/boj-runner/internal/models"
)

var ErrFileExists = errors.New("solution file already exists")

type CreateOptions struct {
	Author    string
	Overwrite bool
	Now       time.Time
}

var nameReplacer = strings.NewReplacer("/", "_", "\\", "_", "\x00", "")

// Create makes "{id}번: {title}/{title}.{ext}" under root with a banner and
// returns the file path.
func Create(root, id string, problem *models.Problem, ext string, opts CreateOptions) (string, error) {
	if problem == nil || problem.Title == "" {
		return "", fmt.Errorf("problem %s has no title", id)
	}
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		return "", errors.New("no language extension configured")
	}
	title := nameReplacer.Replace(problem.Title)
	dir := filepath.Join(root, fmt.Sprintf("%s번: %s", id, title))
	path := filepath.Join(dir, title+"."+ext)

	if _, err := os.Stat(path); err == nil && !opts.Overwrite {
		return path, ErrFileExists
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", err
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	header, err := HeaderComment(NewHeaderInfo(id, opts.Author), ext, now)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, []byte(header), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
