// Package scaffold creates problem folders, source banners and the GitHub
// workflow used by a solutions repository.
package scaffold

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Columns are counted from the start of the line, comment opener included.
const (
	bannerInner = 74
	textColumn  = 5
	artColumn   = 50
)

var asciiArt = [...]string{
	"      :::    :::    :::   ",
	"     :+:    :+:      :+:  ",
	"    +:+    +:+        +:+ ",
	"   +#+    +#+          +#+",
	"  +#+      +#+        +#+ ",
	" #+#        #+#      #+#  ",
	"###          ###   ##.kr  ",
}

var ErrUnsupportedExtension = errors.New("no comment style for extension")

// HeaderInfo is what the banner shows besides the timestamp.
type HeaderInfo struct {
	ProblemNumber string
	Author        string
	AuthorURL     string
	URL           string
}

// NewHeaderInfo fills the profile and problem links from the short domain.
func NewHeaderInfo(problemNumber, author string) HeaderInfo {
	return HeaderInfo{
		ProblemNumber: problemNumber,
		Author:        author,
		AuthorURL:     "boj.kr/u/" + author,
		URL:           "https://boj.kr/" + problemNumber,
	}
}

func delimiters(ext string) (start, end string, ok bool) {
	switch strings.TrimPrefix(ext, ".") {
	case "c", "cpp", "cs", "java", "js", "ts", "go", "rs", "swift", "kt":
		return "/*", "*/", true
	case "py", "rb":
		return "# ", " #", true
	}
	return "", "", false
}

// HeaderComment renders the 11-line banner for a source file with the given
// extension. Every line is 80 columns wide and newline terminated.
func HeaderComment(info HeaderInfo, ext string, now time.Time) (string, error) {
	start, end, ok := delimiters(ext)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedExtension, ext)
	}
	border := []rune(strings.Repeat("*", bannerInner))
	blank := start + " " + strings.Repeat(" ", bannerInner) + " " + end
	line := func(text, art string) string {
		runes := []rune(blank)
		limit := len(runes) - len(end)
		overlay(runes[:limit], textColumn, text)
		overlay(runes[:limit], artColumn, art)
		return string(runes) + "\n"
	}

	lines := []string{
		start + " " + string(border) + " " + end + "\n",
		line("", ""),
		line("", asciiArt[0]),
		line("Problem Number: "+info.ProblemNumber, asciiArt[1]),
		line("", asciiArt[2]),
		line(fmt.Sprintf("By: %s <%s>", info.Author, info.AuthorURL), asciiArt[3]),
		line("", asciiArt[4]),
		line(info.URL, asciiArt[5]),
		line(fmt.Sprintf("Solved: %s by %s", now.Format("2006/01/02 15:04:05"), info.Author), asciiArt[6]),
		line("", ""),
		start + " " + string(border) + " " + end + "\n",
	}
	return strings.Join(lines, ""), nil
}

// overlay writes text into dst starting at column, clipped to dst.
func overlay(dst []rune, column int, text string) {
	for i, r := range []rune(text) {
		if column+i >= len(dst) {
			return
		}
		dst[column+i] = r
	}
}

// HasHeader reports whether content already starts with a banner.
func HasHeader(content string) bool {
	first, _, _ := strings.Cut(content, "\n")
	first = strings.TrimRight(first, "\r")
	stars := strings.Repeat("*", bannerInner)
	return first == "/* "+stars+" */" || first == "#  "+stars+"  #"
}

// InsertHeader prepends a banner to the file at path. It returns false when
// the file already has one.
func InsertHeader(path string, info HeaderInfo, ext string, now time.Time) (bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return false, err
	}
	if HasHeader(string(content)) {
		return false, nil
	}
	header, err := HeaderComment(info, ext, now)
	if err != nil {
		return false, err
	}
	st, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	if err := replaceFile(path, st.Mode().Perm(), []byte(header), content); err != nil {
		return false, err
	}
	return true, nil
}

var rename = os.Rename

// replaceFile writes chunks to a temp file next to path and renames it over
// path, so a failed write leaves the source untouched.
func replaceFile(path string, perm os.FileMode, chunks ...[]byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	for _, c := range chunks {
		w.Write(c)
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return rename(tmp.Name(), path)
}
