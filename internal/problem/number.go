package problem

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
)

var (
	leadingDigits = regexp.MustCompile(`^(\d+)`)
	problemNumber = regexp.MustCompile(`^\d+$`)
)

// ErrInvalidID is returned for problem ids that are not plain numbers.
var ErrInvalidID = errors.New("problem id must be a number")

// ValidID reports whether id is a problem number. Ids end up in cache file
// names and request paths, so nothing else is accepted.
func ValidID(id string) bool {
	return problemNumber.MatchString(id)
}

func checkID(id string) error {
	if !ValidID(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// NumberFromPath reads the problem number from the name of the directory
// holding the source file, e.g. ".../1000번: A+B/main.cpp" -> "1000".
func NumberFromPath(source string) (string, error) {
	dir := filepath.Base(filepath.Dir(source))
	m := leadingDigits.FindStringSubmatch(dir)
	if m == nil {
		return "", fmt.Errorf("problem number not found in directory %q", dir)
	}
	return m[1], nil
}
