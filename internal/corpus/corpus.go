// Package corpus reads the line-per-document text corpus.
package corpus

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrCorpusUnavailable is returned when the corpus file cannot be opened.
var ErrCorpusUnavailable = errors.New("corpus unavailable")

const maxLineSize = 1 << 20

// Load returns the lines of the file at path. Line order is document identity,
// so blank lines are kept.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: file '%s' not found", ErrCorpusUnavailable, path)
		}
		return nil, fmt.Errorf("%w: %v", ErrCorpusUnavailable, err)
	}
	defer f.Close()
	return Read(f)
}

// Read splits r into lines with the terminators removed.
func Read(r io.Reader) ([]string, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	var lines []string
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

// Text joins lines back into a single block for summarization.
func Text(lines []string) string {
	return strings.Join(lines, "\n")
}
