package report

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Line is one output line split on runs of whitespace.
type Line []string

// Equal reports whether two lines carry the same token sequence.
func (l Line) Equal(other Line) bool {
	if len(l) != len(other) {
		return false
	}
	for i := range l {
		if l[i] != other[i] {
			return false
		}
	}
	return true
}

// String joins the tokens with single spaces.
func (l Line) String() string {
	return strings.Join(l, " ")
}

// ParseLine tokenizes a single line of text.
func ParseLine(s string) Line {
	return Line(strings.Fields(s))
}

// Document is an ordered sequence of non-empty token-lines.
type Document []Line

// Tokenize decodes data as UTF-8 and splits it into token-lines.
//
// A leading byte order mark is dropped and invalid byte sequences are
// replaced with U+FFFD. Lines end at "\n", "\r\n" or a lone "\r". Lines
// containing only whitespace produce no entry.
func Tokenize(data []byte) (Document, error) {
	decoded, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
	if err != nil {
		return nil, fmt.Errorf("decode output: %w", err)
	}

	doc := Document{}
	scanner := bufio.NewScanner(bytes.NewReader(decoded))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	scanner.Split(scanLines)
	for scanner.Scan() {
		line := ParseLine(scanner.Text())
		if len(line) == 0 {
			continue
		}
		doc = append(doc, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("split lines: %w", err)
	}
	return doc, nil
}

// scanLines is bufio.ScanLines that also ends a line at a lone '\r'.
func scanLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		// need the next byte to tell "\r" from "\r\n"
		return 0, nil, nil
	}
	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// ReadFile reads and tokenizes the file at path.
func ReadFile(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Tokenize(data)
}

// String renders the document back to text, one line per token-line.
func (d Document) String() string {
	var b strings.Builder
	for _, line := range d {
		b.WriteString(line.String())
		b.WriteByte('\n')
	}
	return b.String()
}
