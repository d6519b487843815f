// Package golden stores the recorded simulator output for each scenario.
//
// Files live in a single directory and are named by prefix plus the scenario
// index zero-padded to two digits: test01, test02, ... test12.
package golden

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/roach88/cachecheck/internal/report"
)

// DefaultPrefix is the file name prefix used by the recorded battery.
const DefaultPrefix = "test"

// ErrMissing matches any MissingError.
var ErrMissing = errors.New("golden file missing")

// MissingError reports a golden file that is absent or unreadable.
type MissingError struct {
	Scenario int
	Path     string
	Err      error
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("golden file for scenario %d (%s): %v", e.Scenario, e.Path, e.Err)
}

func (e *MissingError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrMissing) match.
func (e *MissingError) Is(target error) bool {
	return target == ErrMissing
}

// Store addresses golden files by scenario index.
type Store struct {
	Dir    string
	Prefix string
}

// New returns a store rooted at dir using DefaultPrefix.
func New(dir string) *Store {
	return &Store{Dir: dir, Prefix: DefaultPrefix}
}

// Name returns the file name for a scenario index.
func (s *Store) Name(index int) string {
	prefix := s.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s%02d", prefix, index)
}

// Path returns the full path of the golden file for a scenario index.
func (s *Store) Path(index int) string {
	return filepath.Join(s.Dir, s.Name(index))
}

// Load reads and tokenizes the golden document for a scenario.
func (s *Store) Load(index int) (report.Document, error) {
	path := s.Path(index)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &MissingError{Scenario: index, Path: path, Err: err}
	}
	doc, err := report.Tokenize(data)
	if err != nil {
		return nil, &MissingError{Scenario: index, Path: path, Err: err}
	}
	return doc, nil
}

// Exists reports whether a golden file is present for a scenario.
func (s *Store) Exists(index int) bool {
	_, err := os.Stat(s.Path(index))
	return !errors.Is(err, fs.ErrNotExist)
}

// Write records output as the golden file for a scenario, creating the
// directory if needed.
func (s *Store) Write(index int, output []byte) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}
	if err := os.WriteFile(s.Path(index), output, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}
