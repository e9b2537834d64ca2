package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"
)

const (
	defaultEntryFormat = "{DATETIME}\t{PRIORITY}\t{CATEGORY}\t{MESSAGE}"
	defaultTextFile    = "error.log"
)

var fieldPattern = regexp.MustCompile(`\{(.*?)\}`)

// formattedText appends entries to a text file, one line per entry, filling
// the {FIELD} placeholders of the entry format. A new file starts with a
// header of "#" lines that names the fields.
type formattedText struct {
	mu     sync.Mutex
	file   *os.File
	format string
	path   string
}

func newFormattedText(opts Options) (Sink, error) {
	format := opts.TextEntryFormat
	if format == "" {
		format = defaultEntryFormat
	}
	name := opts.TextFile
	if name == "" {
		name = defaultTextFile
	}
	dir := opts.TextFilePath
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, name)

	_, statErr := os.Stat(path)
	fresh := os.IsNotExist(statErr)
	if fresh {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}

	s := &formattedText{file: f, format: format, path: path}
	if fresh {
		if _, err := f.WriteString(s.header(time.Now().UTC())); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *formattedText) header(now time.Time) string {
	fields := strings.ToLower(strings.NewReplacer("{", "", "}", "").Replace(s.format))
	head := []string{
		"#Version: 1.0",
		"#Date: " + now.Format("2006-01-02 15:04:05") + " UTC",
		"#Software: golobby/database",
		"",
		"#Fields: " + fields,
		"",
	}
	return strings.Join(head, "\n")
}

// line renders e with the entry format. Unknown or empty fields become "-".
func (s *formattedText) line(e Entry) string {
	values := e.fields()
	return fieldPattern.ReplaceAllStringFunc(s.format, func(m string) string {
		name := strings.ToUpper(m[1 : len(m)-1])
		if v, ok := values[name]; ok {
			return v
		}
		return "-"
	})
}

func (s *formattedText) AddEntry(e Entry) error {
	if e.Date.IsZero() {
		e.Date = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("logging: %s is closed", s.path)
	}
	_, err := s.file.WriteString(s.line(e) + "\n")
	return err
}

func (s *formattedText) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}
