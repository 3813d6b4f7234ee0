// Package activity keeps a per-day JSONL journal of what organize runs did to
// each file, for auditing and for `javorganize history --files`.
package activity

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

// Action is what happened to a file.
type Action string

const (
	ActionMove     Action = "move"
	ActionCopy     Action = "copy"
	ActionSkip     Action = "skip"
	ActionFail     Action = "fail"
	ActionPlan     Action = "dry-run"
	ActionDelete   Action = "delete"
	ActionPruneDir Action = "rmdir"
)

type Entry struct {
	Timestamp  time.Time `json:"ts"`
	RunID      string    `json:"run_id,omitempty"`
	Action     Action    `json:"action"`
	Source     string    `json:"source"`
	Target     string    `json:"target,omitempty"`
	Num        string    `json:"num,omitempty"`
	Siblings   int       `json:"siblings,omitempty"`
	Success    bool      `json:"success"`
	Bytes      int64     `json:"bytes,omitempty"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Error      string    `json:"error,omitempty"`
}

type Logger struct {
	mu          sync.Mutex
	logDir      string
	currentFile *os.File
	currentDate string
	now         func() time.Time
}

// NewLogger writes journal files into dir, creating it if needed.
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	return &Logger{
		logDir: dir,
		now:    time.Now,
	}, nil
}

func (l *Logger) Log(entry Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}

	line, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	today := now.Format("2006-01-02")
	if l.currentDate != today || l.currentFile == nil {
		if err := l.rotateFile(today); err != nil {
			return err
		}
	}

	_, err = l.currentFile.Write(append(line, '\n'))
	return err
}

func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.currentFile != nil {
		err := l.currentFile.Close()
		l.currentFile = nil
		return err
	}
	return nil
}

// PruneOld removes journal files older than retentionDays. Zero or less keeps everything.
func (l *Logger) PruneOld(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	cutoff := l.now().AddDate(0, 0, -retentionDays)

	l.mu.Lock()
	defer l.mu.Unlock()

	for _, name := range l.journalFiles() {
		date := strings.TrimSuffix(strings.TrimPrefix(name, "activity-"), ".jsonl")
		fileDate, err := time.ParseInLocation("2006-01-02", date, time.Local)
		if err != nil {
			continue
		}

		if fileDate.Before(cutoff) && date != l.currentDate {
			os.Remove(filepath.Join(l.logDir, name))
		}
	}

	return nil
}

func (l *Logger) rotateFile(date string) error {
	if l.currentFile != nil {
		l.currentFile.Close()
		l.currentFile = nil
	}

	filePath := filepath.Join(l.logDir, "activity-"+date+".jsonl")

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	l.currentFile = file
	l.currentDate = date

	return nil
}

func (l *Logger) GetLogDir() string {
	return l.logDir
}

// journalFiles lists activity-*.jsonl names, oldest first.
func (l *Logger) journalFiles() []string {
	entries, err := os.ReadDir(l.logDir)
	if err != nil {
		return nil
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), "activity-") && strings.HasSuffix(entry.Name(), ".jsonl") {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names
}

// GetRecentEntries returns the most recent activity entries, up to limit.
// Entries are returned in reverse chronological order (newest first).
func (l *Logger) GetRecentEntries(limit int) ([]Entry, error) {
	return l.GetRecentEntriesFor("", limit)
}

// GetRecentEntriesFor is GetRecentEntries restricted to one run; an empty
// runID matches every run.
func (l *Logger) GetRecentEntriesFor(runID string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	logFiles := l.journalFiles()
	slices.Reverse(logFiles)

	var results []Entry
	for _, fileName := range logFiles {
		fileEntries, err := readEntriesFromFile(filepath.Join(l.logDir, fileName))
		if err != nil {
			continue
		}

		slices.Reverse(fileEntries)
		for _, e := range fileEntries {
			if runID != "" && e.RunID != runID {
				continue
			}
			results = append(results, e)
			if len(results) >= limit {
				return results, nil
			}
		}
	}

	return results, nil
}

// readEntriesFromFile reads all entries from a JSONL file, skipping lines
// that do not decode.
func readEntriesFromFile(filePath string) ([]Entry, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var entries []Entry
	scanner := NewJSONLScanner(file)
	for scanner.Scan() {
		var entry Entry
		if err := scanner.Entry(&entry); err != nil {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, scanner.Err()
}

// JSONLScanner scans a JSONL file line by line
type JSONLScanner struct {
	scanner *bufio.Scanner
	entry   []byte
	err     error
}

// NewJSONLScanner creates a new JSONL scanner
func NewJSONLScanner(r io.Reader) *JSONLScanner {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &JSONLScanner{scanner: s}
}

// Scan advances to the next entry
func (s *JSONLScanner) Scan() bool {
	if s.scanner.Scan() {
		s.entry = s.scanner.Bytes()
		return true
	}
	s.err = s.scanner.Err()
	return false
}

// Entry unmarshals the current entry into the provided value
func (s *JSONLScanner) Entry(v interface{}) error {
	return json.Unmarshal(s.entry, v)
}

// Err returns any error encountered during scanning
func (s *JSONLScanner) Err() error {
	return s.err
}
