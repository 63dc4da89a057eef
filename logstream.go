package sweep

import (
	"sync"
	"time"
)

// LogEntry is one structured progress event from a discovery session.
type LogEntry struct {
	Timestamp time.Time     `json:"timestamp"`
	Source    string        `json:"source"`
	Message   string        `json:"message"`
	Count     int           `json:"count,omitempty"`
	Elapsed   time.Duration `json:"elapsed,omitempty"`
}

// LogStream collects time-ordered session log entries. It is append-only and
// safe for concurrent use; entries are attached to the session response so a
// consumer can render per-adapter progress.
type LogStream struct {
	mu      sync.Mutex
	start   time.Time
	entries []LogEntry
}

// NewLogStream returns a LogStream with its clock started.
func NewLogStream() *LogStream {
	return &LogStream{start: time.Now()}
}

// Append records one entry, stamping timestamp and elapsed time.
func (l *LogStream) Append(source, message string, count int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := time.Now()
	l.entries = append(l.entries, LogEntry{
		Timestamp: now,
		Source:    source,
		Message:   message,
		Count:     count,
		Elapsed:   now.Sub(l.start),
	})
}

// Entries returns a copy of the accumulated entries.
func (l *LogStream) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LogEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
