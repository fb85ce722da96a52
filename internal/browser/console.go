package browser

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DefaultConsoleCapacity bounds the number of console messages retained.
const DefaultConsoleCapacity = 1000

// ConsoleEntry is a single console message emitted by the page.
type ConsoleEntry struct {
	Level string
	Text  string
	Time  time.Time
}

func (e ConsoleEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Level, e.Text)
}

// ConsoleLog is a bounded ring of console messages. Once capacity is
// reached the oldest entries are dropped.
type ConsoleLog struct {
	mu       sync.Mutex
	entries  []ConsoleEntry
	capacity int
}

// NewConsoleLog creates a console log retaining at most capacity entries.
// A non-positive capacity falls back to DefaultConsoleCapacity.
func NewConsoleLog(capacity int) *ConsoleLog {
	if capacity <= 0 {
		capacity = DefaultConsoleCapacity
	}
	return &ConsoleLog{capacity: capacity}
}

// Append records a message, evicting the oldest entry when full.
func (l *ConsoleLog) Append(level, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.entries) >= l.capacity {
		l.entries = l.entries[1:]
	}
	l.entries = append(l.entries, ConsoleEntry{
		Level: level,
		Text:  text,
		Time:  time.Now(),
	})
}

// Entries returns a snapshot of the retained messages, oldest first.
func (l *ConsoleLog) Entries() []ConsoleEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]ConsoleEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of retained messages.
func (l *ConsoleLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Render formats the retained messages as one line per entry.
func (l *ConsoleLog) Render() string {
	entries := l.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return strings.Join(lines, "\n")
}
