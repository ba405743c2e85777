package log

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
)

// Entry is a single activity log record.
type Entry struct {
	Time    time.Time
	Level   slog.Level
	Message string
	Ruleset string
	Note    string
}

// Activity is a thread-safe bounded ring of [Entry] records. When full, the
// oldest entry is overwritten. Entries are read back newest-first.
type Activity struct {
	entries  []Entry
	capacity int
	size     int
	head     int
	mu       sync.RWMutex
}

// NewActivity creates an activity log with the given capacity.
func NewActivity(capacity int) *Activity {
	if capacity <= 0 {
		capacity = 200 // Default capacity.
	}

	return &Activity{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Record appends an entry, overwriting the oldest one when full.
func (a *Activity) Record(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.entries[a.head] = e
	a.head = (a.head + 1) % a.capacity

	if a.size < a.capacity {
		a.size++
	}
}

// Infof records an info-level entry.
func (a *Activity) Infof(format string, args ...any) {
	a.Record(Entry{Level: slog.LevelInfo, Message: fmt.Sprintf(format, args...)})
}

// Warnf records a warn-level entry.
func (a *Activity) Warnf(format string, args ...any) {
	a.Record(Entry{Level: slog.LevelWarn, Message: fmt.Sprintf(format, args...)})
}

// Errorf records an error-level entry.
func (a *Activity) Errorf(format string, args ...any) {
	a.Record(Entry{Level: slog.LevelError, Message: fmt.Sprintf(format, args...)})
}

// Entries returns a copy of the current entries, newest first.
func (a *Activity) Entries() []Entry {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.size == 0 {
		return nil
	}

	result := make([]Entry, 0, a.size)

	// Walk backwards from the most recently written slot.
	idx := a.head - 1
	for range a.size {
		if idx < 0 {
			idx += a.capacity
		}

		result = append(result, a.entries[idx])
		idx--
	}

	return result
}

// Size returns the current number of entries.
func (a *Activity) Size() int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.size
}

// Capacity returns the maximum number of entries the log can hold.
func (a *Activity) Capacity() int {
	return a.capacity
}

// Clear removes all entries.
func (a *Activity) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.size = 0
	a.head = 0
}

// WriteTo writes all current entries to w, newest first, one per line.
func (a *Activity) WriteTo(w io.Writer) (int64, error) {
	var total int64

	for _, e := range a.Entries() {
		n, err := fmt.Fprintf(w, "%s %-5s %s\n",
			e.Time.Format(time.StampMilli), e.Level.String(), e.Message)
		total += int64(n)

		if err != nil {
			return total, fmt.Errorf("writing entry: %w", err)
		}
	}

	return total, nil
}
