package logger

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// CollectionConfig bounds the in-memory buffer of recent warn/error entries.
type CollectionConfig struct {
	Capacity int // max retained entries (e.g. 20)
}

// CollectedEntry is one retained log occurrence.
type CollectedEntry struct {
	Level   string                 `json:"level"`
	Message string                 `json:"message"`
	Fields  map[string]interface{} `json:"fields"`
	Caller  string                 `json:"caller"`
	At      time.Time              `json:"at"`
}

// LogCollector keeps the most recent warn/error entries in a fixed-size ring,
// so the status snapshot can surface them without scraping log output.
type LogCollector struct {
	capacity int
	entries  []CollectedEntry
	next     int
	full     bool
	mutex    sync.RWMutex
}

func NewLogCollector(config *CollectionConfig) *LogCollector {
	capacity := config.Capacity
	if capacity < 1 {
		capacity = 20
	}
	return &LogCollector{
		capacity: capacity,
		entries:  make([]CollectedEntry, capacity),
	}
}

func (d *LogCollector) AddLog(level, message string, fields map[string]interface{}, caller string) {
	entry := CollectedEntry{
		Level:   level,
		Message: message,
		Fields:  fields,
		Caller:  caller,
		At:      time.Now().UTC(),
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.entries[d.next] = entry
	d.next++
	if d.next == d.capacity {
		d.next = 0
		d.full = true
	}
}

// Recent returns the retained entries, oldest first.
func (d *LogCollector) Recent() []CollectedEntry {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	var out []CollectedEntry
	if d.full {
		out = append(out, d.entries[d.next:]...)
		out = append(out, d.entries[:d.next]...)
	} else {
		out = append(out, d.entries[:d.next]...)
	}
	return out
}

// RecentMessages renders retained entries as single display lines, oldest
// first.
func (d *LogCollector) RecentMessages() []string {
	entries := d.Recent()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("%s %s: %s", e.At.Format(time.RFC3339), e.Level, e.Message)
		if len(e.Fields) > 0 {
			keys := make([]string, 0, len(e.Fields))
			for k := range e.Fields {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			parts := make([]string, 0, len(keys))
			for _, k := range keys {
				parts = append(parts, fmt.Sprintf("%s=%v", k, e.Fields[k]))
			}
			line += " (" + strings.Join(parts, " ") + ")"
		}
		out = append(out, line)
	}
	return out
}

func (d *LogCollector) Close() {}
