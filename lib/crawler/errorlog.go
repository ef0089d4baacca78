package crawler

import (
	"sync"
	"time"
)

// TimeFormat is the timestamp layout used in exported error records.
const TimeFormat = "2006-01-02 15:04:05"

// Record is one structured failure. Records are never mutated after
// creation; their identity is their insertion order.
type Record struct {
	Time      time.Time
	EntityID  string
	Attribute string
	URL       string
	Exception string
}

// Log is the append-only audit trail of every failure recorded during fetch
// or attribute access. Pushes from concurrent fetches are serialized so the
// record order is a total order of completion.
type Log struct {
	mu      sync.Mutex
	records []Record
}

func NewLog() *Log {
	return &Log{}
}

func (l *Log) Push(r Record) {
	if r.Time.IsZero() {
		r.Time = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
}

// Records returns a copy of the log in insertion order.
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
