package event

import (
	"context"
	"sync"
)

// DefaultLogCapacity is the number of records a Log created by NewLog retains.
const DefaultLogCapacity = 10_000

// Log is an in-process record log of fixed capacity. Seq numbers start at 1
// and keep counting once the oldest records are trimmed.
type Log struct {
	mu    sync.RWMutex
	ring  []Record
	head  int // index of the oldest retained record
	count int
	next  uint64
}

// NewLog creates an empty log retaining DefaultLogCapacity records.
func NewLog() *Log {
	return NewLogWithCapacity(DefaultLogCapacity)
}

// NewLogWithCapacity creates an empty log retaining at most capacity records.
// A capacity below 1 selects DefaultLogCapacity.
func NewLogWithCapacity(capacity int) *Log {
	if capacity < 1 {
		capacity = DefaultLogCapacity
	}
	return &Log{ring: make([]Record, capacity), next: 1}
}

// Publish appends records, assigning sequence numbers. Once the log is full
// each new record evicts the oldest one.
func (l *Log) Publish(_ context.Context, records ...Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, r := range records {
		r.Seq = l.next
		l.next++
		if l.count < len(l.ring) {
			l.ring[(l.head+l.count)%len(l.ring)] = r
			l.count++
			continue
		}
		l.ring[l.head] = r
		l.head = (l.head + 1) % len(l.ring)
	}
	return nil
}

// Since returns up to limit records with Seq greater than after. Records
// already trimmed are skipped, so the first returned Seq may exceed after+1.
func (l *Log) Since(after uint64, limit int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if after >= l.next-1 {
		return nil
	}
	oldest := l.next - uint64(l.count)
	start := after + 1
	if start < oldest {
		start = oldest
	}
	n := int(l.next - start)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]Record, 0, n)
	offset := int(start - oldest)
	for i := 0; i < n; i++ {
		out = append(out, l.ring[(l.head+offset+i)%len(l.ring)])
	}
	return out
}

// Len returns the number of records retained.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count
}

// LastSeq returns the Seq of the newest record, or 0 for an empty log.
func (l *Log) LastSeq() uint64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.next - 1
}
