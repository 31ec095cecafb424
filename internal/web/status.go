package web

import (
	"sync"
	"time"

	"gnss-relay/internal/nmea"
)

// Status is a sink that remembers what the receiver said recently: a tail of
// raw sentences and the last decoded record of each type. It is written by
// the driver goroutine and read by HTTP handlers.
type Status struct {
	startedAt time.Time
	tail      *tailBuffer

	mu      sync.Mutex
	records map[string]recordEntry
}

type recordEntry struct {
	rec nmea.Record
	at  time.Time
}

// RecordSnapshot is the last record of one sentence type.
type RecordSnapshot struct {
	SeenUTC string `json:"seen_utc"`
	nmea.Record
}

func NewStatus(tailLines int) *Status {
	if tailLines <= 0 {
		tailLines = 200
	}
	return &Status{
		startedAt: time.Now().UTC(),
		tail:      newTailBuffer(tailLines),
		records:   make(map[string]recordEntry),
	}
}

func (s *Status) AcceptSentence(sentence nmea.Sentence) error {
	s.tail.add(string(sentence))
	return nil
}

func (s *Status) AcceptRecord(rec nmea.Record) error {
	key := rec.Talker + rec.Type
	s.mu.Lock()
	s.records[key] = recordEntry{rec: rec, at: time.Now().UTC()}
	s.mu.Unlock()
	return nil
}

// Sentences returns up to n of the most recent raw sentences, oldest first,
// and the total number seen.
func (s *Status) Sentences(n int) ([]string, uint64) {
	return s.tail.snapshot(n)
}

// Records returns the last record per talker and type, keyed "GPGGA".
func (s *Status) Records() map[string]RecordSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]RecordSnapshot, len(s.records))
	for k, e := range s.records {
		out[k] = RecordSnapshot{SeenUTC: e.at.Format(time.RFC3339Nano), Record: e.rec}
	}
	return out
}
