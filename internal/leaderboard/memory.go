package leaderboard

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Memory is the in-process Store used when no database is configured,
// and the test double elsewhere.
type Memory struct {
	mu   sync.Mutex
	next uint
	recs []Record
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Add(_ context.Context, name string, score int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.recs = append(m.recs, Record{ID: m.next, Name: name, Score: score, CreatedAt: time.Now()})
	return nil
}

func (m *Memory) Top(_ context.Context, n int) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]Record(nil), m.recs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}
