package portfolio

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"Seesaw/internal/model"
)

// Saver persists the full position set after a change.
type Saver interface {
	Save(positions []model.Position) error
}

// Snapshot is an immutable view of every position. One recompute pass reads exactly one.
type Snapshot struct {
	Version   uint64
	TakenAt   time.Time
	positions []model.Position
	index     map[string]int
}

func newSnapshot(version uint64, positions []model.Position) *Snapshot {
	cp := make([]model.Position, len(positions))
	copy(cp, positions)
	sort.SliceStable(cp, func(i, j int) bool { return cp[i].Name < cp[j].Name })
	idx := make(map[string]int, len(cp))
	for i, p := range cp {
		idx[p.Name] = i
	}
	return &Snapshot{Version: version, TakenAt: time.Now(), positions: cp, index: idx}
}

// Positions returns a copy of the positions, sorted by name.
func (s *Snapshot) Positions() []model.Position {
	cp := make([]model.Position, len(s.positions))
	copy(cp, s.positions)
	return cp
}

// Get returns a copy of the named position.
func (s *Snapshot) Get(name string) (model.Position, bool) {
	i, ok := s.index[name]
	if !ok {
		return model.Position{}, false
	}
	return s.positions[i], true
}

// Len is the number of positions, the currency pseudo-position included.
func (s *Snapshot) Len() int { return len(s.positions) }

// Book owns the current snapshot. Readers never block; writers are serialized.
type Book struct {
	mu    sync.Mutex
	cur   atomic.Pointer[Snapshot]
	saver Saver
}

// NewBook creates a Book. saver may be nil.
func NewBook(positions []model.Position, saver Saver) *Book {
	b := &Book{saver: saver}
	b.cur.Store(newSnapshot(1, positions))
	return b
}

// Snapshot returns the current immutable snapshot.
func (b *Book) Snapshot() *Snapshot {
	return b.cur.Load()
}

// Update applies fn to a copy of the positions, persists the result and swaps it in.
// The old snapshot stays valid for readers that already hold it.
func (b *Book) Update(fn func(positions []model.Position) ([]model.Position, error)) (*Snapshot, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	old := b.cur.Load()
	next, err := fn(old.Positions())
	if err != nil {
		return old, err
	}
	if b.saver != nil {
		if err := b.saver.Save(next); err != nil {
			return old, fmt.Errorf("save positions: %w", err)
		}
	}
	snap := newSnapshot(old.Version+1, next)
	b.cur.Store(snap)
	return snap, nil
}

// Put inserts or replaces one position by name.
func (b *Book) Put(p model.Position) (*Snapshot, error) {
	return b.Update(func(positions []model.Position) ([]model.Position, error) {
		for i := range positions {
			if positions[i].Name == p.Name {
				positions[i] = p
				return positions, nil
			}
		}
		return append(positions, p), nil
	})
}
