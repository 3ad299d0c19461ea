// Package memory implements the store ports over maps. It backs tests and
// STORE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"myrestaurants/internal/domain"
)

// Table holds one record type. P is the pointer type carrying the mutators.
type Table[T any, P domain.Entity[T]] struct {
	mu   sync.RWMutex
	rows map[int64]T
	next int64

	// onDelete runs after a row is removed, outside the table lock.
	onDelete func(id int64)
}

func NewTable[T any, P domain.Entity[T]]() *Table[T, P] {
	return &Table[T, P]{rows: map[int64]T{}, next: 1}
}

func (t *Table[T, P]) Get(ctx context.Context, id int64) (T, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	rec, ok := t.rows[id]
	if !ok {
		var zero T
		return zero, domain.ErrNotFound
	}
	return detached[T, P](rec), nil
}

func (t *Table[T, P]) List(ctx context.Context, f domain.Filter) ([]T, error) {
	t.mu.RLock()
	out := make([]T, 0, len(t.rows))
	for _, rec := range t.rows {
		if matches(any(rec), f) {
			out = append(out, detached[T, P](rec))
		}
	}
	t.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		a, b := P(&out[i]), P(&out[j])
		da, db := a.Created(), b.Created()
		if !da.Equal(db.Time) {
			if f.Newest {
				return da.After(db.Time)
			}
			return da.Before(db.Time)
		}
		if f.Newest {
			return a.RecordID() > b.RecordID()
		}
		return a.RecordID() < b.RecordID()
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(rec any, f domain.Filter) bool {
	r := rec.(domain.Record)
	if !f.Until.IsZero() && (r.Created().IsZero() || r.Created().After(f.Until.Time)) {
		return false
	}
	if f.Restaurant != 0 {
		s, ok := rec.(domain.Scoped)
		if !ok || s.ParentID() != f.Restaurant {
			return false
		}
	}
	return true
}

func (t *Table[T, P]) Insert(ctx context.Context, rec T) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	P(&rec).SetID(t.next)
	t.rows[t.next] = detached[T, P](rec)
	t.next++
	return rec, nil
}

func (t *Table[T, P]) Update(ctx context.Context, rec T) error {
	id := P(&rec).RecordID()
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return domain.ErrNotFound
	}
	t.rows[id] = detached[T, P](rec)
	return nil
}

func (t *Table[T, P]) Delete(ctx context.Context, id int64) error {
	t.mu.Lock()
	_, ok := t.rows[id]
	delete(t.rows, id)
	t.mu.Unlock()
	if !ok {
		return domain.ErrNotFound
	}
	if t.onDelete != nil {
		t.onDelete(id)
	}
	return nil
}

func (t *Table[T, P]) Upsert(ctx context.Context, rec T) error {
	id := P(&rec).RecordID()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[id] = detached[T, P](rec)
	if id >= t.next {
		t.next = id + 1
	}
	return nil
}

// detached returns rec with its pointer fields copied, so stored rows never
// share memory with callers.
func detached[T any, P domain.Entity[T]](rec T) T {
	if d, ok := any(P(&rec)).(domain.Detacher); ok {
		d.Detach()
	}
	return rec
}

// rewrite applies fn to every row; fn returns false to drop the row.
func (t *Table[T, P]) rewrite(fn func(p P) bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, rec := range t.rows {
		if !fn(P(&rec)) {
			delete(t.rows, id)
			continue
		}
		t.rows[id] = rec
	}
}
