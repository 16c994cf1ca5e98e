// Package directory holds the latest known snapshot of every remote entity.
// It is a session-scoped, in-memory store: lookups never fail, they degrade
// to a placeholder for ids the authoritative source has not described yet.
package directory

import (
	"sort"
	"sync"

	"tourneysync/internal/domain"
)

type Directory struct {
	mu       sync.RWMutex
	entities map[int64]domain.Entity
}

func New() *Directory {
	return &Directory{entities: make(map[int64]domain.Entity)}
}

// UpsertBatch replaces or inserts whole entity snapshots. Stale fields are
// never merged: a newer record wins outright.
func (d *Directory) UpsertBatch(entities []domain.Entity) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range entities {
		if e.ID == 0 {
			continue
		}
		d.entities[e.ID] = e
	}
}

// Get returns the latest snapshot for id, or a placeholder when the id is
// unknown. This is a display fallback, not an error.
func (d *Directory) Get(id int64) domain.Entity {
	d.mu.RLock()
	e, ok := d.entities[id]
	d.mu.RUnlock()
	if !ok {
		return domain.PlaceholderEntity(id)
	}
	return e
}

// Known reports whether id has been seen in an authoritative fetch.
func (d *Directory) Known(id int64) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.entities[id]
	return ok
}

// List returns every known entity except excludeID, ordered by id.
// Self-entries are filtered here so no caller ever renders the actor as a
// potential relation target.
func (d *Directory) List(excludeID int64) []domain.Entity {
	d.mu.RLock()
	out := make([]domain.Entity, 0, len(d.entities))
	for id, e := range d.entities {
		if id == excludeID {
			continue
		}
		out = append(out, e)
	}
	d.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.entities)
}

// Clear drops everything. Called when the session ends.
func (d *Directory) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entities = make(map[int64]domain.Entity)
}
