package store

import (
	"fmt"
	"sync"
)

// BatchedStore buffers component, import and usage writes in memory
// using fake (negative) component IDs. It implements DataStore so workers
// can write to it without knowing whether they're hitting SQLite.
//
// Thread safety: the mutex protects fake ID allocation and slice appends.
type BatchedStore struct {
	mu sync.Mutex

	Components []Component
	Imports    []Import
	Usages     []Usage

	nextFakeID int64 // starts at -1, decrements
}

// Compile-time check: *BatchedStore satisfies DataStore.
var _ DataStore = (*BatchedStore)(nil)

// NewBatchedStore creates an empty BatchedStore.
func NewBatchedStore() *BatchedStore {
	return &BatchedStore{nextFakeID: -1}
}

func (b *BatchedStore) allocFakeID() int64 {
	id := b.nextFakeID
	b.nextFakeID--
	return id
}

func (b *BatchedStore) InsertComponent(c *Component) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	c.ID = fakeID
	b.Components = append(b.Components, *c)
	return fakeID, nil
}

func (b *BatchedStore) InsertImport(imp *Import) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	fakeID := b.allocFakeID()
	imp.ID = fakeID
	b.Imports = append(b.Imports, *imp)
	return fakeID, nil
}

// PutUsage buffers a usage. A later PutUsage for the same pair wins at
// commit time. The dependent file must already have a real ID.
func (b *BatchedStore) PutUsage(u *Usage) error {
	if u.ComponentID == 0 || u.DependentFileID <= 0 {
		return fmt.Errorf("usage needs a component and a stored dependent file (component %d, file %d)", u.ComponentID, u.DependentFileID)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Usages = append(b.Usages, *u)
	return nil
}

// Len returns the number of buffered rows.
func (b *BatchedStore) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Components) + len(b.Imports) + len(b.Usages)
}
