package store

import "fmt"

// CommitBatch inserts all buffered data from a BatchedStore into SQLite
// within a single transaction. Fake (negative) component IDs referenced
// by buffered usages are remapped to the real IDs.
//
// Insert order respects FK dependencies:
//  1. Components with their channels (depend on file_id, already real)
//  2. Imports (depend on file_id only)
//  3. Usages (depend on component_id and dependent_file_id)
func (s *Store) CommitBatch(batch *BatchedStore) error {
	batch.mu.Lock()
	defer batch.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("commit batch: begin: %w", err)
	}
	defer tx.Rollback()

	fakeToReal := make(map[int64]int64)

	for i := range batch.Components {
		c := &batch.Components[i]
		realID, err := insertComponentTx(tx, c)
		if err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
		fakeToReal[c.ID] = realID
	}

	for i := range batch.Imports {
		if _, err := insertImportTx(tx, &batch.Imports[i]); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}

	for i := range batch.Usages {
		u := batch.Usages[i]
		if u.ComponentID < 0 {
			realID, ok := fakeToReal[u.ComponentID]
			if !ok {
				return fmt.Errorf("commit batch: usage refers to unknown component %d", u.ComponentID)
			}
			u.ComponentID = realID
		}
		if err := putUsageTx(tx, &u); err != nil {
			return fmt.Errorf("commit batch: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}

	// Fake IDs in the buffer are replaced so callers can look up rows.
	for i := range batch.Components {
		batch.Components[i].ID = fakeToReal[batch.Components[i].ID]
	}
	return nil
}
