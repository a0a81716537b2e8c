package store

// DataStore is the write interface used by indexing and analysis. Both
// Store (direct SQLite) and BatchedStore (in-memory buffering for parallel
// workers) implement it.
type DataStore interface {
	// InsertComponent stores a component with its channels and returns
	// the assigned ID.
	InsertComponent(c *Component) (int64, error)
	InsertImport(imp *Import) (int64, error)
	// PutUsage replaces the usage row for (ComponentID, DependentFileID).
	PutUsage(u *Usage) error
}

// Compile-time check: *Store satisfies DataStore.
var _ DataStore = (*Store)(nil)
