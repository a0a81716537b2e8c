package vuensight

import "github.com/uhodav/vuensight/internal/store"

// Public type aliases for internal store types used in the QueryBuilder API.
// External consumers use these names; no conversion is needed.

type Store = store.Store
type File = store.File
type Component = store.Component
type Prop = store.Prop
type Event = store.Event
type Slot = store.Slot
type Import = store.Import
type Usage = store.Usage
