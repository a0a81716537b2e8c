package store

import "time"

// Extraction domain types

type File struct {
	ID          int64
	Path        string
	Language    string
	Hash        string
	LastIndexed time.Time
}

// Component is a stored component descriptor. Path is filled on reads
// from the owning file row.
type Component struct {
	ID              int64
	FileID          int64
	Path            string
	Name            string
	DeclarationHash string
	Props           []Prop
	Events          []Event
	Slots           []Slot
}

type Prop struct {
	Ordinal  int
	Name     string
	TypeExpr string
	Required bool
	Default  any
}

type Event struct {
	Ordinal int
	Name    string
	IsSync  bool
}

type Slot struct {
	Ordinal int
	Name    string
}

type Import struct {
	ID           int64
	FileID       int64
	Source       string
	ImportedName string
	LocalAlias   string
	RegisteredAs string
	ResolvedPath string
}

// Analysis domain types

// Usage records which channels of a component one dependent file uses.
// Props, Events and Slots hold declaration ordinals.
type Usage struct {
	ID              int64
	ComponentID     int64
	DependentFileID int64
	Props           []int
	Events          []int
	Slots           []int
}

// Channel kinds stored in used_channels.kind.
const (
	KindProp  = "prop"
	KindEvent = "event"
	KindSlot  = "slot"
)
