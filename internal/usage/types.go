package usage

// Component is the channel declaration of one component. Props, Events and
// Slots are ordered: their positions are the index space of a Record.
type Component struct {
	Name        string  `json:"name"`
	Props       []Prop  `json:"props"`
	Events      []Event `json:"events"`
	Slots       []Slot  `json:"slots"`
	FullPath    string  `json:"fullPath"`
	FileContent string  `json:"-"`
}

// Prop is a declared component property.
type Prop struct {
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Required bool   `json:"required,omitempty"`
	Default  any    `json:"default,omitempty"`
}

// Event is a declared emitted event.
type Event struct {
	Name   string `json:"name"`
	IsSync bool   `json:"isSync,omitempty"`
}

// Slot is a declared content slot.
type Slot struct {
	Name string `json:"name"`
}

// DependentFile is a file that imports the component under analysis.
type DependentFile struct {
	FullPath    string
	Name        string
	FileContent string
}

// Record is the usage of one component by one dependent. Each Used* slice
// holds ascending, unique indices into the component's declarations.
type Record struct {
	FullPath   string `json:"fullPath"`
	Name       string `json:"name"`
	UsedProps  []int  `json:"usedProps"`
	UsedEvents []int  `json:"usedEvents"`
	UsedSlots  []int  `json:"usedSlots"`
}

func emptyRecord(d DependentFile) Record {
	return Record{
		FullPath:   d.FullPath,
		Name:       d.Name,
		UsedProps:  []int{},
		UsedEvents: []int{},
		UsedSlots:  []int{},
	}
}
