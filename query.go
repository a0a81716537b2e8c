package vuensight

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/uhodav/vuensight/internal/descriptor"
	"github.com/uhodav/vuensight/internal/store"
	"github.com/uhodav/vuensight/internal/usage"
)

// QueryBuilder provides read access to the stored index.
type QueryBuilder struct {
	store *store.Store
}

// NewQueryBuilder returns a QueryBuilder over an opened store, for readers
// that do not need a full Engine.
func NewQueryBuilder(s *Store) *QueryBuilder {
	return &QueryBuilder{store: s}
}

// DependentUsage is one dependent of a component with the channels it
// uses, by index and by name.
type DependentUsage struct {
	Path       string   `json:"path"`
	Name       string   `json:"name"`
	UsedProps  []int    `json:"used_props"`
	UsedEvents []int    `json:"used_events"`
	UsedSlots  []int    `json:"used_slots"`
	PropNames  []string `json:"prop_names"`
	EventNames []string `json:"event_names"`
	SlotNames  []string `json:"slot_names"`
}

// Unused lists the channels of a component that no dependent uses.
type Unused struct {
	Component  string   `json:"component"`
	Path       string   `json:"path"`
	Dependents int      `json:"dependents"`
	Props      []string `json:"props"`
	Events     []string `json:"events"`
	Slots      []string `json:"slots"`
}

// ComponentReport is a component with every analyzed dependent: the
// payload a visualization consumes.
type ComponentReport struct {
	usage.Component
	Dependents []usage.Record `json:"dependents"`
}

// Components returns all indexed components ordered by path.
func (q *QueryBuilder) Components() ([]*Component, error) {
	comps, err := q.store.Components()
	if err != nil {
		return nil, fmt.Errorf("components: %w", err)
	}
	return comps, nil
}

// ComponentByName returns every component with the given name.
func (q *QueryBuilder) ComponentByName(name string) ([]*Component, error) {
	comps, err := q.store.ComponentsByName(name)
	if err != nil {
		return nil, fmt.Errorf("component by name: %w", err)
	}
	return comps, nil
}

// ComponentByPath returns the component declared in path, or nil. Relative
// paths are made absolute first when the literal path is not indexed.
func (q *QueryBuilder) ComponentByPath(path string) (*Component, error) {
	c, err := q.store.ComponentByPath(path)
	if err != nil {
		return nil, fmt.Errorf("component by path: %w", err)
	}
	if c != nil || filepath.IsAbs(path) {
		return c, nil
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil
	}
	c, err = q.store.ComponentByPath(abs)
	if err != nil {
		return nil, fmt.Errorf("component by path: %w", err)
	}
	return c, nil
}

// Find resolves ref, a file path or a component name, to one component.
// Returns nil when nothing matches and an error when a name is ambiguous.
func (q *QueryBuilder) Find(ref string) (*Component, error) {
	if _, err := os.Stat(ref); err == nil {
		return q.ComponentByPath(ref)
	}
	if c, err := q.ComponentByPath(ref); err != nil || c != nil {
		return c, err
	}
	comps, err := q.ComponentByName(ref)
	if err != nil {
		return nil, err
	}
	switch len(comps) {
	case 0:
		// Fall back to the file-derived name, e.g. a component whose name
		// option differs from its file.
		all, err := q.Components()
		if err != nil {
			return nil, err
		}
		for _, c := range all {
			if descriptor.FileComponentName(c.Path) == ref {
				comps = append(comps, c)
			}
		}
		if len(comps) == 1 {
			return comps[0], nil
		}
		if len(comps) == 0 {
			return nil, nil
		}
	case 1:
		return comps[0], nil
	}
	return nil, fmt.Errorf("component %q is ambiguous: %d matches, use a path", ref, len(comps))
}

// Dependents returns the analyzed dependents of the component declared in
// componentPath, ordered by dependent path.
func (q *QueryBuilder) Dependents(componentPath string) ([]DependentUsage, error) {
	c, err := q.ComponentByPath(componentPath)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, nil
	}
	return q.dependentsOf(c)
}

func (q *QueryBuilder) dependentsOf(c *Component) ([]DependentUsage, error) {
	us, err := q.store.UsagesByComponent(c.ID)
	if err != nil {
		return nil, fmt.Errorf("dependents: %w", err)
	}
	out := make([]DependentUsage, 0, len(us))
	for _, u := range us {
		f, err := q.store.FileByID(u.DependentFileID)
		if err != nil {
			return nil, fmt.Errorf("dependents: %w", err)
		}
		if f == nil {
			continue
		}
		name := descriptor.FileComponentName(f.Path)
		if dc, err := q.store.ComponentByFile(f.ID); err == nil && dc != nil {
			name = dc.Name
		}
		out = append(out, DependentUsage{
			Path:       f.Path,
			Name:       name,
			UsedProps:  nonNil(u.Props),
			UsedEvents: nonNil(u.Events),
			UsedSlots:  nonNil(u.Slots),
			PropNames:  propNames(c.Props, u.Props),
			EventNames: eventNames(c.Events, u.Events),
			SlotNames:  slotNames(c.Slots, u.Slots),
		})
	}
	sortDependents(out)
	return out, nil
}

// UnusedChannels returns the declared channels of the component in
// componentPath that no analyzed dependent uses.
func (q *QueryBuilder) UnusedChannels(componentPath string) (*Unused, error) {
	c, err := q.ComponentByPath(componentPath)
	if err != nil || c == nil {
		return nil, err
	}
	us, err := q.store.UsagesByComponent(c.ID)
	if err != nil {
		return nil, fmt.Errorf("unused channels: %w", err)
	}
	used := map[string]map[int]bool{store.KindProp: {}, store.KindEvent: {}, store.KindSlot: {}}
	for _, u := range us {
		for _, i := range u.Props {
			used[store.KindProp][i] = true
		}
		for _, i := range u.Events {
			used[store.KindEvent][i] = true
		}
		for _, i := range u.Slots {
			used[store.KindSlot][i] = true
		}
	}

	out := &Unused{Component: c.Name, Path: c.Path, Dependents: len(us),
		Props: []string{}, Events: []string{}, Slots: []string{}}
	for _, p := range c.Props {
		if !used[store.KindProp][p.Ordinal] {
			out.Props = append(out.Props, p.Name)
		}
	}
	for _, ev := range c.Events {
		if !used[store.KindEvent][ev.Ordinal] {
			out.Events = append(out.Events, ev.Name)
		}
	}
	for _, s := range c.Slots {
		if !used[store.KindSlot][s.Ordinal] {
			out.Slots = append(out.Slots, s.Name)
		}
	}
	return out, nil
}

// Report returns every component with its analyzed dependents.
func (q *QueryBuilder) Report() ([]ComponentReport, error) {
	comps, err := q.Components()
	if err != nil {
		return nil, err
	}
	out := make([]ComponentReport, 0, len(comps))
	for _, c := range comps {
		deps, err := q.dependentsOf(c)
		if err != nil {
			return nil, err
		}
		r := ComponentReport{Component: *toUsageComponent(c), Dependents: make([]usage.Record, 0, len(deps))}
		for _, d := range deps {
			r.Dependents = append(r.Dependents, usage.Record{
				FullPath:   d.Path,
				Name:       d.Name,
				UsedProps:  d.UsedProps,
				UsedEvents: d.UsedEvents,
				UsedSlots:  d.UsedSlots,
			})
		}
		out = append(out, r)
	}
	return out, nil
}

func sortDependents(ds []DependentUsage) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].Path < ds[j].Path })
}

func nonNil(xs []int) []int {
	if xs == nil {
		return []int{}
	}
	return xs
}

func propNames(props []Prop, idx []int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(props) {
			out = append(out, props[i].Name)
		}
	}
	return out
}

func eventNames(events []Event, idx []int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(events) {
			out = append(out, events[i].Name)
		}
	}
	return out
}

func slotNames(slots []Slot, idx []int) []string {
	out := make([]string, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(slots) {
			out = append(out, slots[i].Name)
		}
	}
	return out
}
