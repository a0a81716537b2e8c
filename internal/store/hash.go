package store

import (
	"crypto/sha256"
	"fmt"
	"sort"
)

// ComputeDeclarationHash computes a deterministic hash over a component's
// channel declarations. Usage analysis of a dependent only needs to rerun
// when this hash (or the dependent itself) changes.
//
// Ordinals are part of the identity since usage rows refer to them, so
// channels are hashed in ordinal order. Defaults do not affect the hash.
func ComputeDeclarationHash(name string, props []Prop, events []Event, slots []Slot) string {
	h := sha256.New()

	fmt.Fprintf(h, "name:%s\n", name)

	ps := make([]Prop, len(props))
	copy(ps, props)
	sort.Slice(ps, func(i, j int) bool { return ps[i].Ordinal < ps[j].Ordinal })
	for _, p := range ps {
		fmt.Fprintf(h, "prop:%d:%s:%s:%v\n", p.Ordinal, p.Name, p.TypeExpr, p.Required)
	}

	es := make([]Event, len(events))
	copy(es, events)
	sort.Slice(es, func(i, j int) bool { return es[i].Ordinal < es[j].Ordinal })
	for _, e := range es {
		fmt.Fprintf(h, "event:%d:%s:%v\n", e.Ordinal, e.Name, e.IsSync)
	}

	ss := make([]Slot, len(slots))
	copy(ss, slots)
	sort.Slice(ss, func(i, j int) bool { return ss[i].Ordinal < ss[j].Ordinal })
	for _, s := range ss {
		fmt.Fprintf(h, "slot:%d:%s\n", s.Ordinal, s.Name)
	}

	return fmt.Sprintf("%x", h.Sum(nil))
}
