package vuensight

import (
	"context"

	"github.com/uhodav/vuensight/internal/runtime"
	"github.com/uhodav/vuensight/internal/usage"
)

// validators returns the built-in registries extended with the loaded
// Risor rules. Risor rules run after the built-in ones of their kind.
func (e *Engine) validators(ctx context.Context) *usage.Validators {
	v := usage.DefaultValidators()
	rt := e.runtime
	for _, rule := range rt.RulesOf(runtime.KindProp) {
		v.Props.Register(usage.Rule[usage.Prop]{
			Name: rule.ID(),
			Match: func(el *usage.Element, p usage.Prop) bool {
				return rt.Eval(ctx, rule, subject(runtime.KindProp, p.Name, el))
			},
		})
	}
	for _, rule := range rt.RulesOf(runtime.KindEvent) {
		v.Events.Register(usage.Rule[usage.Event]{
			Name: rule.ID(),
			Match: func(el *usage.Element, ev usage.Event) bool {
				return rt.Eval(ctx, rule, subject(runtime.KindEvent, ev.Name, el))
			},
		})
	}
	for _, rule := range rt.RulesOf(runtime.KindSlot) {
		v.Slots.Register(usage.Rule[usage.Slot]{
			Name: rule.ID(),
			Match: func(el *usage.Element, s usage.Slot) bool {
				return rt.Eval(ctx, rule, subject(runtime.KindSlot, s.Name, el))
			},
		})
	}
	return v
}

// subject describes one (instance, channel) check to a rule script.
func subject(kind, name string, el *usage.Element) runtime.Subject {
	attrs := make([]runtime.Attr, 0, len(el.Attrs()))
	for _, a := range el.Attrs() {
		attrs = append(attrs, runtime.Attr{Name: a.Name, Value: a.Value})
	}
	return runtime.Subject{
		Kind:      kind,
		Name:      name,
		Camel:     usage.Camelize(name),
		Kebab:     usage.Kebabize(name),
		Tag:       el.Tag(),
		Inner:     el.Inner(),
		Synthetic: el.Synthetic(),
		Attrs:     attrs,
	}
}
