package usage

// Rule is one syntactic encoding of "channel ch is referenced on el".
type Rule[C any] struct {
	Name  string
	Match func(el *Element, ch C) bool
}

// Validator is an ordered registry of rules for one channel kind. A channel
// is used when any rule matches; rules are tried in registration order and
// evaluation stops at the first match.
type Validator[C any] struct {
	rules []Rule[C]
}

// NewValidator returns a Validator holding rules in order.
func NewValidator[C any](rules ...Rule[C]) *Validator[C] {
	v := &Validator[C]{}
	v.Register(rules...)
	return v
}

// Register appends rules after the existing ones.
func (v *Validator[C]) Register(rules ...Rule[C]) {
	for _, r := range rules {
		if r.Match != nil {
			v.rules = append(v.rules, r)
		}
	}
}

// RuleNames returns the registered rule names in evaluation order.
func (v *Validator[C]) RuleNames() []string {
	names := make([]string, len(v.rules))
	for i, r := range v.rules {
		names[i] = r.Name
	}
	return names
}

// Used reports whether any rule matches ch on el.
func (v *Validator[C]) Used(el *Element, ch C) bool {
	if el == nil {
		return false
	}
	for _, r := range v.rules {
		if r.Match(el, ch) {
			return true
		}
	}
	return false
}

// MatchedBy returns the name of the first rule matching ch on el, or "".
func (v *Validator[C]) MatchedBy(el *Element, ch C) string {
	if el == nil {
		return ""
	}
	for _, r := range v.rules {
		if r.Match(el, ch) {
			return r.Name
		}
	}
	return ""
}

// Validators bundles the registries for the three channel kinds.
type Validators struct {
	Props  *Validator[Prop]
	Events *Validator[Event]
	Slots  *Validator[Slot]
}

// DefaultValidators returns fresh registries holding the built-in rules.
// Callers may Register additional rules on the result.
func DefaultValidators() *Validators {
	return &Validators{
		Props:  NewValidator(propRules()...),
		Events: NewValidator(eventRules()...),
		Slots:  NewValidator(slotRules()...),
	}
}
