package descriptor

import (
	"context"
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/uhodav/vuensight/internal/runtime"
	"github.com/uhodav/vuensight/internal/usage"
)

// scriptWalk holds the parse state of one script block.
type scriptWalk struct {
	*collector
	src []byte
	// types maps local interface and type alias names to their bodies so
	// defineProps<Props>() can be followed.
	types map[string]*sitter.Node
}

func (c *collector) script(lang string, src []byte) error {
	if strings.TrimSpace(string(src)) == "" {
		return nil
	}
	tree, err := runtime.Parse(context.Background(), lang, src)
	if err != nil {
		return err
	}
	defer tree.Close()

	w := &scriptWalk{collector: c, src: src, types: map[string]*sitter.Node{}}
	root := tree.RootNode()
	w.collectTypes(root)
	w.walk(root)
	return nil
}

func (w *scriptWalk) text(n *sitter.Node) string { return n.Content(w.src) }

func (w *scriptWalk) collectTypes(n *sitter.Node) {
	switch n.Type() {
	case "interface_declaration":
		if name, body := n.ChildByFieldName("name"), n.ChildByFieldName("body"); name != nil && body != nil {
			w.types[w.text(name)] = body
		}
	case "type_alias_declaration":
		if name, value := n.ChildByFieldName("name"), n.ChildByFieldName("value"); name != nil && value != nil {
			w.types[w.text(name)] = value
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.collectTypes(n.NamedChild(i))
	}
}

func (w *scriptWalk) walk(n *sitter.Node) {
	switch n.Type() {
	case "export_statement":
		if v := n.ChildByFieldName("value"); v != nil && v.Type() == "object" {
			w.options(v)
		}
	case "call_expression":
		w.call(n)
	case "member_expression":
		if w.isSlotsObject(n.ChildByFieldName("object")) {
			if p := n.ChildByFieldName("property"); p != nil {
				w.addSlot(w.text(p))
			}
		}
	case "subscript_expression":
		if w.isSlotsObject(n.ChildByFieldName("object")) {
			if idx := n.ChildByFieldName("index"); idx != nil && idx.Type() == "string" {
				w.addSlot(unquote(w.text(idx)))
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.walk(n.NamedChild(i))
	}
}

func (w *scriptWalk) isSlotsObject(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "identifier":
		name := w.text(n)
		return name == "$slots" || name == "$scopedSlots"
	case "member_expression":
		p := n.ChildByFieldName("property")
		if p == nil {
			return false
		}
		name := w.text(p)
		return name == "$slots" || name == "$scopedSlots"
	}
	return false
}

func (w *scriptWalk) call(n *sitter.Node) {
	fn := n.ChildByFieldName("function")
	if fn == nil {
		return
	}
	args := positional(n.ChildByFieldName("arguments"))
	arg := func(i int) *sitter.Node {
		if i < len(args) {
			return args[i]
		}
		return nil
	}

	switch fn.Type() {
	case "identifier":
		switch w.text(fn) {
		case "defineComponent", "defineOptions":
			if a := arg(0); a != nil && a.Type() == "object" {
				w.options(a)
			}
		case "defineProps":
			w.defineProps(n, arg(0))
		case "withDefaults":
			if a := arg(1); a != nil && a.Type() == "object" {
				for _, p := range pairs(a) {
					w.defaults[w.key(p)] = w.literal(p.ChildByFieldName("value"))
				}
			}
		case "defineEmits":
			w.defineEmits(n, arg(0))
		case "defineModel":
			name := "modelValue"
			if a := arg(0); a != nil && a.Type() == "string" {
				name = unquote(w.text(a))
			}
			prop := usage.Prop{Name: name}
			for _, a := range args {
				if a.Type() == "object" {
					w.propOptions(&prop, a)
				}
			}
			w.addProp(prop)
			w.addEvent("update:" + name)
		case "defineSlots":
			if body := w.typeBody(n); body != nil {
				for _, m := range members(body) {
					w.addSlot(w.memberName(m))
				}
			}
		case "emit", "$emit":
			w.emitted(arg(0))
		}
	case "member_expression":
		obj, prop := fn.ChildByFieldName("object"), fn.ChildByFieldName("property")
		if obj == nil || prop == nil {
			return
		}
		switch method := w.text(prop); {
		case method == "$emit" || method == "emit":
			w.emitted(arg(0))
		case w.text(obj) == "Vue" && method == "extend":
			if a := arg(0); a != nil && a.Type() == "object" {
				w.options(a)
			}
		case w.text(obj) == "Vue" && method == "component":
			if a := arg(0); a != nil && a.Type() == "string" && w.name == "" {
				w.name = unquote(w.text(a))
			}
			if a := arg(1); a != nil && a.Type() == "object" {
				w.options(a)
			}
		}
	}
}

func (w *scriptWalk) emitted(a *sitter.Node) {
	if a != nil && a.Type() == "string" {
		w.addEvent(unquote(w.text(a)))
	}
}

// options reads an options-API component definition.
func (w *scriptWalk) options(obj *sitter.Node) {
	for _, p := range pairs(obj) {
		value := p.ChildByFieldName("value")
		if value == nil {
			continue
		}
		switch w.key(p) {
		case "name":
			if value.Type() == "string" && w.name == "" {
				w.name = unquote(w.text(value))
			}
		case "props":
			w.propsValue(value)
		case "emits":
			w.emitsValue(value)
		}
	}
}

func (w *scriptWalk) propsValue(value *sitter.Node) {
	switch value.Type() {
	case "array":
		for _, el := range named(value) {
			if el.Type() == "string" {
				w.addProp(usage.Prop{Name: unquote(w.text(el))})
			}
		}
	case "object":
		for _, p := range pairs(value) {
			prop := usage.Prop{Name: w.key(p)}
			if v := p.ChildByFieldName("value"); v != nil {
				if v.Type() == "object" {
					w.propOptions(&prop, v)
				} else {
					prop.Type = w.constructorType(v)
				}
			}
			w.addProp(prop)
		}
		for _, s := range named(value) {
			if s.Type() == "shorthand_property_identifier" {
				w.addProp(usage.Prop{Name: w.text(s)})
			}
		}
	}
}

// propOptions reads {type, required, default} of one prop.
func (w *scriptWalk) propOptions(prop *usage.Prop, obj *sitter.Node) {
	for _, p := range pairs(obj) {
		v := p.ChildByFieldName("value")
		if v == nil {
			continue
		}
		switch w.key(p) {
		case "type":
			prop.Type = w.constructorType(v)
		case "required":
			prop.Required = v.Type() == "true"
		case "default":
			prop.Default = w.literal(v)
		}
	}
}

func (w *scriptWalk) constructorType(v *sitter.Node) string {
	switch v.Type() {
	case "identifier":
		return strings.ToLower(w.text(v))
	case "array":
		var parts []string
		for _, el := range named(v) {
			if t := w.constructorType(el); t != "" {
				parts = append(parts, t)
			}
		}
		return strings.Join(parts, "|")
	case "null":
		return ""
	}
	return w.text(v)
}

func (w *scriptWalk) emitsValue(value *sitter.Node) {
	switch value.Type() {
	case "array":
		for _, el := range named(value) {
			if el.Type() == "string" {
				w.addEvent(unquote(w.text(el)))
			}
		}
	case "object":
		for _, p := range pairs(value) {
			w.addEvent(w.key(p))
		}
	}
}

func (w *scriptWalk) defineProps(call, arg *sitter.Node) {
	if arg != nil {
		w.propsValue(arg)
		return
	}
	body := w.typeBody(call)
	if body == nil {
		return
	}
	for _, m := range members(body) {
		if m.Type() != "property_signature" {
			continue
		}
		prop := usage.Prop{Name: w.memberName(m), Required: !optional(m)}
		if t := m.ChildByFieldName("type"); t != nil {
			prop.Type = strings.TrimSpace(strings.TrimPrefix(w.text(t), ":"))
		}
		w.addProp(prop)
	}
}

func (w *scriptWalk) defineEmits(call, arg *sitter.Node) {
	if arg != nil {
		w.emitsValue(arg)
		return
	}
	body := w.typeBody(call)
	if body == nil {
		return
	}
	for _, m := range members(body) {
		switch m.Type() {
		case "call_signature":
			// (e: 'change' | 'close', id: number): void
			params := m.ChildByFieldName("parameters")
			if params == nil || params.NamedChildCount() == 0 {
				continue
			}
			if t := params.NamedChild(0).ChildByFieldName("type"); t != nil {
				for _, s := range w.stringLiterals(t) {
					w.addEvent(s)
				}
			}
		case "property_signature":
			w.addEvent(w.memberName(m))
		}
	}
}

// typeBody returns the object type given as the first type argument of a
// macro call, following a local interface or type alias by name.
func (w *scriptWalk) typeBody(call *sitter.Node) *sitter.Node {
	targs := call.ChildByFieldName("type_arguments")
	if targs == nil || targs.NamedChildCount() == 0 {
		return nil
	}
	t := targs.NamedChild(0)
	for depth := 0; t != nil && depth < 8; depth++ {
		switch t.Type() {
		case "object_type", "interface_body":
			return t
		case "type_identifier":
			t = w.types[w.text(t)]
		default:
			return nil
		}
	}
	return nil
}

func (w *scriptWalk) stringLiterals(n *sitter.Node) []string {
	if n.Type() == "string" {
		return []string{unquote(w.text(n))}
	}
	var out []string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, w.stringLiterals(n.NamedChild(i))...)
	}
	return out
}

func (w *scriptWalk) memberName(m *sitter.Node) string {
	name := m.ChildByFieldName("name")
	if name == nil {
		return ""
	}
	if name.Type() == "string" {
		return unquote(w.text(name))
	}
	return w.text(name)
}

func (w *scriptWalk) key(pair *sitter.Node) string {
	k := pair.ChildByFieldName("key")
	if k == nil {
		return ""
	}
	if k.Type() == "string" {
		return unquote(w.text(k))
	}
	return w.text(k)
}

// literal converts a JS literal to its Go value. Other expressions are
// kept as source text.
func (w *scriptWalk) literal(v *sitter.Node) any {
	if v == nil {
		return nil
	}
	text := w.text(v)
	switch v.Type() {
	case "string":
		return unquote(text)
	case "number":
		if i, err := strconv.ParseInt(text, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	case "true":
		return true
	case "false":
		return false
	case "null", "undefined":
		return nil
	}
	return text
}

func optional(sig *sitter.Node) bool {
	for i := 0; i < int(sig.ChildCount()); i++ {
		if sig.Child(i).Type() == "?" {
			return true
		}
	}
	return false
}

func members(body *sitter.Node) []*sitter.Node { return named(body) }

func pairs(obj *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for _, n := range named(obj) {
		if n.Type() == "pair" {
			out = append(out, n)
		}
	}
	return out
}

func positional(args *sitter.Node) []*sitter.Node {
	if args == nil {
		return nil
	}
	var out []*sitter.Node
	for _, n := range named(args) {
		if n.Type() != "comment" {
			out = append(out, n)
		}
	}
	return out
}

func named(n *sitter.Node) []*sitter.Node {
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}
