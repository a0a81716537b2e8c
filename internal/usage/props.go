package usage

import "strings"

// defaultModelProps are the prop names a bare v-model binds: modelValue in
// Vue 3, value in Vue 2.
var defaultModelProps = []string{"modelValue", "value"}

func propRules() []Rule[Prop] {
	return []Rule[Prop]{
		{Name: "attribute", Match: func(el *Element, p Prop) bool {
			return anySpelling(p.Name, func(f string) bool { return el.HasAttr(f) })
		}},
		{Name: "bound", Match: func(el *Element, p Prop) bool {
			return anySpelling(p.Name, func(f string) bool {
				return el.hasDirective(":"+f) || el.hasDirective("v-bind:"+f)
			})
		}},
		{Name: "sync", Match: func(el *Element, p Prop) bool {
			return anySpelling(p.Name, func(f string) bool {
				return el.HasAttr(":"+f+".sync") || el.HasAttr("v-bind:"+f+".sync") || el.HasAttr(f+".sync")
			})
		}},
		{Name: "model-default", Match: func(el *Element, p Prop) bool {
			return isDefaultModelProp(p.Name) && el.hasDirective("v-model")
		}},
		{Name: "model-argument", Match: func(el *Element, p Prop) bool {
			return anySpelling(p.Name, func(f string) bool { return el.hasDirective("v-model:" + f) })
		}},
		{Name: "model-prefixed", Match: func(el *Element, p Prop) bool {
			key := modelKey(p.Name)
			return key != "" && anySpelling(key, func(f string) bool { return el.hasDirective("v-model:" + f) })
		}},
		{Name: "object-spread", Match: func(el *Element, _ Prop) bool {
			return el.HasAttr("v-bind")
		}},
		{Name: "attrs-proxy", Match: func(el *Element, _ Prop) bool {
			return el.anyAttr(func(a Attribute) bool {
				return isBindAttr(a.Name) && isProxyValue(a.Value, "$attrs", "$props")
			})
		}},
	}
}

// twoWayBound reports whether el binds prop with v-model or .sync sugar.
func twoWayBound(el *Element, prop string) bool {
	if isDefaultModelProp(prop) && el.hasDirective("v-model") {
		return true
	}
	if key := modelKey(prop); key != "" && anySpelling(key, func(f string) bool { return el.hasDirective("v-model:" + f) }) {
		return true
	}
	return anySpelling(prop, func(f string) bool {
		return el.hasDirective("v-model:"+f) || el.HasAttr(":"+f+".sync") || el.HasAttr("v-bind:"+f+".sync")
	})
}

func isDefaultModelProp(name string) bool {
	for _, m := range defaultModelProps {
		if name == m {
			return true
		}
	}
	return false
}

// modelKey strips the conventional "model" prefix from a prop name, so a
// prop modelTitle is bound by v-model:title. Returns "" when the name has no
// such prefix or is the default model prop.
func modelKey(name string) string {
	rest, ok := strings.CutPrefix(name, "model")
	if !ok || rest == "" || rest == "Value" || !isUpper(rest[0]) {
		return ""
	}
	return strings.ToLower(rest[:1]) + rest[1:]
}

func isBindAttr(name string) bool {
	lower := strings.ToLower(name)
	return lower == "v-bind" || strings.HasPrefix(lower, "v-bind:") || strings.HasPrefix(lower, ":")
}

func isProxyValue(value string, proxies ...string) bool {
	v := strings.TrimSpace(value)
	for _, p := range proxies {
		if v == p {
			return true
		}
	}
	return false
}

func anySpelling(name string, match func(form string) bool) bool {
	for _, f := range spellings(name) {
		if match(f) {
			return true
		}
	}
	return false
}
