package usage

import "strings"

const updatePrefix = "update:"

func eventRules() []Rule[Event] {
	return []Rule[Event]{
		{Name: "listener", Match: func(el *Element, e Event) bool {
			return anySpelling(e.Name, func(f string) bool {
				return el.hasDirective("@"+f) || el.hasDirective("v-on:"+f)
			})
		}},
		{Name: "update-listener", Match: func(el *Element, e Event) bool {
			return anySpelling(e.Name, func(f string) bool {
				return el.hasDirective("@"+updatePrefix+f) || el.hasDirective("v-on:"+updatePrefix+f)
			})
		}},
		{Name: "object-listeners", Match: func(el *Element, _ Event) bool {
			return el.HasAttr("v-on")
		}},
		{Name: "listeners-proxy", Match: func(el *Element, _ Event) bool {
			return el.anyAttr(func(a Attribute) bool {
				return (isBindAttr(a.Name) || strings.EqualFold(a.Name, "v-on")) &&
					isProxyValue(a.Value, "$listeners", "$attrs")
			})
		}},
		{Name: "two-way-sugar", Match: func(el *Element, e Event) bool {
			prop, ok := strings.CutPrefix(e.Name, updatePrefix)
			return ok && prop != "" && twoWayBound(el, prop)
		}},
		{Name: "dynamic-update-listener", Match: func(el *Element, e Event) bool {
			if !strings.HasPrefix(e.Name, updatePrefix) {
				return false
			}
			return el.anyAttr(func(a Attribute) bool {
				lower := strings.ToLower(a.Name)
				return strings.HasPrefix(lower, "@"+updatePrefix) || strings.HasPrefix(lower, "v-on:"+updatePrefix)
			})
		}},
	}
}
