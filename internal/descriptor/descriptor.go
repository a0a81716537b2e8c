// Package descriptor extracts the declared props, events and slots of a
// component from its source file.
package descriptor

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/uhodav/vuensight/internal/runtime"
	"github.com/uhodav/vuensight/internal/sfc"
	"github.com/uhodav/vuensight/internal/usage"
)

const defaultSlot = "default"

// ParseComponentFile reads and parses the component at path.
func ParseComponentFile(path string) (*usage.Component, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("descriptor: reading %s: %w", path, err)
	}
	return Parse(path, content)
}

// Parse extracts the component declared by content. path selects the
// language and supplies the fallback name.
func Parse(path string, content []byte) (*usage.Component, error) {
	lang, ok := runtime.LanguageForFile(path)
	if !ok {
		return nil, fmt.Errorf("descriptor: unsupported file type %s", path)
	}

	c := newCollector()
	if lang == "vue" {
		d := sfc.Split(content)
		for _, script := range d.Scripts {
			if err := c.script(runtime.ScriptLanguage(script.Lang), []byte(script.Content)); err != nil {
				return nil, fmt.Errorf("descriptor: %s: %w", path, err)
			}
		}
		if d.Template != nil {
			c.template(d.Template.Content)
		}
	} else if err := c.script(lang, content); err != nil {
		return nil, fmt.Errorf("descriptor: %s: %w", path, err)
	}
	c.applyDefaults()

	name := c.name
	if name == "" {
		name = FileComponentName(path)
	}
	return &usage.Component{
		Name:        name,
		Props:       c.props,
		Events:      c.events,
		Slots:       c.slots,
		FullPath:    path,
		FileContent: string(content),
	}, nil
}

// FileComponentName derives a component name from its file path. An
// index file takes the name of its directory.
func FileComponentName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	if strings.EqualFold(name, "index") {
		if dir := filepath.Base(filepath.Dir(path)); dir != "." && dir != string(filepath.Separator) {
			return dir
		}
	}
	return name
}

type collector struct {
	name     string
	props    []usage.Prop
	events   []usage.Event
	slots    []usage.Slot
	seen     map[string]bool
	defaults map[string]any
}

func newCollector() *collector {
	return &collector{
		props:    []usage.Prop{},
		events:   []usage.Event{},
		slots:    []usage.Slot{},
		seen:     map[string]bool{},
		defaults: map[string]any{},
	}
}

func (c *collector) addProp(p usage.Prop) {
	if p.Name == "" || c.seen["p:"+p.Name] {
		return
	}
	c.seen["p:"+p.Name] = true
	c.props = append(c.props, p)
}

func (c *collector) addEvent(name string) {
	if name == "" || c.seen["e:"+name] {
		return
	}
	c.seen["e:"+name] = true
	c.events = append(c.events, usage.Event{Name: name, IsSync: strings.HasPrefix(name, "update:")})
}

func (c *collector) addSlot(name string) {
	if name == "" || c.seen["s:"+name] {
		return
	}
	c.seen["s:"+name] = true
	c.slots = append(c.slots, usage.Slot{Name: name})
}

func (c *collector) applyDefaults() {
	for i := range c.props {
		if v, ok := c.defaults[c.props[i].Name]; ok {
			c.props[i].Default = v
		}
	}
}

var (
	slotTag      = regexp.MustCompile(`(?i)<slot(?:\s([^>]*))?>`)
	slotNameAttr = regexp.MustCompile(`(?:^|\s)name\s*=\s*(?:"([^"]*)"|'([^']*)')`)
	templateEmit = regexp.MustCompile(`\$emit\(\s*['"]([^'"]+)['"]`)
	templateSlot = regexp.MustCompile(`\$(?:slots|scopedSlots)(?:\.([\w$]+)|\[\s*['"]([^'"]+)['"]\s*\])`)
)

// template collects slots declared with <slot> and events emitted inline.
func (c *collector) template(markup string) {
	for _, m := range slotTag.FindAllStringSubmatch(markup, -1) {
		name := defaultSlot
		if n := slotNameAttr.FindStringSubmatch(m[1]); n != nil {
			name = n[1] + n[2]
		}
		c.addSlot(name)
	}
	for _, m := range templateEmit.FindAllStringSubmatch(markup, -1) {
		c.addEvent(m[1])
	}
	for _, m := range templateSlot.FindAllStringSubmatch(markup, -1) {
		c.addSlot(m[1] + m[2])
	}
}
