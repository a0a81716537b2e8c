package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocate_PascalAndKebab(t *testing.T) {
	t.Parallel()
	f := Normalize(`<div><MyButton label="a" /><my-button label="b"></my-button><other /></div>`)
	found := Locate(f, "MyButton")
	require.Len(t, found, 2)

	v, _ := found[0].Attr("label")
	assert.Equal(t, "a", v)
	v, _ = found[1].Attr("label")
	assert.Equal(t, "b", v)
	for _, el := range found {
		assert.False(t, el.Synthetic())
	}
}

func TestLocate_CaseInsensitiveTag(t *testing.T) {
	t.Parallel()
	f := Normalize(`<MYBUTTON /><mybutton />`)
	assert.Len(t, Locate(f, "MyButton"), 2)
}

func TestLocate_SingleWordNameMatchedOnce(t *testing.T) {
	t.Parallel()
	// "Button" and its kebab form "button" select the same element.
	f := Normalize(`<Button label="Go" />`)
	assert.Len(t, Locate(f, "Button"), 1)
}

func TestLocate_NoMatch(t *testing.T) {
	t.Parallel()
	f := Normalize(`<div><span /></div>`)
	assert.Empty(t, Locate(f, "MyButton"))
	assert.Empty(t, Locate(nil, "MyButton"))
	assert.Empty(t, Locate(f, ""))
}

func TestLocate_FallbackSynthesizesPlaceholders(t *testing.T) {
	t.Parallel()
	// The sentinel rewrite turns <template-list> into <temp-tag-list>, which
	// the structural pass cannot match; the raw text still shows two uses.
	raw := `<div><template-list :items="a"></template-list><template-list>x</template-list></div>`
	found := Locate(Normalize(raw), "TemplateList")
	require.Len(t, found, 2)
	for _, el := range found {
		assert.True(t, el.Synthetic())
		assert.Empty(t, el.Attrs())
		assert.Empty(t, el.Inner())
	}
}

func TestLocate_FallbackRequiresTagBoundary(t *testing.T) {
	t.Parallel()
	raw := `<template-listing></template-listing>`
	assert.Empty(t, Locate(Normalize(raw), "TemplateList"))
}

func TestLocate_FallbackPlaceholdersFailAttributeRules(t *testing.T) {
	t.Parallel()
	raw := `<template-list v-bind="all"></template-list>`
	found := Locate(Normalize(raw), "TemplateList")
	require.Len(t, found, 1)

	v := DefaultValidators()
	assert.False(t, v.Props.Used(found[0], Prop{Name: "items"}))
	assert.False(t, v.Events.Used(found[0], Event{Name: "change"}))
	assert.False(t, v.Slots.Used(found[0], Slot{Name: "default"}))
}
