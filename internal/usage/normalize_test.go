package usage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_Empty(t *testing.T) {
	t.Parallel()
	f := Normalize("")
	require.NotNil(t, f)
	assert.Empty(t, f.Elements())
	assert.Equal(t, "", f.Raw())
}

func TestNormalize_ElementsInDocumentOrder(t *testing.T) {
	t.Parallel()
	f := Normalize(`<div class="a"><Button label="Go" @click="onClick" /><span>x</span></div>`)

	var tags []string
	for _, el := range f.Elements() {
		tags = append(tags, el.Tag())
	}
	assert.Equal(t, []string{"div", "Button", "span"}, tags)
}

func TestNormalize_Attributes(t *testing.T) {
	t.Parallel()
	f := Normalize(`<Button label="Go" :disabled="busy" @click.stop="onClick" hidden />`)
	require.Len(t, f.Elements(), 1)
	el := f.Elements()[0]

	v, ok := el.Attr("label")
	assert.True(t, ok)
	assert.Equal(t, "Go", v)

	v, ok = el.Attr(":DISABLED")
	assert.True(t, ok, "attribute names compare case-insensitively")
	assert.Equal(t, "busy", v)

	_, ok = el.Attr("hidden")
	assert.True(t, ok, "valueless attribute is present")

	_, ok = el.Attr("missing")
	assert.False(t, ok)

	assert.True(t, el.hasDirective("@click"))
	assert.False(t, el.hasDirective("@cli"))
}

func TestNormalize_TemplateSentinel(t *testing.T) {
	t.Parallel()
	raw := `<Card><template #header>Title</template></Card>`
	f := Normalize(raw)

	assert.Equal(t, raw, f.Raw(), "raw keeps the text as given")
	require.NotEmpty(t, f.Elements())
	card := f.Elements()[0]
	assert.Equal(t, "Card", card.Tag())
	assert.Equal(t, `<temp-tag #header>Title</temp-tag>`, card.Inner())
	assert.Equal(t, templateSentinel, f.Elements()[1].Tag())
}

func TestNormalize_InnerMarkup(t *testing.T) {
	t.Parallel()
	f := Normalize(`<Panel title="x"><p>hello</p></Panel>`)
	require.NotEmpty(t, f.Elements())
	assert.Equal(t, "<p>hello</p>", f.Elements()[0].Inner())
}

func TestNormalize_DefaultContent(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name   string
		markup string
		want   bool
	}{
		{"text", `<Panel>hello</Panel>`, true},
		{"element", `<Panel><p>x</p></Panel>`, true},
		{"whitespace", "<Panel>\n  </Panel>", false},
		{"named slot only", `<Panel><template #header>x</template></Panel>`, false},
		{"comment only", `<Panel><!-- nothing --></Panel>`, false},
		{"self closing", `<Panel />`, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := Normalize(tc.markup)
			require.NotEmpty(t, f.Elements())
			assert.Equal(t, tc.want, f.Elements()[0].defaultContent)
		})
	}
}

func TestNormalize_MalformedMarkupDoesNotPanic(t *testing.T) {
	t.Parallel()
	inputs := []string{
		`<div><Button label="x"`,
		`</div></div><Button>`,
		`<<<>>>`,
		`<Button :a="1" :b=>`,
	}
	for _, in := range inputs {
		assert.NotPanics(t, func() { Normalize(in) }, in)
	}
}
