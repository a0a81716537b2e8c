package sfc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const buttonSFC = `<template>
  <button :disabled="disabled" @click="$emit('click')">
    <template v-if="label">{{ label }}</template>
    <slot />
  </button>
</template>

<script lang="ts">
export default { name: 'Button', props: ['label', 'disabled'] }
</script>

<script setup lang="ts">
const emit = defineEmits(['click'])
</script>

<style scoped>
button { color: red; }
</style>
`

func TestSplit(t *testing.T) {
	t.Parallel()
	d := Split([]byte(buttonSFC))

	require.NotNil(t, d.Template)
	assert.Contains(t, d.Template.Content, `<button :disabled="disabled"`)
	assert.Contains(t, d.Template.Content, `<template v-if="label">{{ label }}</template>`)
	assert.NotContains(t, d.Template.Content, "<script")

	require.Len(t, d.Scripts, 2)
	assert.Equal(t, "ts", d.Scripts[0].Lang)
	assert.False(t, d.Scripts[0].Setup)
	assert.Contains(t, d.Scripts[0].Content, "name: 'Button'")
	assert.True(t, d.Scripts[1].Setup)
	assert.Contains(t, d.Scripts[1].Content, "defineEmits")

	assert.Equal(t, 1, d.Styles)
	assert.Same(t, &d.Scripts[0], d.Script())
	assert.Same(t, &d.Scripts[1], d.ScriptSetup())
	assert.Equal(t, "typescript", d.ScriptLang())
}

func TestSplit_Empty(t *testing.T) {
	t.Parallel()
	d := Split(nil)
	assert.Nil(t, d.Template)
	assert.Empty(t, d.Scripts)
	assert.Nil(t, d.Script())
	assert.Nil(t, d.ScriptSetup())
	assert.Equal(t, "javascript", d.ScriptLang())
}

func TestSplit_TemplateLang(t *testing.T) {
	t.Parallel()
	d := Split([]byte("<template lang=\"pug\">\ndiv hello\n</template>\n"))
	require.NotNil(t, d.Template)
	assert.Equal(t, "pug", d.Template.Lang)
	assert.Equal(t, "\ndiv hello\n", d.Template.Content)
}

func TestScanTemplate(t *testing.T) {
	t.Parallel()
	b := scanTemplate(`<template><div><template #a>x</template></div></template><script></script>`)
	require.NotNil(t, b)
	assert.Equal(t, `<div><template #a>x</template></div>`, b.Content)

	assert.Nil(t, scanTemplate(`<div>no template</div>`))
	assert.Nil(t, scanTemplate(`<template><div>`))
}

func TestScanScripts(t *testing.T) {
	t.Parallel()
	blocks := scanScripts(`<script setup lang='ts'>let a = 1</script><script>export default {}</script>`)
	require.Len(t, blocks, 2)
	assert.True(t, blocks[0].Setup)
	assert.Equal(t, "ts", blocks[0].Lang)
	assert.Equal(t, "let a = 1", blocks[0].Content)
	assert.False(t, blocks[1].Setup)
}

func TestTemplateContent(t *testing.T) {
	t.Parallel()
	got, ok := TemplateContent(buttonSFC)
	require.True(t, ok)
	assert.Contains(t, got, "<slot />")

	_, ok = TemplateContent(`export default { name: 'Plain' }`)
	assert.False(t, ok)

	_, ok = TemplateContent("")
	assert.False(t, ok)

	got, ok = Extractor{}.TemplateContent(`<template><Child /></template>`)
	require.True(t, ok)
	assert.Equal(t, `<Child />`, got)
}
