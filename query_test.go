package vuensight

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func analyzedProject(t *testing.T) (*Engine, string) {
	t.Helper()
	root := defaultProject(t)
	e := newTestEngine(t)
	indexAndAnalyze(t, e, root)
	return e, root
}

func TestQuery_Components(t *testing.T) {
	e, root := analyzedProject(t)

	comps, err := e.Query().Components()
	require.NoError(t, err)
	require.Len(t, comps, 3)

	var button *Component
	for _, c := range comps {
		if c.Name == "Button" {
			button = c
		}
	}
	require.NotNil(t, button)
	assert.Equal(t, srcPath(root, "components/Button.vue"), button.Path)
	require.Len(t, button.Props, 2)
	assert.Equal(t, "label", button.Props[0].Name)
	assert.True(t, button.Props[0].Required)
	assert.Equal(t, "md", button.Props[1].Default)
	require.Len(t, button.Events, 1)
	assert.Equal(t, "click", button.Events[0].Name)
	require.Len(t, button.Slots, 2)
	assert.Equal(t, "default", button.Slots[0].Name)
	assert.Equal(t, "icon", button.Slots[1].Name)
}

func TestQuery_Find(t *testing.T) {
	e, root := analyzedProject(t)
	q := e.Query()

	t.Run("by name", func(t *testing.T) {
		c, err := q.Find("Button")
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, srcPath(root, "components/Button.vue"), c.Path)
	})

	t.Run("by path", func(t *testing.T) {
		c, err := q.Find(srcPath(root, "views/Page.vue"))
		require.NoError(t, err)
		require.NotNil(t, c)
		assert.Equal(t, "Page", c.Name)
	})

	t.Run("unknown", func(t *testing.T) {
		c, err := q.Find("Nope")
		require.NoError(t, err)
		assert.Nil(t, c)
	})
}

func TestQuery_FindAmbiguous(t *testing.T) {
	root := writeProject(t, map[string]string{
		"a/Button.vue": buttonVue,
		"b/Button.vue": buttonVue,
	})
	e := newTestEngine(t)
	indexAndAnalyze(t, e, root)

	_, err := e.Query().Find("Button")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestQuery_DependentsUnknownComponent(t *testing.T) {
	e, root := analyzedProject(t)

	deps, err := e.Query().Dependents(srcPath(root, "Missing.vue"))
	require.NoError(t, err)
	assert.Nil(t, deps)
}

func TestQuery_UnusedChannels(t *testing.T) {
	e, root := analyzedProject(t)

	unused, err := e.Query().UnusedChannels(srcPath(root, "components/Button.vue"))
	require.NoError(t, err)
	require.NotNil(t, unused)
	assert.Equal(t, "Button", unused.Component)
	assert.Equal(t, 2, unused.Dependents)
	assert.Empty(t, unused.Props, "label and size are both used")
	assert.Empty(t, unused.Events)
	assert.Equal(t, []string{"default"}, unused.Slots)
}

func TestQuery_UnusedChannelsWithoutDependents(t *testing.T) {
	root := writeProject(t, map[string]string{"Button.vue": buttonVue})
	e := newTestEngine(t)
	indexAndAnalyze(t, e, root)

	unused, err := e.Query().UnusedChannels(srcPath(root, "Button.vue"))
	require.NoError(t, err)
	assert.Equal(t, 0, unused.Dependents)
	assert.Equal(t, []string{"label", "size"}, unused.Props)
	assert.Equal(t, []string{"click"}, unused.Events)
	assert.Equal(t, []string{"default", "icon"}, unused.Slots)
}

func TestQuery_Report(t *testing.T) {
	e, root := analyzedProject(t)

	report, err := e.Query().Report()
	require.NoError(t, err)
	require.Len(t, report, 3)

	var button *ComponentReport
	for i := range report {
		if report[i].Name == "Button" {
			button = &report[i]
		}
	}
	require.NotNil(t, button)
	require.Len(t, button.Dependents, 2)
	assert.Equal(t, srcPath(root, "App.vue"), button.Dependents[0].FullPath)
	assert.Equal(t, []int{0}, button.Dependents[0].UsedProps)
	assert.Equal(t, []int{1}, button.Dependents[1].UsedProps)

	data, err := json.Marshal(button)
	require.NoError(t, err)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(data, &payload))
	assert.Equal(t, "Button", payload["name"])
	assert.Contains(t, payload, "fullPath")
	deps := payload["dependents"].([]any)
	first := deps[0].(map[string]any)
	assert.Contains(t, first, "usedProps")
	assert.Contains(t, first, "usedSlots")
}
