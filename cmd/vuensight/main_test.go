package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uhodav/vuensight"
	"github.com/uhodav/vuensight/internal/config"
	"github.com/uhodav/vuensight/internal/usage"
)

func TestFindRepoRoot_DirectGitDir(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))

	assert.Equal(t, root, findRepoRoot(root))
}

func TestFindRepoRoot_NestedSubdirectory(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	deep := filepath.Join(root, "sub", "deep")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_ConfigFile(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "vuensight.yaml"), []byte("dir: src\n"), 0o644))
	deep := filepath.Join(root, "src", "components")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	assert.Equal(t, root, findRepoRoot(deep))
}

func TestFindRepoRoot_NoMarker(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	assert.Equal(t, dir, findRepoRoot(dir))
}

func TestResolveDBPath(t *testing.T) {
	defer func() { flagDB = "" }()

	cfg := config.Default()
	assert.Equal(t, filepath.Join("/p", ".vuensight", "index.db"), resolveDBPath("/p", cfg))

	cfg.DB = "cache/usage.db"
	assert.Equal(t, filepath.Join("/p", "cache", "usage.db"), resolveDBPath("/p", cfg))

	flagDB = "/abs/x.db"
	assert.Equal(t, "/abs/x.db", resolveDBPath("/p", cfg))
}

func TestResolveTargetDir(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	got, err := resolveTargetDir([]string{dir})
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	f := filepath.Join(dir, "file.vue")
	require.NoError(t, os.WriteFile(f, nil, 0o644))
	_, err = resolveTargetDir([]string{f})
	assert.ErrorContains(t, err, "not a directory")

	_, err = resolveTargetDir([]string{filepath.Join(dir, "missing")})
	assert.ErrorContains(t, err, "directory not found")
}

func TestValidateFormat(t *testing.T) {
	t.Parallel()
	assert.NoError(t, validateFormat("json"))
	assert.NoError(t, validateFormat("text"))
	assert.ErrorContains(t, validateFormat("yaml"), "invalid format")
}

func TestFormatComponentsText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	formatComponentsText(&buf, []CLIComponent{
		{Name: "Button", Path: "/p/Button.vue", Props: []string{"label", "size"}, Events: []string{"click"}, Slots: []string{}},
	})
	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "label, size")
	assert.Contains(t, out, "click")
	assert.Contains(t, out, "/p/Button.vue")
}

func TestFormatDependentsText_Empty(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	formatDependentsText(&buf, nil)
	assert.Contains(t, buf.String(), "no dependents")
}

func TestFormatUnusedText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	formatUnusedText(&buf, &vuensight.Unused{
		Component: "Button", Path: "/p/Button.vue", Dependents: 2,
		Props: []string{"size"}, Events: []string{}, Slots: []string{"default"},
	})
	out := buf.String()
	assert.Contains(t, out, "Button (2 dependents)")
	assert.Contains(t, out, "Unused props:  size")
	assert.Contains(t, out, "Unused events: -")
	assert.Contains(t, out, "Unused slots:  default")
}

func TestFormatReportText(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	formatReportText(&buf, []vuensight.ComponentReport{{
		Component: usage.Component{
			Name: "Button", FullPath: "/p/Button.vue",
			Props: []usage.Prop{{Name: "label"}, {Name: "size"}},
		},
		Dependents: []usage.Record{{Name: "App", UsedProps: []int{1, 7}}},
	}})
	out := buf.String()
	assert.Contains(t, out, "Button")
	assert.Contains(t, out, "App")
	assert.Contains(t, out, "size")
	assert.NotContains(t, out, "label")
}

func TestIndexedNames(t *testing.T) {
	t.Parallel()
	names := []string{"a", "b"}
	got := indexedNames([]int{1, -1, 5, 0}, len(names), func(i int) string { return names[i] })
	assert.Equal(t, []string{"b", "a"}, got)
}
