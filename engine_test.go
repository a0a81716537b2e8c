package vuensight

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/uhodav/vuensight/internal/config"
	"github.com/uhodav/vuensight/internal/store"
	"github.com/uhodav/vuensight/internal/usage"
)

const buttonVue = `<template>
  <button @click="$emit('click')">{{ label }}<slot /><slot name="icon" /></button>
</template>

<script>
export default {
  name: 'Button',
  props: {
    label: { type: String, required: true },
    size: { type: String, default: 'md' },
  },
}
</script>
`

const appVue = `<template>
  <div>
    <Button label="Save" @click="save"><template #icon>+</template></Button>
  </div>
</template>

<script setup>
import Button from '@/components/Button.vue'
</script>
`

const pageVue = `<template>
  <section><my-btn :size="size" /></section>
</template>

<script>
import MyBtn from '../components/Button'

export default {
  components: { MyBtn },
}
</script>
`

// writeProject lays out a small project under root/src and returns root.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		p := filepath.Join(root, "src", filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	}
	return root
}

func defaultProject(t *testing.T) string {
	return writeProject(t, map[string]string{
		"components/Button.vue": buttonVue,
		"App.vue":               appVue,
		"views/Page.vue":        pageVue,
	})
}

func srcPath(root, rel string) string {
	return filepath.Join(root, "src", filepath.FromSlash(rel))
}

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	e, err := New(dbPath, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { e.Close() })
	return e
}

func indexAndAnalyze(t *testing.T, e *Engine, root string) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.IndexDirectory(ctx, root))
	require.NoError(t, e.Analyze(ctx))
}

func TestNew_CreatesStoreAndRuntime(t *testing.T) {
	e := newTestEngine(t)

	require.NotNil(t, e.store)
	require.NotNil(t, e.runtime)
	require.NotNil(t, e.Store())
	assert.NotEmpty(t, e.runtime.Rules(), "embedded rules are loaded")

	// Verify the DB is usable (migration ran).
	_, err := e.Store().InsertFile(&store.File{
		Path: "/tmp/x.vue", Language: "vue", Hash: "abc", LastIndexed: time.Now(),
	})
	require.NoError(t, err)
}

func TestNew_InvalidPath(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	_, err := New(filepath.Join(blocker, "db.sqlite"))
	require.Error(t, err)
}

func TestNew_CreatesDBDirectory(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), ".vuensight", "index.db")
	e, err := New(dbPath)
	require.NoError(t, err)
	defer e.Close()

	_, err = os.Stat(dbPath)
	require.NoError(t, err)
}

func TestClose(t *testing.T) {
	e, err := New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, e.Close())
}

func TestWithExtensions(t *testing.T) {
	root := writeProject(t, map[string]string{
		"Button.vue": buttonVue,
		"util.ts":    "export const x = 1\n",
	})
	e := newTestEngine(t, WithExtensions("vue"))

	require.NoError(t, e.IndexDirectory(context.Background(), root))

	files, err := e.Store().Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, srcPath(root, "Button.vue"), files[0].Path)
}

func TestWithConfig(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "app", "ui"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "ui", "Button.vue"), []byte(buttonVue), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "app", "Home.vue"), []byte(`<template><Button label="a" /></template>
<script setup>
import Button from '~ui/Button.vue'
</script>
`), 0644))

	cfg := config.Default()
	cfg.Dir = "app"
	cfg.Aliases = map[string]string{"~ui": "app/ui"}
	cfg.Workers = 2
	e := newTestEngine(t, WithConfig(cfg))
	assert.Equal(t, 2, e.workerCount())

	indexAndAnalyze(t, e, root)

	deps, err := e.Query().Dependents(filepath.Join(root, "app", "ui", "Button.vue"))
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, []string{"label"}, deps[0].PropNames)
}

func TestIndexFiles_SkipsUnsupportedExtensions(t *testing.T) {
	tmp := filepath.Join(t.TempDir(), "readme.md")
	require.NoError(t, os.WriteFile(tmp, []byte("# hi"), 0644))

	e := newTestEngine(t)
	require.NoError(t, e.IndexFiles(context.Background(), []string{tmp}))

	f, err := e.Store().FileByPath(tmp)
	require.NoError(t, err)
	assert.Nil(t, f)
}

func TestIndexFiles_ReportsUnreadableFiles(t *testing.T) {
	e := newTestEngine(t)
	missing := filepath.Join(t.TempDir(), "Gone.vue")

	err := e.IndexFiles(context.Background(), []string{missing})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexing had 1 error(s)")
}

func TestIndexFiles_SkipsUnchangedFiles(t *testing.T) {
	root := defaultProject(t)
	e := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, e.IndexDirectory(ctx, root))
	assert.Len(t, e.Changes().Added, 3)
	require.NoError(t, e.Analyze(ctx))

	require.NoError(t, e.IndexDirectory(ctx, root))
	assert.True(t, e.Changes().Empty())
	assert.Empty(t, e.changed)
}

func TestIndexFiles_ReindexesChangedFiles(t *testing.T) {
	root := defaultProject(t)
	e := newTestEngine(t)
	ctx := context.Background()
	indexAndAnalyze(t, e, root)

	button := srcPath(root, "components/Button.vue")
	before, err := e.Store().FileByPath(button)
	require.NoError(t, err)

	changed := []byte(buttonVue + "<style>button { color: red }</style>\n")
	require.NoError(t, os.WriteFile(button, changed, 0644))
	require.NoError(t, e.IndexFiles(ctx, []string{button}))

	after, err := e.Store().FileByPath(button)
	require.NoError(t, err)
	assert.Equal(t, before.ID, after.ID, "file ID is stable across reindex")
	assert.NotEqual(t, before.Hash, after.Hash)
	assert.Equal(t, []string{button}, e.Changes().Modified)
	assert.Empty(t, e.Changes().DeclarationsChanged, "style change keeps declarations")
}

func TestIndexFiles_DetectsDeclarationChange(t *testing.T) {
	root := defaultProject(t)
	e := newTestEngine(t)
	ctx := context.Background()
	indexAndAnalyze(t, e, root)

	button := srcPath(root, "components/Button.vue")
	updated := []byte(`<template><button><slot /></button></template>
<script setup>
defineProps<{ label: string; size?: string; variant?: string }>()
</script>
`)
	require.NoError(t, os.WriteFile(button, updated, 0644))
	require.NoError(t, e.IndexFiles(ctx, []string{button}))

	assert.Equal(t, []string{button}, e.Changes().DeclarationsChanged)
}

// extractedState keys stored components and imports by file path so that
// IDs assigned in different orders compare equal.
func extractedState(t *testing.T, s *store.Store) (map[string]store.Component, map[string][]store.Import) {
	t.Helper()
	comps, err := s.Components()
	require.NoError(t, err)
	byPath := map[string]store.Component{}
	for _, c := range comps {
		assert.Positive(t, c.ID)
		cp := *c
		cp.ID, cp.FileID = 0, 0
		byPath[c.Path] = cp
	}

	imps, err := s.Imports()
	require.NoError(t, err)
	byFile := map[string][]store.Import{}
	for _, imp := range imps {
		f, err := s.FileByID(imp.FileID)
		require.NoError(t, err)
		cp := *imp
		cp.ID, cp.FileID = 0, 0
		byFile[f.Path] = append(byFile[f.Path], cp)
	}
	return byPath, byFile
}

func TestIndexFiles_ParallelMatchesSerial(t *testing.T) {
	root := defaultProject(t)
	ctx := context.Background()

	serial := newTestEngine(t, WithParallel(false))
	require.NoError(t, serial.IndexDirectory(ctx, root))
	parallel := newTestEngine(t, WithParallel(true), WithWorkers(4))
	require.NoError(t, parallel.IndexDirectory(ctx, root))

	wantComps, wantImps := extractedState(t, serial.store)
	gotComps, gotImps := extractedState(t, parallel.store)
	require.Len(t, gotComps, 3)
	assert.Equal(t, wantComps, gotComps)
	assert.Equal(t, wantImps, gotImps)
	assert.Len(t, gotImps[srcPath(root, "App.vue")], 1)

	// A declaration change is still reported when extraction runs in batch.
	button := srcPath(root, "components/Button.vue")
	require.NoError(t, os.WriteFile(button, []byte(`<template><button><slot /></button></template>
<script setup>
defineProps<{ label: string }>()
</script>
`), 0644))
	require.NoError(t, parallel.IndexFiles(ctx, []string{button}))
	assert.Equal(t, []string{button}, parallel.Changes().DeclarationsChanged)

	comp, err := parallel.store.ComponentByPath(button)
	require.NoError(t, err)
	require.Len(t, comp.Props, 1)
	assert.Equal(t, "label", comp.Props[0].Name)

	// Analysis after a batched extraction records usage against real IDs.
	require.NoError(t, parallel.Analyze(ctx))
	deps, err := parallel.Query().Dependents(button)
	require.NoError(t, err)
	require.NotEmpty(t, deps)
	assert.Equal(t, srcPath(root, "App.vue"), deps[0].Path)
	assert.Equal(t, []string{"label"}, deps[0].PropNames)
}

func TestIndexDirectory_SkipsExcludedDirs(t *testing.T) {
	root := writeProject(t, map[string]string{
		"node_modules/lib/Lib.vue": buttonVue,
		"dist/Built.vue":           buttonVue,
		".cache/Hidden.vue":        buttonVue,
		"Kept.vue":                 buttonVue,
	})
	e := newTestEngine(t)

	require.NoError(t, e.IndexDirectory(context.Background(), root))

	files, err := e.Store().Files()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, srcPath(root, "Kept.vue"), files[0].Path)
}

func TestIndexDirectory_PrunesRemovedFiles(t *testing.T) {
	root := defaultProject(t)
	e := newTestEngine(t)
	ctx := context.Background()
	indexAndAnalyze(t, e, root)

	page := srcPath(root, "views/Page.vue")
	require.NoError(t, os.Remove(page))
	require.NoError(t, e.IndexDirectory(ctx, root))
	assert.Equal(t, []string{page}, e.Changes().Removed)
	require.NoError(t, e.Analyze(ctx))

	f, err := e.Store().FileByPath(page)
	require.NoError(t, err)
	assert.Nil(t, f)

	deps, err := e.Query().Dependents(srcPath(root, "components/Button.vue"))
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, srcPath(root, "App.vue"), deps[0].Path)
}

func TestAnalyze_RecordsUsage(t *testing.T) {
	for _, parallel := range []bool{true, false} {
		name := "serial"
		if parallel {
			name = "parallel"
		}
		t.Run(name, func(t *testing.T) {
			root := defaultProject(t)
			e := newTestEngine(t, WithParallel(parallel))
			indexAndAnalyze(t, e, root)

			deps, err := e.Query().Dependents(srcPath(root, "components/Button.vue"))
			require.NoError(t, err)
			require.Len(t, deps, 2)

			app := deps[0]
			assert.Equal(t, srcPath(root, "App.vue"), app.Path)
			assert.Equal(t, "App", app.Name)
			assert.Equal(t, []int{0}, app.UsedProps)
			assert.Equal(t, []string{"label"}, app.PropNames)
			assert.Equal(t, []string{"click"}, app.EventNames)
			assert.Equal(t, []string{"icon"}, app.SlotNames)

			// Page uses the component through the MyBtn alias.
			page := deps[1]
			assert.Equal(t, srcPath(root, "views/Page.vue"), page.Path)
			assert.Equal(t, []string{"size"}, page.PropNames)
			assert.Empty(t, page.EventNames)
			assert.Empty(t, page.SlotNames)
		})
	}
}

func TestAnalyzeParallel_ReportsStoreErrors(t *testing.T) {
	e := newTestEngine(t, WithParallel(true))
	ctx := context.Background()

	jobs := []analysisJob{{
		componentID: 1,
		component:   &usage.Component{Name: "Button"},
		dependent:   usage.DependentFile{FullPath: "/p/App.vue", Name: "App", FileContent: `<template><Button /></template>`},
	}}
	err := e.analyzeParallel(ctx, e.newAnalyzer(ctx), jobs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store usage /p/App.vue")

	us, err := e.store.Usages()
	require.NoError(t, err)
	assert.Empty(t, us)
}

func TestAnalyze_IncrementalDependentChange(t *testing.T) {
	root := defaultProject(t)
	e := newTestEngine(t)
	ctx := context.Background()
	indexAndAnalyze(t, e, root)

	app := srcPath(root, "App.vue")
	updated := `<template>
  <Button label="Save" size="lg">Go</Button>
</template>

<script setup>
import Button from '@/components/Button.vue'
</script>
`
	require.NoError(t, os.WriteFile(app, []byte(updated), 0644))
	require.NoError(t, e.IndexDirectory(ctx, root))
	require.NoError(t, e.Analyze(ctx))

	deps, err := e.Query().Dependents(srcPath(root, "components/Button.vue"))
	require.NoError(t, err)
	require.Len(t, deps, 2)
	assert.Equal(t, []string{"label", "size"}, deps[0].PropNames)
	assert.Empty(t, deps[0].EventNames)
	assert.Equal(t, []string{"default"}, deps[0].SlotNames)
	// The untouched dependent keeps its stored record.
	assert.Equal(t, []string{"size"}, deps[1].PropNames)
}

func TestAnalyze_NoChangesIsNoop(t *testing.T) {
	root := defaultProject(t)
	e := newTestEngine(t)
	ctx := context.Background()
	indexAndAnalyze(t, e, root)

	before, err := e.Store().Usages()
	require.NoError(t, err)

	require.NoError(t, e.IndexDirectory(ctx, root))
	require.NoError(t, e.Analyze(ctx))

	after, err := e.Store().Usages()
	require.NoError(t, err)
	require.Len(t, after, len(before))
	for i := range before {
		assert.Equal(t, before[i].ID, after[i].ID, "rows are not rewritten")
	}
}

func TestAnalyze_NewTargetResolvesExistingImport(t *testing.T) {
	root := writeProject(t, map[string]string{
		"App.vue": appVue,
	})
	e := newTestEngine(t)
	indexAndAnalyze(t, e, root)

	imps, err := e.Store().Imports()
	require.NoError(t, err)
	require.Len(t, imps, 1)
	assert.Empty(t, imps[0].ResolvedPath)

	button := srcPath(root, "components/Button.vue")
	require.NoError(t, os.MkdirAll(filepath.Dir(button), 0755))
	require.NoError(t, os.WriteFile(button, []byte(buttonVue), 0644))
	indexAndAnalyze(t, e, root)

	deps, err := e.Query().Dependents(button)
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Equal(t, []string{"label"}, deps[0].PropNames)
}

func TestAnalyze_RisorLegacySlotRule(t *testing.T) {
	root := writeProject(t, map[string]string{
		"components/Button.vue": buttonVue,
		"Legacy.vue": `<template>
  <Button label="x"><span slot="icon">*</span></Button>
</template>
<script>
import Button from './components/Button.vue'
export default { components: { Button } }
</script>
`,
	})
	e := newTestEngine(t)
	indexAndAnalyze(t, e, root)

	deps, err := e.Query().Dependents(srcPath(root, "components/Button.vue"))
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.Contains(t, deps[0].SlotNames, "icon")
}

func TestAnalyze_WithoutRules(t *testing.T) {
	root := writeProject(t, map[string]string{
		"components/Button.vue": buttonVue,
		"Legacy.vue": `<template>
  <Button label="x"><span slot="icon">*</span></Button>
</template>
<script setup>
import Button from './components/Button.vue'
</script>
`,
	})
	e := newTestEngine(t, WithRulesFS(fstest.MapFS{}))
	indexAndAnalyze(t, e, root)

	deps, err := e.Query().Dependents(srcPath(root, "components/Button.vue"))
	require.NoError(t, err)
	require.Len(t, deps, 1)
	assert.NotContains(t, deps[0].SlotNames, "icon")
}

func TestRulesChanged(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	root := defaultProject(t)

	e, err := New(dbPath)
	require.NoError(t, err)
	assert.True(t, e.RulesChanged(), "no stored hash on first run")
	indexAndAnalyze(t, e, root)
	assert.False(t, e.RulesChanged())
	require.NoError(t, e.Close())

	custom := fstest.MapFS{
		"prop/always.risor": &fstest.MapFile{Data: []byte("true")},
	}
	e2, err := New(dbPath, WithRulesFS(custom))
	require.NoError(t, err)
	defer e2.Close()
	assert.True(t, e2.RulesChanged())

	// A changed rule set triggers a full analysis even with no file changes.
	indexAndAnalyze(t, e2, root)
	deps, err := e2.Query().Dependents(srcPath(root, "components/Button.vue"))
	require.NoError(t, err)
	require.Len(t, deps, 2)
	for _, d := range deps {
		assert.Equal(t, []string{"label", "size"}, d.PropNames)
	}
}

func TestWithLogger_ReceivesEngineLogs(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	root := writeProject(t, map[string]string{
		"Broken.vue": "<template><div></div></template>\n<script>\nexport default {\n",
	})
	e := newTestEngine(t, WithLogger(zap.New(core)))

	require.NoError(t, e.IndexDirectory(context.Background(), root))
	require.NoError(t, e.Analyze(context.Background()))

	// A component that does not parse still yields a file row.
	f, err := e.Store().FileByPath(srcPath(root, "Broken.vue"))
	require.NoError(t, err)
	require.NotNil(t, f)
	assert.GreaterOrEqual(t, logs.FilterMessage("analysis planned").Len(), 1)
}
