package vuensight

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uhodav/vuensight/internal/config"
	"github.com/uhodav/vuensight/internal/descriptor"
	"github.com/uhodav/vuensight/internal/imports"
	"github.com/uhodav/vuensight/internal/runtime"
	"github.com/uhodav/vuensight/internal/store"
	"github.com/uhodav/vuensight/rules"
)

const rulesHashKey = "rules_hash"

// Engine orchestrates the vuensight pipeline: file discovery, change
// detection, component and import extraction, usage analysis, and query
// access.
type Engine struct {
	store   *store.Store
	runtime *runtime.Runtime
	cfg     *config.Config
	logger  *zap.Logger

	rulesFS    fs.FS
	rulesDir   string
	extensions map[string]bool
	workers    int

	// root is the project root used to resolve import aliases.
	root string

	// changed accumulates file IDs whose usage edges need re-analysis.
	// nil means "analyze everything" (first run or full reindex).
	changed map[int64]bool
	changes ChangeSet

	// useParallel enables the parallel extraction and analysis pipelines.
	useParallel bool
}

// ChangeSet summarizes what indexing changed since the last Analyze.
type ChangeSet struct {
	Added    []string `json:"added"`
	Modified []string `json:"modified"`
	Removed  []string `json:"removed"`
	// DeclarationsChanged lists components whose props, events or slots
	// differ from the previously indexed version.
	DeclarationsChanged []string `json:"declarations_changed"`
}

// Empty reports whether nothing changed.
func (c ChangeSet) Empty() bool {
	return len(c.Added)+len(c.Modified)+len(c.Removed) == 0
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithParallel controls the parallel pipelines. When true (default),
// IndexFiles extracts and Analyze analyzes on a worker pool, each
// committing one batch.
func WithParallel(parallel bool) Option {
	return func(e *Engine) {
		e.useParallel = parallel
	}
}

// WithWorkers sets the worker count for file loading and analysis.
// Zero or less means one per CPU.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithConfig applies a project configuration: extensions, aliases,
// exclusions, workers and the rules directory.
func WithConfig(cfg *config.Config) Option {
	return func(e *Engine) {
		if cfg == nil {
			return
		}
		e.cfg = cfg
		if cfg.Workers > 0 {
			e.workers = cfg.Workers
		}
		if cfg.RulesDir != "" {
			e.rulesDir = cfg.RulesDir
		}
		if len(cfg.Extensions) > 0 {
			WithExtensions(cfg.Extensions...)(e)
		}
	}
}

// WithRulesFS replaces the embedded default rule scripts.
func WithRulesFS(fsys fs.FS) Option {
	return func(e *Engine) {
		e.rulesFS = fsys
	}
}

// WithRulesDir adds rule scripts from a directory on disk. They are loaded
// after the embedded ones and override rules with the same name.
func WithRulesDir(dir string) Option {
	return func(e *Engine) {
		e.rulesDir = dir
	}
}

// WithExtensions restricts which file extensions the Engine indexes.
func WithExtensions(exts ...string) Option {
	return func(e *Engine) {
		e.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			e.extensions[strings.ToLower(ext)] = true
		}
	}
}

// New creates an Engine backed by a SQLite database at dbPath.
// Rule loading order:
//  1. WithRulesFS if set, otherwise the embedded defaults
//  2. WithRulesDir (or the config's rules_dir) on top
func New(dbPath string, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:         config.Default(),
		logger:      zap.NewNop(),
		rulesFS:     rules.FS,
		useParallel: true, // default to parallel analysis
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.extensions == nil {
		WithExtensions(e.cfg.Extensions...)(e)
	}

	if dir := filepath.Dir(dbPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("vuensight: create db dir: %w", err)
		}
	}
	s, err := store.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("vuensight: create store: %w", err)
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, fmt.Errorf("vuensight: migrate: %w", err)
	}
	e.store = s

	rtOpts := []runtime.RuntimeOption{runtime.WithRuntimeLogger(e.logger)}
	if e.rulesFS != nil {
		rtOpts = append(rtOpts, runtime.WithRuntimeFS(e.rulesFS))
	}
	if e.rulesDir != "" {
		rtOpts = append(rtOpts, runtime.WithRulesDir(e.rulesDir))
	}
	e.runtime = runtime.NewRuntime(rtOpts...)
	if err := e.runtime.Load(); err != nil {
		s.Close()
		return nil, fmt.Errorf("vuensight: load rules: %w", err)
	}
	return e, nil
}

// Close releases the Engine's database resources.
func (e *Engine) Close() error {
	return e.store.Close()
}

// Store returns the underlying Store for direct access.
func (e *Engine) Store() *Store {
	return e.store
}

// Query returns a new QueryBuilder wrapping the Store.
func (e *Engine) Query() *QueryBuilder {
	return &QueryBuilder{store: e.store}
}

// Changes returns the changes accumulated since the last Analyze.
func (e *Engine) Changes() ChangeSet {
	return e.changes
}

// RulesChanged reports whether the loaded rule scripts differ from the ones
// used to build the stored analysis. A database with no stored hash counts
// as changed.
func (e *Engine) RulesChanged() bool {
	stored, err := e.store.Metadata(rulesHashKey)
	if err != nil || stored == "" {
		return true
	}
	return stored != e.runtime.Hash()
}

func (e *Engine) workerCount() int {
	if e.workers > 0 {
		return e.workers
	}
	return goruntime.NumCPU()
}

// supported reports whether path has an indexed extension and a known
// language.
func (e *Engine) supported(path string) (string, bool) {
	if !e.extensions[strings.ToLower(filepath.Ext(path))] {
		return "", false
	}
	return runtime.LanguageForFile(path)
}

// loadedFile is a file read during the loading phase of IndexFiles.
type loadedFile struct {
	path    string
	lang    string
	content []byte
	hash    string
	err     error

	id      int64
	existed bool
	oldDecl string
	newDecl string
}

// IndexFiles indexes the given file paths.
//
// For each file:
//  1. Skip unsupported extensions
//  2. Read and hash the content (bounded parallel)
//  3. Skip unchanged files (same content hash)
//  4. Delete stale data and insert/update the file record (serial)
//  5. Extract the component (.vue files) and imports, on a worker pool
//     into one committed batch when parallel, else straight to the store
//
// Errors on individual files are logged and skipped; processing continues.
func (e *Engine) IndexFiles(ctx context.Context, paths []string) error {
	// Initialize the change set so Analyze can distinguish "no changes"
	// (non-nil empty map) from "first run" (nil).
	if e.changed == nil {
		e.changed = make(map[int64]bool)
	}

	files, err := e.loadFiles(ctx, paths)
	if err != nil {
		return fmt.Errorf("vuensight: load files: %w", err)
	}

	var errs []error
	fail := func(f *loadedFile, err error) {
		e.logger.Warn("index failed", zap.String("path", f.path), zap.Error(err))
		errs = append(errs, fmt.Errorf("index %s: %w", f.path, err))
	}

	var pending []*loadedFile
	for _, f := range files {
		if f.err != nil {
			fail(f, f.err)
			continue
		}
		ok, err := e.prepareFile(f)
		if err != nil {
			fail(f, err)
			continue
		}
		if ok {
			pending = append(pending, f)
		}
	}

	if e.useParallel {
		err = e.extractParallel(ctx, pending)
	} else {
		err = e.extractSerial(ctx, pending)
	}
	if err != nil {
		return err
	}

	for _, f := range pending {
		if f.err != nil {
			fail(f, f.err)
			continue
		}
		if f.existed && f.oldDecl != f.newDecl {
			e.changes.DeclarationsChanged = append(e.changes.DeclarationsChanged, f.path)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("indexing had %d error(s): %w", len(errs), errs[0])
	}
	return nil
}

// loadFiles reads and hashes every supported path on a bounded pool.
// Per-file read errors are returned on the entries, not as the error.
func (e *Engine) loadFiles(ctx context.Context, paths []string) ([]*loadedFile, error) {
	var files []*loadedFile
	for _, p := range paths {
		lang, ok := e.supported(p)
		if !ok {
			continue
		}
		files = append(files, &loadedFile{path: p, lang: lang})
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount())
	for _, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			content, err := os.ReadFile(f.path)
			if err != nil {
				f.err = err
				return nil
			}
			f.content = content
			f.hash = fmt.Sprintf("%x", sha256.Sum256(content))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

// prepareFile writes the file row of a new or changed file and clears its
// old data. It reports false for unchanged files.
func (e *Engine) prepareFile(f *loadedFile) (bool, error) {
	existing, err := e.store.FileByPath(f.path)
	if err != nil {
		return false, fmt.Errorf("lookup file: %w", err)
	}
	if existing != nil && existing.Hash == f.hash {
		return false, nil // unchanged
	}

	if existing != nil {
		// Clean up old data; the file row and its ID survive.
		old, err := e.store.ComponentByFile(existing.ID)
		if err != nil {
			return false, fmt.Errorf("lookup component: %w", err)
		}
		if old != nil {
			f.oldDecl = old.DeclarationHash
		}
		if err := e.store.DeleteFileData(existing.ID); err != nil {
			return false, fmt.Errorf("delete old data: %w", err)
		}
		existing.Language = f.lang
		existing.Hash = f.hash
		existing.LastIndexed = time.Now()
		if err := e.store.UpdateFile(existing); err != nil {
			return false, err
		}
		f.id = existing.ID
		f.existed = true
		e.changes.Modified = append(e.changes.Modified, f.path)
	} else {
		id, err := e.store.InsertFile(&store.File{
			Path:        f.path,
			Language:    f.lang,
			Hash:        f.hash,
			LastIndexed: time.Now(),
		})
		if err != nil {
			return false, err
		}
		f.id = id
		e.changes.Added = append(e.changes.Added, f.path)
	}
	e.changed[f.id] = true
	return true, nil
}

func (e *Engine) extractSerial(ctx context.Context, files []*loadedFile) error {
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		f.newDecl, f.err = e.extract(ctx, e.store, f.id, f)
	}
	return nil
}

// extract writes the component and imports of one file to ds and returns
// the component's declaration hash ("" when the file declares none).
// A component that fails to parse is logged and skipped; its imports are
// still recorded.
func (e *Engine) extract(ctx context.Context, ds store.DataStore, fileID int64, f *loadedFile) (string, error) {
	var declHash string
	if f.lang == "vue" {
		comp, err := descriptor.Parse(f.path, f.content)
		if err != nil {
			e.logger.Warn("component parse failed", zap.String("path", f.path), zap.Error(err))
		} else {
			sc := toStoreComponent(fileID, comp)
			if _, err := ds.InsertComponent(sc); err != nil {
				return "", err
			}
			declHash = sc.DeclarationHash
		}
	}

	imps, err := imports.FileImports(ctx, f.path, f.content)
	if err != nil {
		return "", fmt.Errorf("extract imports: %w", err)
	}
	resolver := e.pathResolver(nil)
	for _, imp := range imps {
		resolved, _ := resolver.Resolve(f.path, imp.Source)
		if _, err := ds.InsertImport(&store.Import{
			FileID:       fileID,
			Source:       imp.Source,
			ImportedName: imp.Imported,
			LocalAlias:   imp.Local,
			RegisteredAs: imp.Registered,
			ResolvedPath: resolved,
		}); err != nil {
			return "", err
		}
	}
	return declHash, nil
}

// pathResolver builds an import resolver over the configured aliases.
// A nil exists checks supported files on disk.
func (e *Engine) pathResolver(exists func(string) bool) *imports.PathResolver {
	if exists == nil {
		exists = func(p string) bool {
			if _, ok := e.supported(p); !ok {
				return false
			}
			info, err := os.Stat(p)
			return err == nil && !info.IsDir()
		}
	}
	return imports.NewPathResolver(e.cfg.ResolvedAliases(e.root), exists)
}

// IndexDirectory discovers the project files under the configured scan
// root of root and indexes them. Files previously indexed under that
// directory that no longer exist are pruned.
//
// If the scan root is inside a git repository, uses git ls-files to respect
// .gitignore. Falls back to a filesystem walk skipping hidden and excluded
// directories.
func (e *Engine) IndexDirectory(ctx context.Context, root string) error {
	abs, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("vuensight: %w", err)
	}
	e.root = abs
	scan := e.cfg.ScanRoot(abs)

	paths, err := e.gitListFiles(scan)
	if err != nil {
		// Not a git repo or git not available; fall back to walk.
		paths, err = e.walkListFiles(scan)
		if err != nil {
			return err
		}
	}
	if err := e.prune(scan, paths); err != nil {
		return err
	}
	return e.IndexFiles(ctx, paths)
}

// prune deletes stored files under dir that are not in present.
func (e *Engine) prune(dir string, present []string) error {
	keep := make(map[string]bool, len(present))
	for _, p := range present {
		keep[p] = true
	}
	files, err := e.store.Files()
	if err != nil {
		return fmt.Errorf("vuensight: prune: %w", err)
	}
	prefix := dir + string(filepath.Separator)
	for _, f := range files {
		if keep[f.Path] || !strings.HasPrefix(f.Path, prefix) {
			continue
		}
		if err := e.RemoveFile(f.Path); err != nil {
			return err
		}
	}
	return nil
}

// RemoveFile deletes a file and everything recorded about it.
func (e *Engine) RemoveFile(path string) error {
	f, err := e.store.FileByPath(path)
	if err != nil {
		return fmt.Errorf("vuensight: remove %s: %w", path, err)
	}
	if f == nil {
		return nil
	}
	if err := e.store.DeleteFile(f.ID); err != nil {
		return fmt.Errorf("vuensight: remove %s: %w", path, err)
	}
	if e.changed == nil {
		e.changed = make(map[int64]bool)
	}
	e.changes.Removed = append(e.changes.Removed, path)
	e.logger.Debug("file removed", zap.String("path", path))
	return nil
}

// gitListFiles uses git ls-files to discover tracked and untracked (but not
// ignored) files under root, filtered to supported extensions.
func (e *Engine) gitListFiles(root string) ([]string, error) {
	// --cached: tracked files, --others: untracked files,
	// --exclude-standard: respect .gitignore, .git/info/exclude, global excludes.
	cmd := exec.Command("git", "ls-files", "--cached", "--others", "--exclude-standard")
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git ls-files: %w", err)
	}

	var paths []string
	for _, line := range strings.Split(stdout.String(), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || e.excluded(line) {
			continue
		}
		absPath := filepath.Join(root, line)
		if _, ok := e.supported(absPath); ok {
			paths = append(paths, absPath)
		}
	}
	return paths, nil
}

// excluded reports whether a slash-separated relative path passes through
// an excluded directory.
func (e *Engine) excluded(rel string) bool {
	parts := strings.Split(filepath.ToSlash(rel), "/")
	for _, dir := range parts[:len(parts)-1] {
		if e.skipDir(dir) {
			return true
		}
	}
	return false
}

func (e *Engine) skipDir(name string) bool {
	for _, x := range e.cfg.Exclude {
		if name == x {
			return true
		}
	}
	return false
}

// walkListFiles discovers files by walking the filesystem, used as a fallback
// when git is not available. Skips hidden and excluded directories.
func (e *Engine) walkListFiles(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || e.skipDir(name)) {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := e.supported(path); ok {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk directory: %w", err)
	}
	return paths, nil
}
