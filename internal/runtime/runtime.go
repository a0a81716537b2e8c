package runtime

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/risor-io/risor"
	"github.com/risor-io/risor/importer"
	"github.com/risor-io/risor/object"
	"go.uber.org/zap"
)

// Rule kinds, matching the top-level directories of a rules tree.
const (
	KindProp  = "prop"
	KindEvent = "event"
	KindSlot  = "slot"
)

// Attr is one attribute of the instance a rule inspects.
type Attr struct {
	Name  string
	Value string
}

// Subject is what a rule script sees for one (instance, channel) check.
type Subject struct {
	Kind      string
	Name      string
	Camel     string
	Kebab     string
	Tag       string
	Inner     string
	Synthetic bool
	Attrs     []Attr
}

// Rule is one loaded rule script.
type Rule struct {
	Kind   string
	Name   string
	Path   string
	Source string
	fsys   fs.FS
}

// ID returns the registry name of the rule, e.g. "risor:slot/legacy-attr".
func (r Rule) ID() string { return "risor:" + r.Kind + "/" + r.Name }

// Runtime embeds a Risor VM and evaluates rule scripts that extend the
// built-in channel detectors.
type Runtime struct {
	sources []fs.FS
	logger  *zap.Logger
	rules   []Rule
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*Runtime)

// WithRuntimeFS adds a rules tree held in an fs.FS, typically embedded.
func WithRuntimeFS(fsys fs.FS) RuntimeOption {
	return func(r *Runtime) {
		if fsys != nil {
			r.sources = append(r.sources, fsys)
		}
	}
}

// WithRulesDir adds a rules tree on disk.
func WithRulesDir(dir string) RuntimeOption {
	return func(r *Runtime) {
		if dir != "" {
			r.sources = append(r.sources, os.DirFS(dir))
		}
	}
}

// WithRuntimeLogger sets the logger used for script failures and the
// scripts' own log calls.
func WithRuntimeLogger(l *zap.Logger) RuntimeOption {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// NewRuntime creates a Runtime. Call Load to read its rule scripts.
func NewRuntime(opts ...RuntimeOption) *Runtime {
	r := &Runtime{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load reads every <kind>/<name>.risor script of every configured source,
// except helper modules whose name starts with "_".
// Later sources override earlier ones rule by rule.
func (r *Runtime) Load() error {
	byID := map[string]Rule{}
	var order []string
	for _, fsys := range r.sources {
		for _, kind := range []string{KindProp, KindEvent, KindSlot} {
			entries, err := fs.ReadDir(fsys, kind)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}
				return fmt.Errorf("runtime: reading rules %s: %w", kind, err)
			}
			for _, e := range entries {
				// Files starting with "_" are helper modules for import.
				if e.IsDir() || path.Ext(e.Name()) != ".risor" || strings.HasPrefix(e.Name(), "_") {
					continue
				}
				p := path.Join(kind, e.Name())
				src, err := LoadScript(fsys, p)
				if err != nil {
					return err
				}
				rule := Rule{Kind: kind, Name: strings.TrimSuffix(e.Name(), ".risor"), Path: p, Source: src, fsys: fsys}
				if _, seen := byID[rule.ID()]; !seen {
					order = append(order, rule.ID())
				}
				byID[rule.ID()] = rule
			}
		}
	}
	r.rules = r.rules[:0]
	for _, id := range order {
		r.rules = append(r.rules, byID[id])
	}
	r.logger.Debug("rules loaded", zap.Int("count", len(r.rules)))
	return nil
}

// Rules returns the loaded rules in load order.
func (r *Runtime) Rules() []Rule { return r.rules }

// RulesOf returns the loaded rules of one kind.
func (r *Runtime) RulesOf(kind string) []Rule {
	var out []Rule
	for _, rule := range r.rules {
		if rule.Kind == kind {
			out = append(out, rule)
		}
	}
	return out
}

// Hash fingerprints the loaded rule set so a changed rule invalidates
// stored analysis.
func (r *Runtime) Hash() string {
	ids := make([]string, 0, len(r.rules))
	src := map[string]string{}
	for _, rule := range r.rules {
		ids = append(ids, rule.ID())
		src[rule.ID()] = rule.Source
	}
	sort.Strings(ids)
	h := sha256.New()
	for _, id := range ids {
		fmt.Fprintf(h, "%s\x00%s\x00", id, src[id])
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Eval runs rule against s. A script that fails or does not evaluate to a
// boolean counts as no match.
func (r *Runtime) Eval(ctx context.Context, rule Rule, s Subject) bool {
	ok, err := r.eval(ctx, rule.Source, rule.Path, rule.fsys, s)
	if err != nil {
		r.logger.Debug("rule failed", zap.String("rule", rule.ID()), zap.Error(err))
		return false
	}
	return ok
}

// RunSource evaluates Risor source directly against s.
func (r *Runtime) RunSource(ctx context.Context, source string, s Subject) (bool, error) {
	var fsys fs.FS
	if len(r.sources) > 0 {
		fsys = r.sources[0]
	}
	return r.eval(ctx, source, "<inline>", fsys, s)
}

func (r *Runtime) eval(ctx context.Context, source, label string, fsys fs.FS, s Subject) (bool, error) {
	globals := r.buildGlobals(s)

	opts := make([]risor.Option, 0, len(globals)+1)
	for name, val := range globals {
		opts = append(opts, risor.WithGlobal(name, val))
	}
	if imp := buildImporter(fsys, s.Kind, globals); imp != nil {
		opts = append(opts, risor.WithImporter(imp))
	}

	result, err := risor.Eval(ctx, source, opts...)
	if err != nil {
		return false, fmt.Errorf("runtime: script %s: %w", label, err)
	}
	b, ok := result.(*object.Bool)
	if !ok {
		return false, fmt.Errorf("runtime: script %s: result is %s, want bool", label, result.Type())
	}
	return b.Value(), nil
}

// buildImporter resolves Risor import statements against the directory of
// the rule's kind, so helpers can sit next to the rules using them.
func buildImporter(fsys fs.FS, kind string, globals map[string]any) importer.Importer {
	if fsys == nil {
		return nil
	}
	if kind != "" {
		if sub, err := fs.Sub(fsys, kind); err == nil {
			fsys = sub
		}
	}
	names := make([]string, 0, len(globals))
	for name := range globals {
		names = append(names, name)
	}
	return importer.NewFSImporter(importer.FSImporterOptions{
		GlobalNames: names,
		SourceFS:    fsys,
		Extensions:  []string{".risor"},
	})
}

// LoadScript reads a .risor file from fsys.
func LoadScript(fsys fs.FS, p string) (string, error) {
	p = strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, `\`, "/")), "/")
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return "", fmt.Errorf("runtime: loading script %s: %w", p, err)
	}
	return string(data), nil
}

// buildGlobals constructs the globals exposed to a rule script.
func (r *Runtime) buildGlobals(s Subject) map[string]any {
	attrs := make(map[string]object.Object, len(s.Attrs))
	for _, a := range s.Attrs {
		attrs[a.Name] = object.NewString(a.Value)
	}
	return map[string]any{
		"kind":           object.NewString(s.Kind),
		"name":           object.NewString(s.Name),
		"camel":          object.NewString(s.Camel),
		"kebab":          object.NewString(s.Kebab),
		"tag":            object.NewString(s.Tag),
		"inner":          object.NewString(s.Inner),
		"synthetic":      object.NewBool(s.Synthetic),
		"attrs":          object.NewMap(attrs),
		"has_attr":       makeHasAttrFn(s),
		"attr":           makeAttrFn(s),
		"inner_contains": makeInnerContainsFn(s),
		"query":          makeQueryFn(s),
		"log":            mustProxy(&logObject{logger: r.logger}),
	}
}

func mustProxy(v any) object.Object {
	p, err := object.NewProxy(v)
	if err != nil {
		panic(fmt.Sprintf("runtime: proxy error: %v", err))
	}
	return p
}
