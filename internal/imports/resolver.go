package imports

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/uhodav/vuensight/internal/runtime"
	"github.com/uhodav/vuensight/internal/sfc"
	"github.com/uhodav/vuensight/internal/usage"
)

// FileImports extracts the imports of a project file. Single-file
// components contribute every script block.
func FileImports(ctx context.Context, filePath string, content []byte) ([]Import, error) {
	lang, ok := runtime.LanguageForFile(filePath)
	if !ok {
		return nil, nil
	}
	if lang != "vue" {
		return Extract(ctx, content, lang)
	}
	var all []Import
	for _, s := range sfc.Split(content).Scripts {
		imps, err := Extract(ctx, []byte(s.Content), runtime.ScriptLanguage(s.Lang))
		if err != nil {
			return nil, err
		}
		all = append(all, imps...)
	}
	return all, nil
}

// Resolver finds the local name under which a dependent refers to a
// component. The zero value matches import sources by base name only.
type Resolver struct{}

// ComponentImportName implements the analyzer's alias lookup. Content that
// is not a single-file component is read as a TypeScript module.
func (r Resolver) ComponentImportName(fileContent, declaredName string) (string, bool) {
	return r.ImportNameFor(fileContent, declaredName, "")
}

// ImportNameFor is ComponentImportName with the component's file path as an
// extra base name to match, so a component whose name option differs from
// its file name is still found.
func (Resolver) ImportNameFor(fileContent, declaredName, componentPath string) (string, bool) {
	filename := "Dependent.ts"
	if strings.Contains(fileContent, "<script") || strings.Contains(fileContent, "<template") {
		filename = "Dependent.vue"
	}
	imps, err := FileImports(context.Background(), filename, []byte(fileContent))
	if err != nil || len(imps) == 0 {
		return "", false
	}

	wanted := []string{declaredName}
	if componentPath != "" {
		wanted = append(wanted, SourceBaseName(componentPath))
	}
	for _, imp := range imps {
		if !matchesAny(SourceBaseName(imp.Source), wanted) {
			continue
		}
		if imp.Registered != "" {
			return imp.Registered, true
		}
		if imp.Local != "" && imp.Imported != "*" {
			return imp.Local, true
		}
	}
	return "", false
}

func matchesAny(base string, wanted []string) bool {
	for _, w := range wanted {
		if w == "" {
			continue
		}
		if strings.EqualFold(base, w) || strings.EqualFold(base, usage.Kebabize(w)) {
			return true
		}
	}
	return false
}

// SourceBaseName returns the component-like base name of an import source
// or file path: the last segment without extension, or the directory name
// for index modules.
func SourceBaseName(source string) string {
	source = filepath.ToSlash(source)
	base := path.Base(source)
	name := strings.TrimSuffix(base, path.Ext(base))
	if strings.EqualFold(name, "index") {
		if dir := path.Base(path.Dir(source)); dir != "." && dir != "/" {
			return dir
		}
	}
	return name
}

// candidateSuffixes are tried in order when an import omits the extension.
var candidateSuffixes = []string{"", ".vue", ".ts", ".js", ".tsx", ".jsx",
	"/index.vue", "/index.ts", "/index.js", "/index.tsx", "/index.jsx"}

// PathResolver maps import sources to project files.
type PathResolver struct {
	aliases []alias
	exists  func(string) bool
}

type alias struct {
	prefix string
	dir    string
}

// NewPathResolver returns a resolver for the given alias table (import
// prefix to directory). A nil exists checks the filesystem.
func NewPathResolver(aliases map[string]string, exists func(string) bool) *PathResolver {
	r := &PathResolver{exists: exists}
	if r.exists == nil {
		r.exists = func(p string) bool {
			info, err := os.Stat(p)
			return err == nil && !info.IsDir()
		}
	}
	for prefix, dir := range aliases {
		r.aliases = append(r.aliases, alias{prefix: strings.TrimSuffix(prefix, "/"), dir: dir})
	}
	// Longest prefix first so "@/components" wins over "@".
	sort.Slice(r.aliases, func(i, j int) bool {
		if len(r.aliases[i].prefix) != len(r.aliases[j].prefix) {
			return len(r.aliases[i].prefix) > len(r.aliases[j].prefix)
		}
		return r.aliases[i].prefix < r.aliases[j].prefix
	})
	return r
}

// Resolve returns the project file imported as source from fromFile.
// Package imports and unresolvable sources yield false.
func (r *PathResolver) Resolve(fromFile, source string) (string, bool) {
	if q := strings.IndexAny(source, "?#"); q >= 0 {
		source = source[:q]
	}
	var base string
	switch {
	case strings.HasPrefix(source, "./") || strings.HasPrefix(source, "../") || source == "." || source == "..":
		base = filepath.Join(filepath.Dir(fromFile), filepath.FromSlash(source))
	case filepath.IsAbs(source):
		base = filepath.Clean(source)
	default:
		for _, a := range r.aliases {
			if source == a.prefix || strings.HasPrefix(source, a.prefix+"/") {
				rest := strings.TrimPrefix(strings.TrimPrefix(source, a.prefix), "/")
				base = filepath.Join(a.dir, filepath.FromSlash(rest))
				break
			}
		}
	}
	if base == "" {
		return "", false
	}
	for _, suffix := range candidateSuffixes {
		if p := base + filepath.FromSlash(suffix); r.exists(p) {
			return p, true
		}
	}
	return "", false
}
