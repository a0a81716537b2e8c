// Package imports extracts module imports from component scripts, resolves
// import sources to project files and finds the local name a component is
// imported under.
package imports

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/uhodav/vuensight/internal/runtime"
)

// Import is one binding brought in by an import statement, a re-export or
// a lazy import() inside a components registration.
type Import struct {
	Source string
	// Imported is "default", "*" for a namespace import, the exported name
	// for named imports, or "" for side-effect and dynamic imports.
	Imported string
	Local    string
	// Registered is the key under which Local is listed in a components: {}
	// option.
	Registered string
}

// Extract returns the imports of a script block in source order.
func Extract(ctx context.Context, src []byte, lang string) ([]Import, error) {
	if strings.TrimSpace(string(src)) == "" {
		return nil, nil
	}
	tree, err := runtime.Parse(ctx, lang, src)
	if err != nil {
		return nil, fmt.Errorf("imports: %w", err)
	}
	defer tree.Close()

	x := &extractor{src: src, registered: map[string]string{}}
	x.walk(tree.RootNode())
	for i := range x.imports {
		if key, ok := x.registered[x.imports[i].Local]; ok && x.imports[i].Local != "" {
			x.imports[i].Registered = key
		}
	}
	return x.imports, nil
}

type extractor struct {
	src        []byte
	imports    []Import
	registered map[string]string // local binding -> registration key
}

func (x *extractor) text(n *sitter.Node) string { return n.Content(x.src) }

func (x *extractor) walk(n *sitter.Node) {
	switch n.Type() {
	case "import_statement":
		x.importStatement(n)
		return
	case "export_statement":
		if s := n.ChildByFieldName("source"); s != nil {
			x.reexport(n, unquote(x.text(s)))
			return
		}
	case "pair":
		if k := n.ChildByFieldName("key"); k != nil && keyText(x, k) == "components" {
			if v := n.ChildByFieldName("value"); v != nil && v.Type() == "object" {
				x.components(v)
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		x.walk(n.NamedChild(i))
	}
}

func (x *extractor) importStatement(n *sitter.Node) {
	s := n.ChildByFieldName("source")
	if s == nil {
		return
	}
	source := unquote(x.text(s))
	var clause *sitter.Node
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "import_clause" {
			clause = c
		}
	}
	if clause == nil {
		x.imports = append(x.imports, Import{Source: source})
		return
	}
	for i := 0; i < int(clause.NamedChildCount()); i++ {
		c := clause.NamedChild(i)
		switch c.Type() {
		case "identifier":
			x.imports = append(x.imports, Import{Source: source, Imported: "default", Local: x.text(c)})
		case "namespace_import":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				if id := c.NamedChild(j); id.Type() == "identifier" {
					x.imports = append(x.imports, Import{Source: source, Imported: "*", Local: x.text(id)})
				}
			}
		case "named_imports":
			for j := 0; j < int(c.NamedChildCount()); j++ {
				spec := c.NamedChild(j)
				if spec.Type() != "import_specifier" {
					continue
				}
				name := spec.ChildByFieldName("name")
				if name == nil {
					continue
				}
				imp := Import{Source: source, Imported: unquote(x.text(name)), Local: unquote(x.text(name))}
				if alias := spec.ChildByFieldName("alias"); alias != nil {
					imp.Local = x.text(alias)
				}
				x.imports = append(x.imports, imp)
			}
		}
	}
}

// reexport records `export { default as X } from './X.vue'` style barrels.
func (x *extractor) reexport(n *sitter.Node, source string) {
	added := false
	for i := 0; i < int(n.NamedChildCount()); i++ {
		clause := n.NamedChild(i)
		if clause.Type() != "export_clause" {
			continue
		}
		for j := 0; j < int(clause.NamedChildCount()); j++ {
			spec := clause.NamedChild(j)
			name := spec.ChildByFieldName("name")
			if spec.Type() != "export_specifier" || name == nil {
				continue
			}
			imp := Import{Source: source, Imported: x.text(name), Local: x.text(name)}
			if alias := spec.ChildByFieldName("alias"); alias != nil {
				imp.Local = x.text(alias)
			}
			x.imports = append(x.imports, imp)
			added = true
		}
	}
	if !added {
		x.imports = append(x.imports, Import{Source: source, Imported: "*"})
	}
}

// components reads a components: {} registration object.
func (x *extractor) components(obj *sitter.Node) {
	for i := 0; i < int(obj.NamedChildCount()); i++ {
		c := obj.NamedChild(i)
		switch c.Type() {
		case "shorthand_property_identifier":
			x.registered[x.text(c)] = x.text(c)
		case "pair":
			k, v := c.ChildByFieldName("key"), c.ChildByFieldName("value")
			if k == nil || v == nil {
				continue
			}
			key := keyText(x, k)
			switch v.Type() {
			case "identifier":
				x.registered[x.text(v)] = key
			default:
				// Lazy registration: () => import('./Heavy.vue')
				if source, ok := x.dynamicImport(v); ok {
					x.imports = append(x.imports, Import{Source: source, Registered: key})
				}
			}
		}
	}
}

func (x *extractor) dynamicImport(n *sitter.Node) (string, bool) {
	if n.Type() == "call_expression" {
		if fn := n.ChildByFieldName("function"); fn != nil && fn.Type() == "import" {
			if args := n.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
				if a := args.NamedChild(0); a.Type() == "string" {
					return unquote(x.text(a)), true
				}
			}
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if s, ok := x.dynamicImport(n.NamedChild(i)); ok {
			return s, true
		}
	}
	return "", false
}

func keyText(x *extractor, k *sitter.Node) string {
	if k.Type() == "string" {
		return unquote(x.text(k))
	}
	return x.text(k)
}

func unquote(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return s
}
