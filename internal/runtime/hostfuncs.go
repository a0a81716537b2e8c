package runtime

import (
	"context"
	"strings"

	"github.com/risor-io/risor/object"
	sitter "github.com/smacker/go-tree-sitter"
	"go.uber.org/zap"
)

// makeHasAttrFn creates "has_attr".
//
// has_attr(name) → bool, case-insensitive on the attribute name
func makeHasAttrFn(s Subject) *object.Builtin {
	return object.NewBuiltin("has_attr", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("has_attr", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("has_attr: name must be a string, got %s", args[0].Type())
		}
		_, found := lookupAttr(s, name.Value())
		return object.NewBool(found)
	})
}

// makeAttrFn creates "attr".
//
// attr(name) → string or nil
func makeAttrFn(s Subject) *object.Builtin {
	return object.NewBuiltin("attr", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("attr", 1, len(args))
		}
		name, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("attr: name must be a string, got %s", args[0].Type())
		}
		value, found := lookupAttr(s, name.Value())
		if !found {
			return object.Nil
		}
		return object.NewString(value)
	})
}

func lookupAttr(s Subject, name string) (string, bool) {
	for _, a := range s.Attrs {
		if strings.EqualFold(a.Name, name) {
			return a.Value, true
		}
	}
	return "", false
}

// makeInnerContainsFn creates "inner_contains".
//
// inner_contains(substr) → bool
func makeInnerContainsFn(s Subject) *object.Builtin {
	return object.NewBuiltin("inner_contains", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("inner_contains", 1, len(args))
		}
		sub, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("inner_contains: argument must be a string, got %s", args[0].Type())
		}
		return object.NewBool(strings.Contains(s.Inner, sub.Value()))
	})
}

// makeQueryFn creates "query": a tree-sitter HTML query over the inner
// markup of the instance.
//
// query(pattern) → []map[string]string
//
// Each map has capture names as keys and captured source text as values.
func makeQueryFn(s Subject) *object.Builtin {
	return object.NewBuiltin("query", func(ctx context.Context, args ...object.Object) object.Object {
		if len(args) != 1 {
			return object.NewArgsError("query", 1, len(args))
		}
		pattern, ok := args[0].(*object.String)
		if !ok {
			return object.Errorf("query: pattern must be a string, got %s", args[0].Type())
		}
		if s.Inner == "" {
			return object.NewList([]object.Object{})
		}

		lang, _ := ParserForLanguage("html")
		q, err := sitter.NewQuery([]byte(pattern.Value()), lang)
		if err != nil {
			return object.Errorf("query: invalid pattern: %v", err)
		}
		defer q.Close()

		src := []byte(s.Inner)
		tree, err := Parse(ctx, "html", src)
		if err != nil {
			return object.Errorf("query: %v", err)
		}
		defer tree.Close()

		cursor := sitter.NewQueryCursor()
		defer cursor.Close()
		cursor.Exec(q, tree.RootNode())

		results := []object.Object{}
		for {
			match, ok := cursor.NextMatch()
			if !ok {
				break
			}
			match = cursor.FilterPredicates(match, src)

			captures := make(map[string]object.Object, len(match.Captures))
			for _, c := range match.Captures {
				captures[q.CaptureNameForId(c.Index)] = object.NewString(c.Node.Content(src))
			}
			if len(captures) > 0 {
				results = append(results, object.NewMap(captures))
			}
		}
		return object.NewList(results)
	})
}

// logObject provides log.Debug/Info/Warn/Error methods for Risor scripts.
type logObject struct {
	logger *zap.Logger
}

func (l *logObject) Debug(msg string) { l.logger.Debug(msg, zap.String("source", "rule")) }

func (l *logObject) Info(msg string) { l.logger.Info(msg, zap.String("source", "rule")) }

func (l *logObject) Warn(msg string) { l.logger.Warn(msg, zap.String("source", "rule")) }

func (l *logObject) Error(msg string) { l.logger.Error(msg, zap.String("source", "rule")) }
