// Package vuensight detects which communication channels of each Vue
// component (props, emitted events, slots) its dependents actually use.
//
// # Pipeline
//
// vuensight operates in two phases:
//
//  1. Index: for each project file, split single-file components, extract
//     the declared props, events and slots of .vue components, extract
//     imports, and write them to SQLite. Unchanged files are skipped by
//     content hash.
//
//  2. Analyze: build the dependency graph from the stored imports and, for
//     every (component, dependent) edge, locate the component's instances
//     in the dependent's template and record which channels they use.
//
// # Usage
//
//	e, err := vuensight.New(".vuensight/index.db")
//	if err != nil { ... }
//	defer e.Close()
//
//	ctx := context.Background()
//	err = e.IndexDirectory(ctx, "path/to/project")
//	err = e.Analyze(ctx)
//
//	unused, err := e.Query().UnusedChannels("path/to/project/src/Button.vue")
//
// # Query API
//
// The [QueryBuilder] returned by [Engine.Query] provides:
//
//   - [QueryBuilder.Components], [QueryBuilder.ComponentByName] and
//     [QueryBuilder.ComponentByPath] for declarations.
//   - [QueryBuilder.Dependents]: every analyzed dependent with used channels.
//   - [QueryBuilder.UnusedChannels]: declared channels no dependent uses.
//   - [QueryBuilder.Report]: every component with its dependents.
//
// # Incremental Analysis
//
// Analyze only revisits edges touching a file changed since the previous
// run, unless the rule scripts changed (see [Engine.RulesChanged]).
//
// # Rules
//
// The built-in detectors can be extended with Risor scripts laid out as
// <kind>/<name>.risor, kind being prop, event or slot. Defaults are
// embedded from the rules package; [WithRulesDir] adds more from disk.
package vuensight
