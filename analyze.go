package vuensight

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/uhodav/vuensight/internal/descriptor"
	"github.com/uhodav/vuensight/internal/graph"
	"github.com/uhodav/vuensight/internal/imports"
	"github.com/uhodav/vuensight/internal/sfc"
	"github.com/uhodav/vuensight/internal/store"
	"github.com/uhodav/vuensight/internal/usage"
)

// analysisJob is one (component, dependent) edge to analyze.
type analysisJob struct {
	componentID     int64
	component       *usage.Component
	dependentFileID int64
	dependent       usage.DependentFile
}

// Analyze computes usage records for the dependency graph built from the
// stored imports. On the first run, or when the rule scripts changed,
// every edge is analyzed; otherwise only edges touching a file changed
// since the last Analyze.
func (e *Engine) Analyze(ctx context.Context) error {
	defer func() {
		e.changed = nil
		e.changes = ChangeSet{}
	}()

	full := e.changed == nil || e.RulesChanged()
	// Non-nil empty change set means no files changed; skip analysis.
	if !full && len(e.changed) == 0 && len(e.changes.Removed) == 0 {
		return nil
	}

	g, touched, err := e.buildGraph()
	if err != nil {
		return fmt.Errorf("vuensight: build graph: %w", err)
	}
	stale := func(fileID int64) bool {
		return e.changed[fileID] || touched[fileID]
	}

	if full {
		if err := e.store.DeleteAllUsages(); err != nil {
			return fmt.Errorf("vuensight: reset usages: %w", err)
		}
	} else if err := e.dropUsagesOf(touched); err != nil {
		return fmt.Errorf("vuensight: %w", err)
	}

	jobs, err := e.prepareJobs(g, full, stale)
	if err != nil {
		return fmt.Errorf("vuensight: prepare analysis: %w", err)
	}
	e.logger.Debug("analysis planned",
		zap.Int("jobs", len(jobs)),
		zap.Int("edges", len(g.Edges())),
		zap.Int("affected", len(g.Affected(e.changedPaths()...))),
		zap.Bool("full", full),
	)

	analyzer := e.newAnalyzer(ctx)
	if e.useParallel {
		err = e.analyzeParallel(ctx, analyzer, jobs)
	} else {
		err = e.analyzeSerial(ctx, analyzer, jobs)
	}
	if err != nil {
		return err
	}

	// Store the current rules hash so future runs can detect changes.
	if err := e.store.SetMetadata(rulesHashKey, e.runtime.Hash()); err != nil {
		return fmt.Errorf("vuensight: %w", err)
	}
	return nil
}

// buildGraph re-resolves every stored import against the indexed files and
// returns the dependency graph. Files whose import resolution changed
// without a content change are returned in touched.
func (e *Engine) buildGraph() (*graph.Graph, map[int64]bool, error) {
	files, err := e.store.Files()
	if err != nil {
		return nil, nil, err
	}
	byID := make(map[int64]string, len(files))
	indexed := make(map[string]bool, len(files))
	for _, f := range files {
		byID[f.ID] = f.Path
		indexed[f.Path] = true
	}

	imps, err := e.store.Imports()
	if err != nil {
		return nil, nil, err
	}
	resolver := e.pathResolver(func(p string) bool { return indexed[p] })
	edges := make(map[string][]string)
	touched := make(map[int64]bool)
	for _, imp := range imps {
		from := byID[imp.FileID]
		target, _ := resolver.Resolve(from, imp.Source)
		if target != imp.ResolvedPath {
			if err := e.store.UpdateImportResolution(imp.ID, target); err != nil {
				return nil, nil, err
			}
			touched[imp.FileID] = true
		}
		if target != "" {
			edges[from] = append(edges[from], target)
		}
	}
	for _, f := range files {
		if _, ok := edges[f.Path]; !ok {
			edges[f.Path] = nil
		}
	}
	return graph.Build(edges), touched, nil
}

// changedPaths lists the files added or modified since the last Analyze.
func (e *Engine) changedPaths() []string {
	paths := make([]string, 0, len(e.changes.Added)+len(e.changes.Modified))
	paths = append(paths, e.changes.Added...)
	return append(paths, e.changes.Modified...)
}

// dropUsagesOf deletes the usage rows recorded for dependents whose
// imports now resolve elsewhere.
func (e *Engine) dropUsagesOf(dependents map[int64]bool) error {
	for fileID := range dependents {
		us, err := e.store.UsagesByDependent(fileID)
		if err != nil {
			return err
		}
		for _, u := range us {
			if err := e.store.DeleteUsage(u.ComponentID, u.DependentFileID); err != nil {
				return err
			}
		}
	}
	return nil
}

// prepareJobs loads every component and the content of each dependent
// that needs analysis.
func (e *Engine) prepareJobs(g *graph.Graph, full bool, stale func(int64) bool) ([]analysisJob, error) {
	comps, err := e.store.Components()
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(comps))
	for _, c := range comps {
		names[c.Path] = c.Name
	}

	contents := make(map[string]string)
	var jobs []analysisJob
	for _, c := range comps {
		for _, depPath := range g.Dependents(c.Path) {
			dep, err := e.store.FileByPath(depPath)
			if err != nil {
				return nil, err
			}
			if dep == nil {
				continue
			}
			if !full && !stale(c.FileID) && !stale(dep.ID) {
				continue
			}
			content, ok := contents[depPath]
			if !ok {
				data, err := os.ReadFile(depPath)
				if err != nil {
					e.logger.Warn("read dependent failed", zap.String("path", depPath), zap.Error(err))
					continue
				}
				content = string(data)
				contents[depPath] = content
			}
			name := names[depPath]
			if name == "" {
				name = descriptor.FileComponentName(depPath)
			}
			jobs = append(jobs, analysisJob{
				componentID:     c.ID,
				component:       toUsageComponent(c),
				dependentFileID: dep.ID,
				dependent:       usage.DependentFile{FullPath: depPath, Name: name, FileContent: content},
			})
		}
	}
	return jobs, nil
}

// dependentAnalyzer runs the assembler for one job. The alias lookup also
// matches the component's file name.
type dependentAnalyzer struct {
	validators *usage.Validators
	resolver   imports.Resolver
}

func (e *Engine) newAnalyzer(ctx context.Context) *dependentAnalyzer {
	return &dependentAnalyzer{validators: e.validators(ctx)}
}

func (a *dependentAnalyzer) analyze(job analysisJob) usage.Record {
	aliases := usage.ImportNameFunc(func(content, declared string) (string, bool) {
		return a.resolver.ImportNameFor(content, declared, job.component.FullPath)
	})
	return usage.NewAnalyzer(sfc.Extractor{}, aliases, a.validators).Analyze(job.dependent, job.component)
}

func (e *Engine) analyzeSerial(ctx context.Context, a *dependentAnalyzer, jobs []analysisJob) error {
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := e.store.PutUsage(toStoreUsage(job, a.analyze(job))); err != nil {
			return fmt.Errorf("vuensight: store usage %s: %w", job.dependent.FullPath, err)
		}
	}
	return nil
}

func toStoreComponent(fileID int64, c *usage.Component) *store.Component {
	sc := &store.Component{FileID: fileID, Name: c.Name}
	for i, p := range c.Props {
		sc.Props = append(sc.Props, store.Prop{Ordinal: i, Name: p.Name, TypeExpr: p.Type, Required: p.Required, Default: p.Default})
	}
	for i, ev := range c.Events {
		sc.Events = append(sc.Events, store.Event{Ordinal: i, Name: ev.Name, IsSync: ev.IsSync})
	}
	for i, s := range c.Slots {
		sc.Slots = append(sc.Slots, store.Slot{Ordinal: i, Name: s.Name})
	}
	sc.DeclarationHash = store.ComputeDeclarationHash(sc.Name, sc.Props, sc.Events, sc.Slots)
	return sc
}

// toUsageComponent rebuilds the declaration list in ordinal order.
func toUsageComponent(c *store.Component) *usage.Component {
	uc := &usage.Component{
		Name:     c.Name,
		FullPath: c.Path,
		Props:    make([]usage.Prop, 0, len(c.Props)),
		Events:   make([]usage.Event, 0, len(c.Events)),
		Slots:    make([]usage.Slot, 0, len(c.Slots)),
	}
	for _, p := range c.Props {
		uc.Props = append(uc.Props, usage.Prop{Name: p.Name, Type: p.TypeExpr, Required: p.Required, Default: p.Default})
	}
	for _, ev := range c.Events {
		uc.Events = append(uc.Events, usage.Event{Name: ev.Name, IsSync: ev.IsSync})
	}
	for _, s := range c.Slots {
		uc.Slots = append(uc.Slots, usage.Slot{Name: s.Name})
	}
	return uc
}

func toStoreUsage(job analysisJob, r usage.Record) *store.Usage {
	return &store.Usage{
		ComponentID:     job.componentID,
		DependentFileID: job.dependentFileID,
		Props:           r.UsedProps,
		Events:          r.UsedEvents,
		Slots:           r.UsedSlots,
	}
}
