package vuensight

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/uhodav/vuensight/internal/store"
)

// analyzeParallel runs dependent analysis as a three-phase pipeline:
//
//	Phase A (serial):   Jobs are prepared with dependent contents in memory.
//	Phase B (parallel): A fixed-size worker pool runs the assembler.
//	Phase C (serial):   Buffered usage records are committed in one batch.
//
// Phase A happens in prepareJobs before this is called.
func (e *Engine) analyzeParallel(ctx context.Context, a *dependentAnalyzer, jobs []analysisJob) error {
	if len(jobs) == 0 {
		return nil
	}

	// ---- Phase B: Parallel analysis ----
	numWorkers := min(e.workerCount(), len(jobs))
	if numWorkers < 1 {
		numWorkers = 1
	}

	workCh := make(chan analysisJob, len(jobs))
	for _, job := range jobs {
		workCh <- job
	}
	close(workCh)

	batch := store.NewBatchedStore()
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// The analyzer is stateless; the BatchedStore handles write isolation.
			for job := range workCh {
				if ctx.Err() != nil {
					continue
				}
				if err := batch.PutUsage(toStoreUsage(job, a.analyze(job))); err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("vuensight: store usage %s: %w", job.dependent.FullPath, err))
					mu.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if len(errs) > 0 {
		return errs[0]
	}

	// ---- Phase C: Serial commit ----
	if err := e.store.CommitBatch(batch); err != nil {
		return fmt.Errorf("vuensight: commit usages: %w", err)
	}
	e.logger.Debug("usages committed", zap.Int("records", len(batch.Usages)), zap.Int("workers", numWorkers))
	return nil
}

// extractParallel extracts components and imports of prepared files:
//
//	Phase A (serial):   File rows were written by prepareFile.
//	Phase B (parallel): Workers parse each file into a shared BatchedStore.
//	Phase C (serial):   One transaction commits the buffered rows.
//
// Per-file extraction errors are left on the entries.
func (e *Engine) extractParallel(ctx context.Context, files []*loadedFile) error {
	if len(files) == 0 {
		return nil
	}

	// ---- Phase B: Parallel extraction ----
	batch := store.NewBatchedStore()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workerCount())
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			f.newDecl, f.err = e.extract(gctx, batch, f.id, f)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// ---- Phase C: Serial commit ----
	if err := e.store.CommitBatch(batch); err != nil {
		return fmt.Errorf("vuensight: commit extraction: %w", err)
	}
	e.logger.Debug("extraction committed",
		zap.Int("files", len(files)),
		zap.Int("components", len(batch.Components)),
		zap.Int("imports", len(batch.Imports)),
	)
	return nil
}
