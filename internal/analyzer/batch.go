package analyzer

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// AnalyzeAll scores sentences on up to workers goroutines and returns the
// results in input order. A non-positive worker count uses GOMAXPROCS.
//
// Each worker buffers its unlisted tokens and the buffers are merged into
// the log once every worker has finished. Cancellation is checked between
// sentences; on cancellation the context error is returned with no results.
func (a *Analyzer) AnalyzeAll(ctx context.Context, sentences []string, workers int) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(sentences) == 0 {
		return []Result{}, nil
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > len(sentences) {
		workers = len(sentences)
	}

	results := make([]Result, len(sentences))
	buffers := make([][]string, workers)
	chunk := (len(sentences) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(sentences))
		if lo >= hi {
			break
		}
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				results[i] = a.analyze(sentences[i])
				buffers[w] = append(buffers[w], results[i].Unlisted...)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if a.log != nil {
		for _, buf := range buffers {
			a.log.Add(buf...)
		}
	}
	return results, nil
}
