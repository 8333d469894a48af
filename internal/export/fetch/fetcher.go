// Package fetch retrieves the full result set of a filter in parallel
// paginated rounds.
package fetch

import (
	"context"
	"iter"
	"sync"

	"golang.org/x/sync/errgroup"

	"catalog-export/internal/catalog"
	"catalog-export/internal/common/logger"
)

// Pager is the slice of the catalog client the fetcher needs.
type Pager interface {
	Page(ctx context.Context, filter catalog.Filter, columns []string, limit, offset int) ([]catalog.AssetRecord, error)
}

// Fetcher issues rounds of concurrent page requests. Within a round, pages
// land in completion order; rounds themselves are strictly ordered.
type Fetcher struct {
	pager    Pager
	pageSize int
	workers  int
	log      logger.Logger
}

func New(pager Pager, pageSize, workers int, log logger.Logger) *Fetcher {
	return &Fetcher{
		pager:    pager,
		pageSize: pageSize,
		workers:  workers,
		log:      log,
	}
}

// Rounds returns a lazy sequence of per-round record batches for the
// filter, starting at offset and bounded by total (the known match count).
// Iteration stops after a round that returned fewer records than it asked
// for, or once the cursor reaches total. Any page failure ends the
// sequence with that error; records already collected in the failed round
// are discarded.
func (f *Fetcher) Rounds(ctx context.Context, filter catalog.Filter, columns []string, offset, total int) iter.Seq2[[]catalog.AssetRecord, error] {
	return func(yield func([]catalog.AssetRecord, error) bool) {
		cursor := offset
		for {
			if cursor >= total {
				return
			}

			batch, asked, err := f.round(ctx, filter, columns, cursor)
			if err != nil {
				yield(nil, err)
				return
			}
			if len(batch) == 0 {
				return
			}

			if !yield(batch, nil) {
				return
			}

			// A round that came back short is the end-of-data signal.
			if len(batch) < asked {
				return
			}
			cursor += asked
		}
	}
}

// round issues up to f.workers concurrent page requests and returns the
// flattened records plus the number asked for.
func (f *Fetcher) round(ctx context.Context, filter catalog.Filter, columns []string, cursor int) ([]catalog.AssetRecord, int, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		mu    sync.Mutex
		batch []catalog.AssetRecord
	)

	asked := 0
	for i := 0; i < f.workers; i++ {
		pageOffset := cursor + i*f.pageSize
		asked += f.pageSize

		g.Go(func() error {
			records, err := f.pager.Page(gctx, filter, columns, f.pageSize, pageOffset)
			if err != nil {
				return err
			}
			mu.Lock()
			batch = append(batch, records...)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, 0, err
	}

	f.log.Debug("fetch round complete", map[string]interface{}{
		"cursor":   cursor,
		"asked":    asked,
		"received": len(batch),
	})
	return batch, asked, nil
}
