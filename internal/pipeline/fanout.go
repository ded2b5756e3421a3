package pipeline

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	"github.com/nao1215/seoscan/internal/crawler"
	"github.com/nao1215/seoscan/internal/fetcher"
	"github.com/nao1215/seoscan/internal/model"
)

type indexedPage struct {
	index int
	page  model.PageResult
}

// FetchPages fetches and analyzes urls as standalone pages with at most
// workers concurrent requests. Results keep the input order; failures are
// recorded on the pages.
func FetchPages(ctx context.Context, f fetcher.Fetcher, a crawler.PageAnalyzer, urls []string, workers int) []model.PageResult {
	if workers < 1 {
		workers = 1
	}

	p := pool.NewWithResults[indexedPage]().WithMaxGoroutines(workers)
	for i, u := range urls {
		p.Go(func() indexedPage {
			resp, err := f.Fetch(ctx, u)
			return indexedPage{index: i, page: a.AnalyzeResponse(u, 0, resp, err)}
		})
	}

	pages := make([]model.PageResult, len(urls))
	for _, r := range p.Wait() {
		pages[r.index] = r.page
	}
	return pages
}
