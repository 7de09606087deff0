// Package crawler walks the wiki link graph breadth-first from seed titles
// and emits raw page records as JSONL.
package crawler

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/omnidatabase/codex-cli/internal/jsonl"
	"github.com/omnidatabase/codex-cli/internal/model"
	"github.com/omnidatabase/codex-cli/internal/wiki"
)

// PageFetcher is the wiki API surface the crawler needs.
type PageFetcher interface {
	FetchPage(ctx context.Context, title string) (*wiki.Page, error)
	FetchLinks(ctx context.Context, title string) ([]string, error)
}

// PageCache caches fetched pages between runs. A nil cache disables caching.
type PageCache interface {
	Get(ctx context.Context, title string) (*model.RawPage, error)
	Put(ctx context.Context, title string, page *model.RawPage) error
}

// Options bounds a crawl.
type Options struct {
	// MaxDepth is the maximum hop distance from a seed.
	MaxDepth int
	// MaxPages caps the number of emitted page records.
	MaxPages int
	// Sleep is an extra delay after each expanded page.
	Sleep time.Duration
}

// Result is the crawl run summary.
type Result struct {
	RunAt          string `json:"run_at"`
	SeedCount      int    `json:"seed_count"`
	PagesWritten   int    `json:"pages_written"`
	Visited        int    `json:"visited"`
	QueueRemaining int    `json:"queue_remaining"`
	Errors         int    `json:"errors"`
	CacheHits      int    `json:"cache_hits"`
	Out            string `json:"out"`
}

// Crawler performs the breadth-first walk.
type Crawler struct {
	fetcher PageFetcher
	cache   PageCache
	opts    Options
	Now     func() time.Time
}

// New creates a Crawler. cache may be nil.
func New(fetcher PageFetcher, cache PageCache, opts Options) *Crawler {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = 2
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 500
	}
	return &Crawler{fetcher: fetcher, cache: cache, opts: opts, Now: time.Now}
}

type queueItem struct {
	title string
	depth int
	seed  string
}

// Run crawls from seedTitles and writes the collected pages to outPath.
// Per-page fetch failures are counted and skipped; the run only aborts on
// context cancellation or when the output cannot be written.
func (c *Crawler) Run(ctx context.Context, seedTitles []string, outPath string) (*Result, error) {
	if len(seedTitles) == 0 {
		return nil, eris.New("crawler: no seed titles")
	}

	visited := map[string]bool{}
	queued := map[string]bool{}
	var queue []queueItem
	for _, t := range seedTitles {
		if queued[t] {
			continue
		}
		queued[t] = true
		queue = append(queue, queueItem{title: t, depth: 0, seed: t})
	}

	var records []model.RawPage
	errCount := 0
	cacheHits := 0

	for len(queue) > 0 && len(records) < c.opts.MaxPages {
		item := queue[0]
		queue = queue[1:]
		if visited[item.title] {
			continue
		}
		visited[item.title] = true

		page, hit, err := c.lookupPage(ctx, item.title)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(err, "crawler: aborted")
			}
			zap.L().Warn("page fetch failed",
				zap.String("title", item.title),
				zap.Error(err),
			)
			errCount++
			continue
		}
		if page == nil {
			continue
		}
		if hit {
			cacheHits++
		}

		page.Depth = item.depth
		page.SeedTitle = item.seed
		records = append(records, *page)
		zap.L().Debug("page collected",
			zap.String("title", page.Title),
			zap.Int("depth", item.depth),
		)

		if item.depth >= c.opts.MaxDepth {
			continue
		}

		links, err := c.fetcher.FetchLinks(ctx, page.Title)
		if err != nil {
			if ctx.Err() != nil {
				return nil, eris.Wrap(err, "crawler: aborted")
			}
			zap.L().Warn("link listing failed",
				zap.String("title", page.Title),
				zap.Error(err),
			)
			errCount++
			continue
		}
		for _, link := range links {
			if visited[link] || queued[link] {
				continue
			}
			queued[link] = true
			queue = append(queue, queueItem{title: link, depth: item.depth + 1, seed: item.seed})
		}

		if c.opts.Sleep > 0 {
			timer := time.NewTimer(c.opts.Sleep)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, eris.Wrap(ctx.Err(), "crawler: aborted")
			case <-timer.C:
			}
		}
	}

	if err := jsonl.Write(outPath, records); err != nil {
		return nil, err
	}

	return &Result{
		RunAt:          c.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
		SeedCount:      len(seedTitles),
		PagesWritten:   len(records),
		Visited:        len(visited),
		QueueRemaining: len(queue),
		Errors:         errCount,
		CacheHits:      cacheHits,
		Out:            outPath,
	}, nil
}

// lookupPage consults the cache first, then the wiki API. The boolean
// reports a cache hit. Missing pages come back as (nil, false, nil).
func (c *Crawler) lookupPage(ctx context.Context, title string) (*model.RawPage, bool, error) {
	if c.cache != nil {
		cached, err := c.cache.Get(ctx, title)
		if err != nil {
			zap.L().Warn("page cache read failed",
				zap.String("title", title),
				zap.Error(err),
			)
		} else if cached != nil {
			return cached, true, nil
		}
	}

	fetched, err := c.fetcher.FetchPage(ctx, title)
	if err != nil {
		return nil, false, err
	}
	if fetched == nil {
		return nil, false, nil
	}

	page := &model.RawPage{
		PageID:            fetched.PageID,
		Title:             fetched.Title,
		URL:               fetched.URL,
		Summary:           fetched.Summary,
		Categories:        fetched.Categories,
		Image:             fetched.Image,
		RevisionID:        fetched.RevisionID,
		RevisionTimestamp: fetched.RevisionTimestamp,
		FetchedAt:         c.Now().UTC().Truncate(time.Second).Format(time.RFC3339),
	}
	if c.cache != nil {
		if err := c.cache.Put(ctx, title, page); err != nil {
			zap.L().Warn("page cache write failed",
				zap.String("title", title),
				zap.Error(err),
			)
		}
	}
	return page, false, nil
}
