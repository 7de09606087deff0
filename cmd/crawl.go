package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omnidatabase/codex-cli/internal/crawler"
	"github.com/omnidatabase/codex-cli/internal/seeds"
	"github.com/omnidatabase/codex-cli/internal/store"
)

var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl wiki pages breadth-first from seed titles",
	Long: `Walks the wiki link graph breadth-first from the seed urls, bounded by
depth and page caps, and writes one raw page record per line as JSONL.
With a cache path set, pages fetched within the cache TTL are reused
instead of re-fetched.`,
	RunE: runCrawl,
}

func init() {
	f := crawlCmd.Flags()
	f.String("seeds", "", "seeds JSON path (object with seed_urls, or a bare url list)")
	f.String("out", "", "output raw page JSONL path")
	f.Int("max-depth", 0, "max hop depth from seeds (0 = config default)")
	f.Int("max-pages", 0, "hard cap on crawled pages (0 = config default)")
	f.Int("sleep-ms", -1, "extra delay between page expansions (-1 = config default)")
	f.String("cache", "", "sqlite page cache path (empty = crawl.cache_path config; caching off when both are empty)")
	_ = crawlCmd.MarkFlagRequired("seeds")
	_ = crawlCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(crawlCmd)
}

func runCrawl(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seedsPath, _ := cmd.Flags().GetString("seeds")
	outPath, _ := cmd.Flags().GetString("out")

	titles, err := seeds.LoadSeedTitles(seedsPath, cfg.Wiki.Host)
	if err != nil {
		return err
	}

	opts := crawler.Options{
		MaxDepth: cfg.Crawl.MaxDepth,
		MaxPages: cfg.Crawl.MaxPages,
		Sleep:    time.Duration(cfg.Crawl.SleepMS) * time.Millisecond,
	}
	if v, _ := cmd.Flags().GetInt("max-depth"); v > 0 {
		opts.MaxDepth = v
	}
	if v, _ := cmd.Flags().GetInt("max-pages"); v > 0 {
		opts.MaxPages = v
	}
	if v, _ := cmd.Flags().GetInt("sleep-ms"); v >= 0 {
		opts.Sleep = time.Duration(v) * time.Millisecond
	}

	cachePath, _ := cmd.Flags().GetString("cache")
	if cachePath == "" {
		cachePath = cfg.Crawl.CachePath
	}

	var cache crawler.PageCache
	if cachePath != "" {
		pc, err := store.OpenPageCache(cachePath, time.Duration(cfg.Crawl.CacheTTLHours)*time.Hour)
		if err != nil {
			return err
		}
		defer pc.Close() //nolint:errcheck
		if n, err := pc.DeleteExpired(ctx); err == nil && n > 0 {
			zap.L().Debug("expired cache entries removed", zap.Int("count", n))
		}
		cache = pc
	}

	zap.L().Info("crawl starting",
		zap.Int("seed_count", len(titles)),
		zap.Int("max_depth", opts.MaxDepth),
		zap.Int("max_pages", opts.MaxPages),
	)

	res, err := crawler.New(wikiClient(), cache, opts).Run(ctx, titles, outPath)
	if err != nil {
		return err
	}
	return printSummary(res)
}
