package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omnidatabase/codex-cli/internal/seeds"
)

var seedsCmd = &cobra.Command{
	Use:   "seeds",
	Short: "Expand curated category pages into a seed catalog",
	Long: `Resolves each curated category page to its member articles and unions
them with the base seed list, producing an expanded seeds JSON with a
discovered_from mapping for every category-sourced title.`,
	RunE: runSeeds,
}

func init() {
	f := seedsCmd.Flags()
	f.String("seeds", "", "base seeds JSON path")
	f.String("categories", "", "category seeds JSON path")
	f.String("out", "tmp/expanded_seeds.json", "expanded seeds output JSON path")
	f.Int("members-per-category", 0, "member cap per category (0 = config default)")
	f.Int("concurrency", 0, "concurrent category fetches (0 = config default)")
	_ = seedsCmd.MarkFlagRequired("seeds")
	_ = seedsCmd.MarkFlagRequired("categories")

	rootCmd.AddCommand(seedsCmd)
}

func runSeeds(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	seedsPath, _ := cmd.Flags().GetString("seeds")
	categoriesPath, _ := cmd.Flags().GetString("categories")
	outPath, _ := cmd.Flags().GetString("out")

	base, err := seeds.LoadSeedTitles(seedsPath, cfg.Wiki.Host)
	if err != nil {
		return err
	}
	categories, err := seeds.LoadCategoryTitles(categoriesPath, cfg.Wiki.Host)
	if err != nil {
		return err
	}

	expander := seeds.NewExpander(wikiClient(), cfg.Wiki.Host)
	expander.MembersPerCategory = cfg.Seeds.MembersPerCategory
	expander.Concurrency = cfg.Seeds.Concurrency
	if v, _ := cmd.Flags().GetInt("members-per-category"); v > 0 {
		expander.MembersPerCategory = v
	}
	if v, _ := cmd.Flags().GetInt("concurrency"); v > 0 {
		expander.Concurrency = v
	}

	zap.L().Info("seed expansion starting",
		zap.Int("base_seeds", len(base)),
		zap.Int("categories", len(categories)),
	)

	catalog := expander.Build(ctx, base, categories)
	if err := seeds.WriteCatalog(outPath, catalog); err != nil {
		return err
	}
	return printSummary(catalog.Metadata)
}
