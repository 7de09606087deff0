package main

import (
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omnidatabase/codex-cli/internal/catalog"
	"github.com/omnidatabase/codex-cli/internal/jsonl"
	"github.com/omnidatabase/codex-cli/internal/merge"
	"github.com/omnidatabase/codex-cli/internal/model"
)

var mergeCmd = &cobra.Command{
	Use:   "merge",
	Short: "Merge candidate records into the catalog",
	Long: `Reconciles a candidate batch against the catalog JSON in strict input
order. Each candidate is inserted, merged into its existing record, or
skipped with a reason; every action is appended to the provenance and
decision logs, and the run summary is written as a per-run manifest.`,
	RunE: runMerge,
}

func init() {
	f := mergeCmd.Flags()
	f.String("catalog", "", "catalog JSON path")
	f.String("in", "", "candidate JSONL path")
	f.String("provenance", "", "provenance JSONL output path (appended)")
	f.String("decision-log", "reports/merge_decisions.jsonl", "decision JSONL output path (appended, empty disables)")
	f.String("conflict", "", "conflict policy: prefer_newer, conservative, or skip_existing (empty = config default)")
	f.String("canon", "", "allowed canon tags, comma separated (empty = config default)")
	f.Int("max-inserts", 0, "maximum inserts for this run (0 = unlimited)")
	f.Int("max-updates", 0, "maximum updates for this run (0 = unlimited)")
	f.Float64("similarity-threshold", 0, "near-duplicate lore similarity threshold (0 = config default)")
	f.String("summary-out", "reports/last_run_summary.json", "run summary JSON output path")
	f.String("run-manifest-dir", "reports/runs", "directory for per-run manifest JSON files")
	_ = mergeCmd.MarkFlagRequired("catalog")
	_ = mergeCmd.MarkFlagRequired("in")
	_ = mergeCmd.MarkFlagRequired("provenance")

	rootCmd.AddCommand(mergeCmd)
}

func runMerge(cmd *cobra.Command, _ []string) error {
	catalogPath, _ := cmd.Flags().GetString("catalog")
	inPath, _ := cmd.Flags().GetString("in")
	provenancePath, _ := cmd.Flags().GetString("provenance")
	decisionLogPath, _ := cmd.Flags().GetString("decision-log")
	summaryOut, _ := cmd.Flags().GetString("summary-out")
	manifestDir, _ := cmd.Flags().GetString("run-manifest-dir")

	conflict, _ := cmd.Flags().GetString("conflict")
	if conflict == "" {
		conflict = cfg.Merge.Conflict
	}
	if !merge.ValidPolicy(conflict) {
		return eris.Errorf("merge: invalid conflict policy %q", conflict)
	}

	canon, _ := cmd.Flags().GetString("canon")
	if canon == "" {
		canon = cfg.Merge.Canon
	}

	threshold, _ := cmd.Flags().GetFloat64("similarity-threshold")
	if threshold <= 0 {
		threshold = cfg.Merge.SimilarityThreshold
	}

	maxInserts, _ := cmd.Flags().GetInt("max-inserts")
	maxUpdates, _ := cmd.Flags().GetInt("max-updates")

	cat, err := catalog.Load(catalogPath)
	if err != nil {
		return err
	}
	candidates, err := jsonl.Read[model.Candidate](inPath)
	if err != nil {
		return err
	}

	engine := merge.NewEngine(cat, merge.Options{
		Conflict:            merge.Policy(conflict),
		AllowedCanon:        splitAndTrim(canon),
		MaxInserts:          maxInserts,
		MaxUpdates:          maxUpdates,
		SimilarityThreshold: threshold,
		SourceAttribution:   cfg.Normalize.SourceAttribution,
	})
	res := engine.Run(candidates)
	res.Summary.Catalog = catalogPath
	res.Summary.Provenance = provenancePath
	res.Summary.DecisionLog = decisionLogPath

	if err := catalog.Save(catalogPath, cat); err != nil {
		return err
	}
	if err := jsonl.Append(provenancePath, res.Provenance); err != nil {
		return err
	}
	if decisionLogPath != "" {
		if err := jsonl.Append(decisionLogPath, res.Decisions); err != nil {
			return err
		}
	}
	if err := writeJSON(summaryOut, res.Summary); err != nil {
		return err
	}
	manifestPath := filepath.Join(manifestDir, res.Summary.RunID+".json")
	if err := writeJSON(manifestPath, res.Summary); err != nil {
		return err
	}

	zap.L().Info("merge finished",
		zap.String("run_id", res.Summary.RunID),
		zap.Int("inserted", res.Summary.Inserted),
		zap.Int("updated", res.Summary.Updated),
		zap.Int("skipped", res.Summary.Skipped),
	)
	return printSummary(res.Summary)
}
