package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omnidatabase/codex-cli/internal/jsonl"
	"github.com/omnidatabase/codex-cli/internal/model"
	"github.com/omnidatabase/codex-cli/internal/normalize"
	"github.com/omnidatabase/codex-cli/internal/rules"
)

var normalizeCmd = &cobra.Command{
	Use:   "normalize",
	Short: "Classify raw pages into catalog candidates",
	Long: `Scores each raw page against the mapping rules, assigns module and
category, extracts lore and canon tags, and emits one candidate record
per accepted page as JSONL. Rejected pages are counted per reason in
the summary.`,
	RunE: runNormalize,
}

func init() {
	f := normalizeCmd.Flags()
	f.String("in", "", "input raw page JSONL path")
	f.String("mapping", "", "mapping rules path (JSON or YAML)")
	f.String("thresholds", "config/module_thresholds.json", "per-module confidence thresholds path")
	f.String("out", "", "output candidate JSONL path")
	_ = normalizeCmd.MarkFlagRequired("in")
	_ = normalizeCmd.MarkFlagRequired("mapping")
	_ = normalizeCmd.MarkFlagRequired("out")

	rootCmd.AddCommand(normalizeCmd)
}

func runNormalize(cmd *cobra.Command, _ []string) error {
	inPath, _ := cmd.Flags().GetString("in")
	mappingPath, _ := cmd.Flags().GetString("mapping")
	thresholdsPath, _ := cmd.Flags().GetString("thresholds")
	outPath, _ := cmd.Flags().GetString("out")

	mapping, err := rules.LoadMapping(mappingPath)
	if err != nil {
		return err
	}
	thresholds, err := rules.LoadThresholds(thresholdsPath)
	if err != nil {
		return err
	}

	pages, err := jsonl.Read[model.RawPage](inPath)
	if err != nil {
		return err
	}
	zap.L().Info("normalize starting", zap.Int("input_pages", len(pages)))

	asm := normalize.NewAssembler(mapping, thresholds)
	asm.SourceAttribution = cfg.Normalize.SourceAttribution

	candidates, result := asm.Run(pages)
	if err := jsonl.Write(outPath, candidates); err != nil {
		return err
	}

	result.RunAt = nowISO()
	result.Out = outPath
	return printSummary(result)
}
