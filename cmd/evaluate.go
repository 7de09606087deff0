package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/omnidatabase/codex-cli/internal/jsonl"
	"github.com/omnidatabase/codex-cli/internal/model"
	"github.com/omnidatabase/codex-cli/internal/report"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate candidate quality and coverage before merge",
	Long: `Builds a pre-merge evaluation report over a candidate batch: module and
category coverage, confidence histogram, low-confidence samples, and
duplicate id/url/lore detection.`,
	RunE: runEvaluate,
}

func init() {
	f := evaluateCmd.Flags()
	f.String("in", "", "candidate JSONL path")
	f.String("out", "reports/candidate_evaluation.json", "evaluation report JSON output path")
	_ = evaluateCmd.MarkFlagRequired("in")

	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	inPath, _ := cmd.Flags().GetString("in")
	outPath, _ := cmd.Flags().GetString("out")

	candidates, err := jsonl.Read[model.Candidate](inPath)
	if err != nil {
		return err
	}

	rep := report.Evaluate(candidates, time.Now())
	if err := report.Write(outPath, rep); err != nil {
		return err
	}
	return printSummary(rep)
}
