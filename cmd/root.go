package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/omnidatabase/codex-cli/internal/config"
	"github.com/omnidatabase/codex-cli/internal/resilience"
	"github.com/omnidatabase/codex-cli/internal/wiki"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "codex",
	Short: "Fallout wiki catalog pipeline",
	Long:  "Crawls the Fallout wiki, classifies pages into catalog modules via weighted keyword rules, and merges candidate records into the JSON catalog with full provenance.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// printSummary writes a run summary as indented JSON to stdout. Logs go to
// stderr, so stdout stays machine-readable.
func printSummary(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal summary")
	}
	fmt.Println(string(data))
	return nil
}

// writeJSON writes v as indented JSON to path, creating parent dirs.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return eris.Wrapf(err, "marshal %s", path)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return eris.Wrapf(err, "create dir %s", dir)
		}
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return eris.Wrapf(err, "write %s", path)
	}
	return nil
}

func wikiClient() *wiki.Client {
	return wiki.NewClient(wiki.Options{
		APIURL:            cfg.Wiki.APIURL,
		Host:              cfg.Wiki.Host,
		UserAgent:         cfg.Wiki.UserAgent,
		Timeout:           time.Duration(cfg.Wiki.TimeoutSecs) * time.Second,
		RequestsPerSecond: cfg.Wiki.RequestsPerSecond,
		Retry:             resilience.RetryConfig{MaxAttempts: cfg.Wiki.MaxRetries},
	})
}

func nowISO() string {
	return time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
}

func splitAndTrim(s string) []string {
	var result []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
