package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/scavenger/hunter-service/config"
	"github.com/scavenger/hunter-service/internal/antidetect"
	"github.com/scavenger/hunter-service/internal/dedup"
	"github.com/scavenger/hunter-service/internal/hunter"
	"github.com/scavenger/hunter-service/internal/normalize"
	"github.com/scavenger/hunter-service/internal/scoring"
	"github.com/scavenger/hunter-service/internal/sources"
	"github.com/scavenger/hunter-service/internal/types"
)

var (
	huntSource  string
	huntOutput  string
	huntTimeout time.Duration
)

// huntCmd represents the hunt command
var huntCmd = &cobra.Command{
	Use:   "hunt",
	Short: "Run one dry discovery pass over the configured sources",
	Long: `Run a single discovery pass: probe each enabled source's API endpoints,
fall back to scraping where configured, normalize and score the candidates,
and print the deduplicated results. Nothing is queued or dispatched.`,
	Example: `  hunter hunt
  hunter hunt --source microworkers
  hunter hunt --output json --timeout 2m`,
	RunE: runHunt,
}

func init() {
	rootCmd.AddCommand(huntCmd)

	huntCmd.Flags().StringVar(&huntSource, "source", "", "Limit discovery to a single source")
	huntCmd.Flags().StringVar(&huntOutput, "output", "table", "Output format: table or json")
	huntCmd.Flags().DurationVar(&huntTimeout, "timeout", 5*time.Minute, "Overall discovery timeout")
}

func runHunt(cmd *cobra.Command, args []string) error {
	registry := sources.NewDefaultRegistry()
	if huntSource != "" {
		if _, ok := registry.Get(huntSource); !ok {
			return fmt.Errorf("unknown source: %s\nKnown sources: %s", huntSource, strings.Join(registry.List(), ", "))
		}
		for _, name := range registry.List() {
			if err := registry.SetEnabled(name, name == huntSource); err != nil {
				return err
			}
		}
	}

	governor := antidetect.NewGovernor(antidetect.DefaultConfig(), *logger)
	h := hunter.New(registry, governor, cliAPIKeyLookup, hunter.Config{}, *logger)
	normalizer := normalize.New(normalize.DefaultConfig(), *logger)
	engine := scoring.NewEngine(scoring.DefaultConfig(), *logger)

	ctx, cancel := context.WithTimeout(context.Background(), huntTimeout)
	defer cancel()

	logger.Info().Msg("Starting discovery pass")
	raw := h.HuntAll(ctx)
	candidates := normalizer.NormalizeAll(raw)

	for _, task := range candidates {
		analysis := engine.Analyze(task)
		task.SmartScore = analysis.TotalScore
		task.ScoreBreakdown = &analysis.Breakdown
		task.Recommendation = analysis.Recommendation
	}

	unique := dedup.Collapse(candidates)
	sort.SliceStable(unique, func(i, j int) bool {
		return unique[i].SmartScore > unique[j].SmartScore
	})

	logger.Info().Int("raw", len(raw)).Int("unique", len(unique)).Msg("Discovery pass complete")

	switch strings.ToLower(huntOutput) {
	case "json":
		return outputHuntJSON(unique)
	case "table":
		outputHuntTable(unique)
	default:
		return fmt.Errorf("invalid output format: %s (use 'table' or 'json')", huntOutput)
	}
	return nil
}

func cliAPIKeyLookup(sourceName string) (string, bool) {
	apiCfg := config.GetAPIConfig(sourceName)
	return apiCfg.APIKey, apiCfg.Configured
}

func outputHuntJSON(tasks []*types.Task) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(tasks)
}

func outputHuntTable(tasks []*types.Task) {
	if len(tasks) == 0 {
		fmt.Println("No task candidates found.")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tTITLE\tREWARD\tDURATION\tCATEGORY\tSCORE\tRECOMMENDATION")
	for _, t := range tasks {
		title := t.Title
		if len(title) > 40 {
			title = title[:37] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t$%.2f\t%dm\t%s\t%.1f\t%s\n",
			t.SourceName, title, t.Reward, t.EstimatedDuration/60, t.Category, t.SmartScore, t.Recommendation)
	}
	w.Flush()
}
