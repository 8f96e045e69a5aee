package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/scavenger/hunter-service/internal/scoring"
	"github.com/scavenger/hunter-service/internal/types"
)

var scoreOutput string

// scoreCmd represents the score command
var scoreCmd = &cobra.Command{
	Use:   "score [file]",
	Short: "Score a task candidate from a JSON file or stdin",
	Long: `Score a single task candidate through the scoring engine and print the
composite score with its per-signal breakdown. The input is one task in JSON
form; pass a file path or pipe it on stdin.`,
	Example: `  hunter score task.json
  cat task.json | hunter score
  hunter score task.json --output json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScore,
}

func init() {
	rootCmd.AddCommand(scoreCmd)

	scoreCmd.Flags().StringVar(&scoreOutput, "output", "text", "Output format: text or json")
}

func runScore(cmd *cobra.Command, args []string) error {
	var input io.Reader = os.Stdin
	if len(args) == 1 {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open task file: %w", err)
		}
		defer f.Close()
		input = f
	}

	var task types.Task
	if err := json.NewDecoder(input).Decode(&task); err != nil {
		return fmt.Errorf("decode task: %w", err)
	}
	if task.Title == "" {
		return fmt.Errorf("task has no title")
	}
	if task.Category == "" {
		task.Category = types.CategoryGeneral
	}

	engine := scoring.NewEngine(scoring.DefaultConfig(), *logger)
	analysis := engine.Analyze(&task)

	if scoreOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(analysis)
	}

	fmt.Printf("Task:            %s\n", task.Title)
	fmt.Printf("Source:          %s\n", task.SourceName)
	fmt.Printf("Category:        %s\n", task.Category)
	fmt.Printf("Reward:          $%.2f\n", task.Reward)
	fmt.Println()
	fmt.Printf("Total score:     %.1f\n", analysis.TotalScore)
	fmt.Printf("Recommendation:  %s\n", analysis.Recommendation)
	fmt.Println()
	fmt.Printf("  success rate   %.1f\n", analysis.Breakdown.SuccessRate)
	fmt.Printf("  profitability  %.1f\n", analysis.Breakdown.Profitability)
	fmt.Printf("  automation     %.1f\n", analysis.Breakdown.Automation)
	fmt.Printf("  ease           %.1f\n", analysis.Breakdown.Ease)
	fmt.Printf("  reliability    %.1f\n", analysis.Breakdown.Reliability)
	fmt.Printf("  learning bonus %.1f\n", analysis.Breakdown.LearningBonus)
	return nil
}
