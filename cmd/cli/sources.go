package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/scavenger/hunter-service/config"
	"github.com/scavenger/hunter-service/internal/sources"
)

// sourcesCmd represents the sources command
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the built-in marketplace sources",
	Long: `List every built-in marketplace source with its priority, enabled flag,
configured endpoints, and whether an API key is present in the environment
(HUNTER_<SOURCE>_API_KEY).`,
	RunE: runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	registry := sources.NewDefaultRegistry()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tENABLED\tPRIORITY\tENDPOINTS\tSCRAPE\tAPI KEY")
	for _, name := range registry.List() {
		src, _ := registry.Get(name)
		apiCfg := config.GetAPIConfig(name)
		keyState := "missing"
		if apiCfg.Configured {
			keyState = "configured"
		}
		scrape := "-"
		if src.Scrape != nil {
			scrape = "yes"
		}
		fmt.Fprintf(w, "%s\t%t\t%d\t%s\t%s\t%s\n",
			name, src.Enabled, src.Priority, strings.Join(src.Endpoints, ","), scrape, keyState)
	}
	return w.Flush()
}
