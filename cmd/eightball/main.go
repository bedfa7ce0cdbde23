// eightball serves 8-ball pool tables over HTTP and WebSocket and runs
// headless AI play-outs.
//
// Usage:
//
//	eightball serve                 - Start the table server
//	eightball sim                   - Play AI-vs-AI racks and print the tally
//	eightball migrate up|down|version
//
// Settings come from the environment (or .env); see internal/config.
package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var flagVerbose bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "eightball",
	Short: "8-ball pool tables with physics, rules and an AI opponent",
	Long: `eightball runs 8-ball pool tables on the server: ball physics, the
break/open/grouped rules, fouls and three AI levels.

Examples:
  eightball serve
  eightball sim --level1 hard --level2 easy --racks 100 --seed 7
  eightball migrate up`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		if flagVerbose {
			log.SetLevel(log.DebugLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "Debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simCmd)
	rootCmd.AddCommand(migrateCmd)
}
