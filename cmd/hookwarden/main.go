// Command hookwarden intercepts an autonomous coding agent's tool-use
// events and decides whether each may proceed. It runs either as a
// per-event hook (check), a long-lived daemon (serve), or a trace query
// tool (trace).
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:           "hookwarden",
		Short:         "Guard and pattern-analysis engine for agent tool-use events",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(),
		"path to the rule-catalog YAML file")

	root.AddCommand(
		newCheckCmd(&cfgPath),
		newServeCmd(&cfgPath),
		newTraceCmd(&cfgPath),
	)
	return root
}

func defaultConfigPath() string {
	if v := os.Getenv("HOOKWARDEN_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".hookwarden/config.yaml"
	}
	return home + "/.hookwarden/config.yaml"
}
