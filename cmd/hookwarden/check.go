package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// newCheckCmd reads one hook event from stdin and writes the decision to
// stdout. The exit code is always zero: the engine fails open and the host
// reads the continue field, never the process status.
func newCheckCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Evaluate one tool-use event from stdin",
		RunE: func(cmd *cobra.Command, _ []string) error {
			eng, err := buildEngine(*cfgPath)
			if err != nil {
				// No engine means no opinion: emit a bare allow so a broken
				// install never blocks the agent.
				return json.NewEncoder(os.Stdout).Encode(map[string]bool{"continue": true})
			}
			defer eng.close()

			payload, _ := io.ReadAll(os.Stdin)
			dec := eng.dispatcher.Dispatch(cmd.Context(), payload)
			return json.NewEncoder(os.Stdout).Encode(dec)
		},
	}
}
