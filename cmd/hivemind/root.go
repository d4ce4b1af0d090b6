package main

import "github.com/spf13/cobra"

// newRootCmd creates the root hivemind command with all subcommands
// attached.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hivemind",
		Short:         "Reactive event log and agent dispatcher",
		Long:          "hivemind runs the durable event log, subscription registry, and\nagent runner behind a code-analysis swarm.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newServeCmd(),
		newEmitCmd(),
		newReplayCmd(),
		newAgentsCmd(),
	)

	return cmd
}
