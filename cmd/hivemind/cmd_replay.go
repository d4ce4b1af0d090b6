package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/hivemind/client"
)

// newReplayCmd creates the "hivemind replay" subcommand.
func newReplayCmd() *cobra.Command {
	var (
		serverURL string
		fromID    int64
		graph     string
	)
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "List persisted events in append order",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverURL)
			events, err := c.Replay(cmd.Context(), fromID, graph)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, ev := range events {
				line := fmt.Sprintf("%d\t%s", ev.ID, ev.Type)
				if ev.FromAgent != "" {
					line += "\tfrom=" + ev.FromAgent
				}
				if ev.ToAgent != "" {
					line += "\tto=" + ev.ToAgent
				}
				if ev.Path != "" {
					line += "\tpath=" + ev.Path
				}
				fmt.Fprintln(w, line)
			}
			fmt.Fprintf(w, "%d events\n", len(events))
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://127.0.0.1:7431", "server base URL")
	cmd.Flags().Int64Var(&fromID, "from", 0, "replay events with id >= from")
	cmd.Flags().StringVar(&graph, "graph", "", "filter by graph id")
	return cmd
}
