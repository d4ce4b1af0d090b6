package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/hivemind/client"
)

// newEmitCmd creates the "hivemind emit" subcommand.
func newEmitCmd() *cobra.Command {
	var (
		serverURL string
		evType    string
		from      string
		to        string
		path      string
		graph     string
		tags      []string
		payload   string
	)
	cmd := &cobra.Command{
		Use:   "emit",
		Short: "Append an event to the log",
		RunE: func(cmd *cobra.Command, args []string) error {
			ev := client.Event{
				Type:      evType,
				FromAgent: from,
				ToAgent:   to,
				Path:      path,
				GraphID:   graph,
				Tags:      tags,
			}
			if payload != "" {
				if err := json.Unmarshal([]byte(payload), &ev.Payload); err != nil {
					return fmt.Errorf("parse payload: %w", err)
				}
			}
			c := client.New(serverURL)
			out, err := c.AppendEvent(cmd.Context(), ev)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "event %d appended\n", out.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://127.0.0.1:7431", "server base URL")
	cmd.Flags().StringVar(&evType, "type", "manual.trigger", "event type")
	cmd.Flags().StringVar(&from, "from", "", "originating agent id")
	cmd.Flags().StringVar(&to, "to", "", "addressed agent id")
	cmd.Flags().StringVar(&path, "path", "", "file path the event concerns")
	cmd.Flags().StringVar(&graph, "graph", "", "graph id")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag (repeatable)")
	cmd.Flags().StringVar(&payload, "payload", "", "payload as a JSON object")
	return cmd
}
