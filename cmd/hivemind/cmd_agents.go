package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mistakeknot/hivemind/client"
)

// newAgentsCmd creates the "hivemind agents" subcommand.
func newAgentsCmd() *cobra.Command {
	var (
		serverURL string
		status    string
	)
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "List agents in the swarm directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			c := client.New(serverURL)
			agents, err := c.Agents(cmd.Context(), status)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, a := range agents {
				name := a.DisplayName
				if name == "" {
					name = a.AgentID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s:%d-%d\t%s\n",
					a.AgentID, name, a.NodeType, a.FilePath, a.StartLine, a.EndLine, a.Status)
			}
			fmt.Fprintf(w, "%d agents\n", len(agents))
			return nil
		},
	}
	cmd.Flags().StringVar(&serverURL, "server", "http://127.0.0.1:7431", "server base URL")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (active or orphaned)")
	return cmd
}
