package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newStatusCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [networkId]",
		Short: "Show the chain, height and version reported by a network's RPC node",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.close()

			networkID := "mainnet"
			if len(args) == 1 {
				networkID = args[0]
			}
			conn, err := rt.env.Connector.Connect(networkID, nil)
			if err != nil {
				return err
			}
			status, err := conn.Provider.Status(cmd.Context())
			if err != nil {
				return fmt.Errorf("could not query %s: %w", networkID, err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NETWORK\tCHAIN\tHEIGHT\tSYNCING\tVERSION")
			fmt.Fprintf(w, "%s\t%s\t%d\t%t\t%s\n", networkID, status.ChainID,
				status.SyncInfo.LatestBlockHeight, status.SyncInfo.Syncing, status.Version.Version)
			return w.Flush()
		},
	}
	return cmd
}
