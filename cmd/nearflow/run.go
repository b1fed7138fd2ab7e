package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nearflow"
	"nearflow/flows"
)

func newRunCommand(root *rootOptions) *cobra.Command {
	var (
		itemsPath string
		threadID  string
		maxSteps  int
	)
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a flow script and print the resulting items as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := root.load(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.close()

			script, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("could not read script: %w", err)
			}
			items, err := readItems(itemsPath)
			if err != nil {
				return err
			}

			flow, err := flows.ParseFlowDSL(string(script), rt.env)
			if err != nil {
				return fmt.Errorf("could not parse script: %w", err)
			}
			flow.AddMonitor(flows.NewLogMonitor(rt.log))
			if threadID != "" {
				flow.WithCheckpoint(rt.cp, threadID)
			}
			if maxSteps > 0 {
				flow.WithMaxSteps(maxSteps)
			}

			out, runErr := flow.RunItems(cmd.Context(), items)
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("could not encode items: %w", err)
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&itemsPath, "items", "i", "", "JSON file holding an array of input item objects")
	cmd.Flags().StringVar(&threadID, "flow-id", "", "checkpoint the run under this id and resume it when it exists")
	cmd.Flags().IntVar(&maxSteps, "max-steps", 0, "abort after this many steps, 0 for no limit")
	return cmd
}

func readItems(path string) ([]nearflow.Item, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read items: %w", err)
	}
	var payloads []map[string]any
	if err := json.Unmarshal(data, &payloads); err != nil {
		return nil, fmt.Errorf("could not decode items: %w", err)
	}
	items := make([]nearflow.Item, 0, len(payloads))
	for _, payload := range payloads {
		items = append(items, nearflow.NewItem(payload))
	}
	return items, nil
}
