package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/zulandar/bomsync/internal/config"
	"github.com/zulandar/bomsync/internal/positions"
	"github.com/zulandar/bomsync/internal/workbook"
)

func newPositionsCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "positions [rack]",
		Short: "Show installation positions from the overview grid",
		Long:  "Aggregates the overview sheet's position columns into per-rack position labels, the same mapping a push writes to Arena. With a rack argument, shows only that rack.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rackItem := ""
			if len(args) > 0 {
				rackItem = args[0]
			}
			return runPositions(cmd, configPath, rackItem)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bomsync.yaml", "path to bomsync config file")
	return cmd
}

func runPositions(cmd *cobra.Command, configPath, rackItem string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	store, err := workbook.Open(cfg.Workbook)
	if err != nil {
		return err
	}
	defer store.Close()

	grid, err := store.OverviewGrid()
	if err != nil {
		return err
	}
	m, err := positions.Collect(grid, cfg.Workbook.PositionPrefix)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if rackItem != "" {
		labels := m.Labels(rackItem)
		if len(labels) == 0 {
			fmt.Fprintf(out, "%s occupies no positions\n", rackItem)
			return nil
		}
		fmt.Fprintf(out, "%s: %s (implied quantity %d)\n", rackItem, positions.Format(labels), len(labels))
		return nil
	}

	if len(m) == 0 {
		fmt.Fprintf(out, "No position columns found on sheet %q.\n", cfg.Workbook.OverviewSheet)
		return nil
	}

	items := make([]string, 0, len(m))
	for item := range m {
		items = append(items, item)
	}
	sort.Strings(items)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM NUMBER\tQTY\tPOSITIONS")
	for _, item := range items {
		labels := m[item]
		fmt.Fprintf(w, "%s\t%d\t%s\n", item, len(labels), positions.Format(labels))
	}
	return w.Flush()
}
