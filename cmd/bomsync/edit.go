package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newEditCmd() *cobra.Command {
	var (
		configPath string
		rows       string
	)

	cmd := &cobra.Command{
		Use:   "edit <rack> --rows A-B",
		Short: "Record a local worksheet edit",
		Long: `Records an edited-rows notification from the host spreadsheet's change
hook. Edits inside the rack's BOM data region flag it local_modified;
edits outside the region are ignored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEdit(cmd, configPath, args[0], rows)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bomsync.yaml", "path to bomsync config file")
	cmd.Flags().StringVar(&rows, "rows", "", "edited row range, e.g. 7-9 or 12")
	return cmd
}

func runEdit(cmd *cobra.Command, configPath, itemNumber, rows string) error {
	if rows == "" {
		return fmt.Errorf("--rows is required")
	}
	startRow, endRow, err := parseRowRange(rows)
	if err != nil {
		return err
	}

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	eng, store, err := openWorkbookEngine(cfg, gormDB)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := eng.RecordEdit(itemNumber, startRow, endRow)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (status: %s)\n", res.Message, res.Status)
	return nil
}

// parseRowRange parses "7-9" into its bounds; a bare "12" means 12-12.
func parseRowRange(s string) (int, int, error) {
	lo, hi, found := strings.Cut(s, "-")
	if !found {
		hi = lo
	}
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid row range %q", s)
	}
	end, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid row range %q", s)
	}
	return start, end, nil
}
