package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/bomsync/internal/reconcile"
)

func newScanCmd() *cobra.Command {
	var (
		configPath string
		prune      bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Discover rack worksheets and register tracking records",
		Long: `Scans the workbook for rack worksheets and materializes a placeholder
tracking record for each new one. Existing records get their display name
refreshed from the sheet header. With --prune, records whose worksheet no
longer exists are removed; their history entries stay.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, configPath, prune)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bomsync.yaml", "path to bomsync config file")
	cmd.Flags().BoolVar(&prune, "prune", false, "remove records for deleted worksheets")
	return cmd
}

func runScan(cmd *cobra.Command, configPath string, prune bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	eng, store, err := openWorkbookEngine(cfg, gormDB)
	if err != nil {
		return err
	}
	defer store.Close()

	res, err := eng.Scan(reconcile.ScanOpts{Prune: prune})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned %d rack worksheet(s)\n", res.Sheets)
	if len(res.Created) > 0 {
		fmt.Fprintf(out, "Registered %d new rack(s): %s\n", len(res.Created), strings.Join(res.Created, ", "))
	}
	if len(res.Pruned) > 0 {
		fmt.Fprintf(out, "Pruned %d stale record(s): %s\n", len(res.Pruned), strings.Join(res.Pruned, ", "))
	}
	if len(res.Created) == 0 && len(res.Pruned) == 0 {
		fmt.Fprintln(out, "Tracking records already up to date")
	}
	return nil
}
