package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/bomsync/internal/ledger"
	"github.com/zulandar/bomsync/internal/rack"
	"github.com/zulandar/bomsync/internal/reconcile"
	"gorm.io/gorm"
)

func newStatusCmd() *cobra.Command {
	var (
		configPath   string
		statusFilter string
		watch        bool
	)

	cmd := &cobra.Command{
		Use:   "status [rack]",
		Short: "Show the rack status board",
		Long:  "Displays every tracked rack with its sync status, Arena reference and last refresh. With a rack argument, shows that rack's record and recent history. Use --watch for auto-refresh.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			itemNumber := ""
			if len(args) > 0 {
				itemNumber = args[0]
			}
			return runStatus(cmd, configPath, itemNumber, statusFilter, watch)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bomsync.yaml", "path to bomsync config file")
	cmd.Flags().StringVar(&statusFilter, "status", "", "only show racks in this status")
	cmd.Flags().BoolVar(&watch, "watch", false, "auto-refresh every 5 seconds")
	return cmd
}

func runStatus(cmd *cobra.Command, configPath, itemNumber, statusFilter string, watch bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}

	// Status reads only the tracking record; no workbook or Arena client
	// is needed.
	eng := reconcile.New(gormDB, nil, nil, cfg)
	out := cmd.OutOrStdout()

	for {
		if watch {
			// Clear screen.
			fmt.Fprint(out, "\033[2J\033[H")
		}

		if itemNumber != "" {
			err = printRackDetail(out, gormDB, eng, itemNumber)
		} else {
			err = printBoard(out, gormDB, statusFilter)
		}
		if err != nil {
			return err
		}

		if !watch {
			return nil
		}
		time.Sleep(5 * time.Second)
	}
}

func printBoard(out io.Writer, gormDB *gorm.DB, statusFilter string) error {
	racks, err := rack.List(gormDB, rack.ListFilters{Status: statusFilter})
	if err != nil {
		return err
	}
	if len(racks) == 0 {
		if statusFilter != "" {
			fmt.Fprintf(out, "No racks in status %q.\n", statusFilter)
			return nil
		}
		fmt.Fprintln(out, "No racks tracked. Run `bomsync scan` to register worksheets.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ITEM NUMBER\tNAME\tSTATUS\tARENA ID\tLAST REFRESH")
	counts := make(map[string]int)
	for _, r := range racks {
		counts[r.Status]++
		remoteID := "-"
		if r.RemoteID != nil && *r.RemoteID != "" {
			remoteID = *r.RemoteID
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ItemNumber, truncate(r.Name, 32), r.Status, remoteID, refreshedAgo(r.LastRefreshedAt))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	parts := make([]string, 0, len(rack.AllStatuses))
	for _, s := range rack.AllStatuses {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], s))
		}
	}
	fmt.Fprintf(out, "\n%d rack(s): %s\n", len(racks), strings.Join(parts, ", "))
	return nil
}

func printRackDetail(out io.Writer, gormDB *gorm.DB, eng *reconcile.Engine, itemNumber string) error {
	r, err := eng.GetStatus(itemNumber)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "%s  %s\n", r.ItemNumber, r.Name)
	fmt.Fprintf(out, "Status:         %s\n", r.Status)
	remoteID := "never pulled"
	if r.RemoteID != nil && *r.RemoteID != "" {
		remoteID = *r.RemoteID
	}
	fmt.Fprintf(out, "Arena ID:       %s\n", remoteID)
	fmt.Fprintf(out, "Last refreshed: %s\n", refreshedAgo(r.LastRefreshedAt))
	fmt.Fprintf(out, "Updated:        %s\n", r.UpdatedAt.Format("2006-01-02 15:04:05"))

	events, err := ledger.List(gormDB, ledger.Filter{Rack: itemNumber, Limit: 10})
	if err != nil {
		return err
	}
	if len(events) == 0 {
		return nil
	}

	fmt.Fprintln(out, "\nRECENT HISTORY")
	// List returns newest first; reverse for chronological display.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	for _, ev := range events {
		printHistoryEvent(out, ev)
	}
	return nil
}
