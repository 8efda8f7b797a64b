package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/bomsync/internal/ledger"
	"github.com/zulandar/bomsync/internal/models"
)

func newHistoryCmd() *cobra.Command {
	var (
		configPath string
		eventType  string
		limit      int
		follow     bool
	)

	cmd := &cobra.Command{
		Use:   "history [rack]",
		Short: "Show the reconciliation history ledger",
		Long:  "Lists history events in chronological order, optionally filtered by rack and event type. Use --follow to keep streaming new events as they are appended.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rackItem := ""
			if len(args) > 0 {
				rackItem = args[0]
			}
			return runHistory(cmd, configPath, rackItem, eventType, limit, follow)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bomsync.yaml", "path to bomsync config file")
	cmd.Flags().StringVar(&eventType, "type", "", "only show events of this type (e.g. push, refresh-accepted)")
	cmd.Flags().IntVar(&limit, "limit", 20, "max events to list; 0 lists everything")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep streaming new events")
	return cmd
}

func runHistory(cmd *cobra.Command, configPath, rackItem, eventType string, limit int, follow bool) error {
	_, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	events, err := ledger.List(gormDB, ledger.Filter{Rack: rackItem, EventType: eventType, Limit: limit})
	if err != nil {
		return err
	}
	if len(events) == 0 && !follow {
		fmt.Fprintln(out, "No history yet.")
		return nil
	}

	// List returns newest first; reverse for chronological display.
	for i, j := 0, len(events)-1; i < j; i, j = i+1, j-1 {
		events[i], events[j] = events[j], events[i]
	}
	for _, ev := range events {
		printHistoryEvent(out, ev)
	}

	if !follow {
		return nil
	}

	// New events are polled past the newest ID regardless of filters, so
	// events the filters hid are never replayed.
	var lastID uint
	if len(events) > 0 {
		lastID = events[len(events)-1].ID
	}
	if tail, err := ledger.LastID(gormDB); err == nil && tail > lastID {
		lastID = tail
	}

	fmt.Fprintln(out, "Following... (Ctrl+C to stop)")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			newEvents, err := ledger.After(gormDB, lastID)
			if err != nil {
				fmt.Fprintf(out, "poll error: %v\n", err)
				continue
			}
			for _, ev := range newEvents {
				lastID = ev.ID
				if rackItem != "" && ev.RackItemNumber != rackItem {
					continue
				}
				if eventType != "" && ev.EventType != eventType {
					continue
				}
				printHistoryEvent(out, ev)
			}
		}
	}
}

// printHistoryEvent writes one ledger event as a single line.
func printHistoryEvent(out io.Writer, ev models.HistoryEvent) {
	trans := ev.StatusAfter
	if ev.StatusBefore != "" && ev.StatusBefore != ev.StatusAfter {
		trans = ev.StatusBefore + " → " + ev.StatusAfter
	}
	fmt.Fprintf(out, "[%s] %-12s %-19s %-15s %s\n",
		ev.CreatedAt.Format("2006-01-02 15:04:05"),
		ev.RackItemNumber, ev.EventType, trans, truncate(ev.Summary, 80))
}
