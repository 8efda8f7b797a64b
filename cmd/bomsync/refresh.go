package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/bomsync/internal/bom"
	"github.com/zulandar/bomsync/internal/reconcile"
)

func newRefreshCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
		apply      bool
		decline    bool
	)

	cmd := &cobra.Command{
		Use:   "refresh <rack>",
		Short: "Fetch the Arena BOM and reconcile it with the worksheet",
		Long: `Fetches the rack's BOM from Arena, diffs it against the worksheet, and
asks before applying the changes. Placeholder racks are seeded from Arena
without an approval step. Declined changes flag the rack arena_modified
for later review.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefresh(cmd, configPath, args[0], yes, apply, decline)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bomsync.yaml", "path to bomsync config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the pre-flight confirmation prompt")
	cmd.Flags().BoolVar(&apply, "apply", false, "apply fetched changes without asking")
	cmd.Flags().BoolVar(&decline, "decline", false, "never apply; only flag remote changes")
	return cmd
}

func runRefresh(cmd *cobra.Command, configPath, itemNumber string, yes, apply, decline bool) error {
	if apply && decline {
		return fmt.Errorf("--apply and --decline are mutually exclusive")
	}

	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	eng, store, err := openArenaEngine(cfg, gormDB)
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())

	opts := reconcile.RefreshOpts{}
	if !yes {
		opts.Confirm = func(item string) bool {
			return promptYesNo(out, in, fmt.Sprintf("Fetch the Arena BOM for %s?", item))
		}
	}
	switch {
	case apply:
		opts.Approve = func(context.Context, string, bom.Delta) bool { return true }
	case decline:
		// Nil Approve declines; the rack is flagged arena_modified.
	default:
		opts.Approve = func(_ context.Context, item string, delta bom.Delta) bool {
			fmt.Fprintf(out, "\nArena changes for %s:\n", item)
			renderDelta(out, delta)
			return promptYesNo(out, in, fmt.Sprintf("Apply %s to the worksheet?", delta.Summary()))
		}
	}

	res, err := eng.Refresh(cmd.Context(), itemNumber, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s (status: %s)\n", res.Message, res.Status)
	return nil
}

// promptYesNo asks a [y/N] question. Anything but an explicit yes declines.
// Prompts within one run share the scanner so its read-ahead is not lost
// between questions.
func promptYesNo(out io.Writer, in *bufio.Scanner, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)

	if !in.Scan() {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(in.Text())) {
	case "y", "yes":
		return true
	}
	return false
}
