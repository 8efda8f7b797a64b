package main

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zulandar/bomsync/internal/reconcile"
)

func newPushCmd() *cobra.Command {
	var (
		configPath string
		force      bool
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "push <rack>",
		Short: "Push the local BOM to Arena",
		Long: `Uploads the rack's local BOM to Arena, replacing the remote BOM wholesale.
Lines placed on the overview grid carry the formatted position attribute;
a quantity that disagrees with the implied position count blocks the push
under the enforce policy. Only local_modified racks push without --force.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPush(cmd, configPath, args[0], force, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bomsync.yaml", "path to bomsync config file")
	cmd.Flags().BoolVar(&force, "force", false, "push even when the rack is not local_modified")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func runPush(cmd *cobra.Command, configPath, itemNumber string, force, yes bool) error {
	cfg, gormDB, err := connectFromConfig(configPath)
	if err != nil {
		return err
	}
	eng, store, err := openArenaEngine(cfg, gormDB)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := reconcile.PushOpts{Force: force}
	if !yes {
		in := bufio.NewScanner(cmd.InOrStdin())
		opts.Confirm = func(item string) bool {
			return promptYesNo(cmd.OutOrStdout(), in, fmt.Sprintf("Replace the Arena BOM for %s with the local worksheet?", item))
		}
	}

	res, err := eng.Push(cmd.Context(), itemNumber, opts)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s (status: %s)\n", res.Message, res.Status)
	return nil
}
