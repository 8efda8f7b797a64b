package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/bomsync/internal/config"
	"github.com/zulandar/bomsync/internal/db"
)

func newDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Tracking database management",
	}

	cmd.AddCommand(newDBInitCmd())
	cmd.AddCommand(newDBResetCmd())
	return cmd
}

func newDBInitCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the tracking database",
		Long:  "Creates the tracking database and migrates the rack and history tables. sqlite databases are created in place; mysql databases are created through the admin connection first.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBInit(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bomsync.yaml", "path to bomsync config file")
	return cmd
}

func runDBInit(cmd *cobra.Command, configPath string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg.Database.Driver == "mysql" {
		adminDB, err := db.ConnectAdmin(cfg.Database)
		if err != nil {
			return err
		}
		if err := db.CreateDatabase(adminDB, cfg.Database.Name); err != nil {
			return err
		}
		fmt.Fprintf(out, "Database %s ready on %s:%d\n", cfg.Database.Name, cfg.Database.Host, cfg.Database.Port)
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if cfg.Database.Driver == "sqlite" {
		fmt.Fprintf(out, "Opened sqlite database %s\n", cfg.Database.Path)
	}

	if err := db.AutoMigrate(gormDB); err != nil {
		return err
	}
	fmt.Fprintf(out, "Migrated %d tables\n", len(db.AllModels()))

	fmt.Fprintln(out, "\nTracking database initialized. Run `bomsync scan` to register rack worksheets.")
	return nil
}

func newDBResetCmd() *cobra.Command {
	var (
		configPath string
		yes        bool
	)

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Drop and re-create the tracking tables",
		Long: `Drops the rack and history tables and re-creates them empty. All rack
statuses and the full history ledger are lost; the workbook is never touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDBReset(cmd, configPath, yes)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bomsync.yaml", "path to bomsync config file")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation prompt")
	return cmd
}

func runDBReset(cmd *cobra.Command, configPath string, skipConfirm bool) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	name := cfg.Database.Path
	if cfg.Database.Driver == "mysql" {
		name = cfg.Database.Name
	}

	if !skipConfirm && !confirmReset(cmd, name) {
		fmt.Fprintln(out, "Aborted.")
		return nil
	}

	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := db.Reset(gormDB); err != nil {
		return err
	}

	fmt.Fprintf(out, "Dropped and re-created %d tables\n", len(db.AllModels()))
	fmt.Fprintln(out, "Tracking state cleared. Run `bomsync scan` to re-register rack worksheets.")
	return nil
}

func confirmReset(cmd *cobra.Command, name string) bool {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "WARNING: This permanently deletes all tracking state in %q.\n", name)
	fmt.Fprintln(out, "Rack statuses and the full history ledger will be lost. The workbook is not touched.")
	fmt.Fprintln(out)
	fmt.Fprint(out, "Type \"yes\" to confirm: ")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if scanner.Scan() {
		return strings.TrimSpace(scanner.Text()) == "yes"
	}
	return false
}
