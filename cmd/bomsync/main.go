package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/zulandar/bomsync/internal/arena"
	"github.com/zulandar/bomsync/internal/config"
	"github.com/zulandar/bomsync/internal/db"
	"github.com/zulandar/bomsync/internal/reconcile"
	"github.com/zulandar/bomsync/internal/workbook"
	"gorm.io/gorm"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bomsync",
		Short: "bomsync — rack BOM reconciliation",
		Long:  "bomsync keeps hardware-rack BOM worksheets reconciled with the Arena PLM system of record.",
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newDBCmd())
	cmd.AddCommand(newScanCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newRefreshCmd())
	cmd.AddCommand(newPushCmd())
	cmd.AddCommand(newEditCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newPositionsCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newWatchCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "bomsync %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}

// connectFromConfig loads config and connects the tracking database.
func connectFromConfig(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// openWorkbookEngine assembles the engine over the workbook without an Arena
// client, for operations that never leave the machine (scan, edit).
func openWorkbookEngine(cfg *config.Config, gormDB *gorm.DB) (*reconcile.Engine, *workbook.Workbook, error) {
	store, err := workbook.Open(cfg.Workbook)
	if err != nil {
		return nil, nil, err
	}
	return reconcile.New(gormDB, store, nil, cfg), store, nil
}

// openArenaEngine assembles the full engine: workbook store plus the Arena
// client authenticated with the saved token.
func openArenaEngine(cfg *config.Config, gormDB *gorm.DB) (*reconcile.Engine, *workbook.Workbook, error) {
	store, err := workbook.Open(cfg.Workbook)
	if err != nil {
		return nil, nil, err
	}
	token, err := arena.LoadToken(cfg.Arena.TokenFile)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	client := arena.NewClient(cfg.Arena.BaseURL, token, time.Duration(cfg.Arena.TimeoutSeconds)*time.Second)
	return reconcile.New(gormDB, store, client, cfg), store, nil
}
