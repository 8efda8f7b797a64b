package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/bomsync/internal/arena"
	"github.com/zulandar/bomsync/internal/config"
	"golang.org/x/term"
)

func newLoginCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the Arena API token",
		Long: `Prompts for an Arena API token and stores it in the configured token file,
readable only by the owner. Run this once before refresh, push, serve or watch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, configPath)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "bomsync.yaml", "path to bomsync config file")
	return cmd
}

func runLogin(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	token, err := readToken(cmd)
	if err != nil {
		return err
	}
	if token == "" {
		return fmt.Errorf("empty token")
	}

	if err := arena.SaveToken(cfg.Arena.TokenFile, token); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Token saved to %s\n", cfg.Arena.TokenFile)
	return nil
}

// readToken prompts for the token. Terminal input is read without echo;
// anything else (pipes, tests) reads one plain line.
func readToken(cmd *cobra.Command) (string, error) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, "Arena API token: ")

	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return "", fmt.Errorf("read token: no input")
	}
	fmt.Fprintln(out)
	return strings.TrimSpace(scanner.Text()), nil
}
