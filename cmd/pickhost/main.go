// pickhost is a command line host for the Pick BASIC language server. It
// launches python3 -m pickbasic_lsp over stdio, keeps a workspace in sync,
// and surfaces diagnostics.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pickbasic-lsp/pickhost"
)

var rootCmd = &cobra.Command{
	Use:   "pickhost",
	Short: "Client host for the Pick BASIC language server",
	Long: `pickhost connects a workspace to the Pick BASIC language server
(python3 -m pickbasic_lsp), synchronizes documents, forwards file events,
and reports diagnostics.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the pickhost version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "pickhost "+pickhost.Version)
	},
}

func init() {
	rootCmd.AddCommand(runCmd, checkCmd, versionCmd)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "pickhost:", err)
		os.Exit(1)
	}
}
