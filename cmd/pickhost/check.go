package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/pickbasic-lsp/pickhost"
	"github.com/pickbasic-lsp/pickhost/protocol"
	"github.com/pickbasic-lsp/pickhost/transport"
)

var (
	checkTimeout time.Duration
	checkAttach  string

	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	fileStyle = lipgloss.NewStyle().Bold(true)
)

var checkCmd = &cobra.Command{
	Use:   "check FILE...",
	Short: "Check Pick BASIC files and print diagnostics",
	Long: `Check opens each file in a short-lived server session, waits for the
server to publish diagnostics, and prints them. The exit status is non-zero
if any file has an error-severity diagnostic.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(filepath.Dir(args[0]))
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		opts := []pickhost.Option{
			pickhost.WithLogger(newLogger("error")),
			pickhost.WithoutWorkspaceWatcher(),
		}
		if checkAttach != "" {
			factory, err := transport.ParseAttach(checkAttach)
			if err != nil {
				return err
			}
			opts = append(opts, pickhost.WithTransportFactory(factory))
		}

		session, err := pickhost.Activate(ctx, root, opts...)
		if err != nil {
			return err
		}
		defer pickhost.Deactivate(ctx)

		out := cmd.OutOrStdout()
		failed := false
		for _, path := range args {
			abs, err := filepath.Abs(path)
			if err != nil {
				return err
			}
			uri := protocol.URIFromPath(abs)

			// Start waiting before didOpen so a fast publication is not missed.
			waitCtx, cancel := context.WithTimeout(ctx, checkTimeout)
			type waited struct {
				diags []protocol.Diagnostic
				err   error
			}
			ch := make(chan waited, 1)
			go func() {
				diags, err := session.Diagnostics().Wait(waitCtx, uri)
				ch <- waited{diags, err}
			}()

			if err := session.OpenDocument(ctx, abs); err != nil {
				cancel()
				return err
			}

			res := <-ch
			cancel()
			diags, err := res.diags, res.err
			if err != nil {
				fmt.Fprintf(out, "%s: %s\n", fileStyle.Render(path), warnStyle.Render("no response from server"))
				continue
			}

			if len(diags) == 0 {
				fmt.Fprintf(out, "%s: %s\n", fileStyle.Render(path), okStyle.Render("ok"))
			} else {
				fmt.Fprintln(out, fileStyle.Render(path))
				for _, d := range diags {
					fmt.Fprintf(out, "  %s\n", styleFor(d.Severity).Render(pickhost.FormatDiagnostic(d)))
					if d.Severity == protocol.SeverityError {
						failed = true
					}
				}
			}

			_ = session.CloseDocument(ctx, uri)
		}

		if failed {
			return fmt.Errorf("errors found")
		}
		return nil
	},
}

func styleFor(sev protocol.DiagnosticSeverity) lipgloss.Style {
	switch sev {
	case protocol.SeverityError:
		return errStyle
	case protocol.SeverityWarning:
		return warnStyle
	default:
		return infoStyle
	}
}

func init() {
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 10*time.Second, "How long to wait for diagnostics per file")
	checkCmd.Flags().StringVar(&checkAttach, "attach", "", "Attach to a running server (tcp://host:port, unix:///path, ws://host/path)")
}
