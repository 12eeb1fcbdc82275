package main

import (
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/pickbasic-lsp/pickhost"
	"github.com/pickbasic-lsp/pickhost/config"
	"github.com/pickbasic-lsp/pickhost/protocol"
	"github.com/pickbasic-lsp/pickhost/transport"
)

var (
	runPython string
	runAttach string
)

var runCmd = &cobra.Command{
	Use:   "run [workspace]",
	Short: "Run a language server session for a workspace",
	Long: `Run launches the Pick BASIC language server for the given workspace
(default: current directory) and keeps it alive until interrupted. Settings
changes in .pickhost.toml are applied without restarting.

With --attach the server is not spawned; the session connects to an
already-running one over tcp://host:port, unix:///path, or ws://host/path.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := "."
		if len(args) == 1 {
			root = args[0]
		}
		root, err := filepath.Abs(root)
		if err != nil {
			return err
		}

		cfg, err := config.Load(root)
		if err != nil {
			return err
		}
		if runPython != "" {
			cfg.Server.PythonPath = runPython
		}

		logger := newLogger(cfg.Log.Level)

		// One host per workspace.
		lock := flock.New(filepath.Join(root, ".pickhost.lock"))
		locked, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquiring workspace lock: %w", err)
		}
		if !locked {
			return fmt.Errorf("another pickhost is already running in %s", root)
		}
		defer lock.Unlock()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := []pickhost.Option{
			pickhost.WithConfig(cfg),
			pickhost.WithLogger(logger),
		}
		if runAttach != "" {
			factory, err := transport.ParseAttach(runAttach)
			if err != nil {
				return err
			}
			opts = append(opts, pickhost.WithTransportFactory(factory))
		}

		session, err := pickhost.Activate(ctx, root, opts...)
		if err != nil {
			return err
		}

		if cfg.Log.Level == "debug" {
			if err := session.SetTrace(ctx, protocol.TraceVerbose); err != nil {
				logger.Warn("enabling server trace failed", "error", err)
			}
		}

		reloader, err := config.NewWatcher(config.WorkspacePath(root), func() {
			fresh, err := config.Load(root)
			if err != nil {
				logger.Warn("settings reload failed", "error", err)
				return
			}
			session.Config().Swap(fresh)
			if err := session.NotifyConfigurationChanged(ctx); err != nil {
				logger.Warn("pushing settings to server failed", "error", err)
			}
		}, config.WithWatcherLogger(logger))
		if err != nil {
			logger.Warn("settings watcher unavailable", "error", err)
		} else {
			defer reloader.Close()
		}

		logger.Info("pickhost running", "workspace", root)
		<-ctx.Done()

		return pickhost.Deactivate(cmd.Context())
	},
}

func init() {
	runCmd.Flags().StringVar(&runPython, "python", "", "Python interpreter for the language server (overrides settings)")
	runCmd.Flags().StringVar(&runAttach, "attach", "", "Attach to a running server (tcp://host:port, unix:///path, ws://host/path)")
}
