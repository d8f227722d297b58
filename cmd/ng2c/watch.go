package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	compiler "ng2c-go/packages/compiler/src"
	"ng2c-go/packages/compiler/src/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Recompile components when their manifests or templates change",
		Long: `Compile every manifest under the configured scan paths, then watch
those paths and recompile whenever a manifest or an .html template
changes. Changes are batched over watch.debounce.

With --metrics-addr the compile and detection metrics are served at
/metrics on that address while watching.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if metricsAddr != "" {
				shutdown := a.serveMetrics(ctx, metricsAddr)
				defer shutdown()
			}
			return a.watch(ctx)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	return cmd
}

func (a *app) watch(ctx context.Context) error {
	fw, err := watcher.NewFileWatcher(a.file.Watch.Debounce, a.logger)
	if err != nil {
		return err
	}
	defer fw.Close()
	fw.AddFilter(watcher.ExtensionFilter(slices.Concat(compiler.ManifestSuffixes, []string{".html"})...))
	for _, root := range a.file.Components.ScanPaths {
		if err := fw.AddRecursive(root, a.file.Components.ExcludePatterns); err != nil {
			return err
		}
	}

	rebuild := func() {
		manifests, err := a.manifests(nil)
		if err != nil {
			a.logger.Warn(ctx, err, "nothing to compile")
			return
		}
		if err := a.compileAll(ctx, manifests, false); err != nil {
			a.logger.Warn(ctx, err, "compilation failed")
		}
	}

	rebuild()
	a.logger.Info(ctx, "watching for changes", "paths", a.file.Components.ScanPaths)
	return fw.Run(ctx, func(paths []string) {
		a.logger.Info(ctx, "recompiling", "changed", paths)
		rebuild()
	})
}

// serveMetrics starts the metrics server in the background and returns a
// function that shuts it down.
func (a *app) serveMetrics(ctx context.Context, addr string) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           a.metricsHandler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(ctx, err, "metrics server failed", "addr", addr)
		}
	}()
	a.logger.Info(ctx, "serving metrics", "addr", addr)
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn(ctx, err, "failed to stop metrics server")
		}
	}
}
