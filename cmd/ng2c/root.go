package main

import (
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	compiler "ng2c-go/packages/compiler/src"
	"ng2c-go/packages/compiler/src/config"
	"ng2c-go/packages/compiler/src/core"
	"ng2c-go/packages/compiler/src/logging"
	"ng2c-go/packages/compiler/src/metrics"
)

// app is the state shared by the subcommands, set up once the config is
// loaded.
type app struct {
	configPath string
	file       *config.File
	logger     logging.Logger
	compiler   *compiler.Compiler
	registry   *prometheus.Registry
	out        io.Writer
}

func newApp(out io.Writer) *app {
	return &app{out: out, registry: prometheus.NewRegistry()}
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	return newApp(out).command(errOut)
}

func (a *app) command(errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ng2c",
		Short: "Angular template compiler and change detection runner",
		Long: `ng2c parses Angular templates, resolves them against the directives and
pipes declared in component manifests (*.component.yaml) and runs change
detection over the result.

Configuration is read from .ng2c.yml, NG2C_* environment variables and
the command line flags, in increasing order of precedence.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd, errOut)
		},
	}
	rootCmd.SetOut(a.out)
	rootCmd.SetErr(errOut)

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "config file (default is "+config.DefaultFileName+")")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.Bool("dev", false, "dev mode: debug info, binding update logging and checkNoChanges")

	rootCmd.AddCommand(
		newParseCmd(a),
		newCompileCmd(a),
		newDetectCmd(a),
		newWatchCmd(a),
		newVersionCmd(a),
	)
	return rootCmd
}

func (a *app) setup(cmd *cobra.Command, errOut io.Writer) error {
	file, err := config.Load(a.configPath, cmd.Flags())
	if err != nil {
		return err
	}
	level, err := logging.ParseLevel(file.Log.Level)
	if err != nil {
		return err
	}
	a.file = file
	a.logger = logging.NewLogger(&logging.LoggerConfig{
		Level:     level,
		Format:    file.Log.Format,
		Output:    errOut,
		Component: "ng2c",
	})
	collector := metrics.NewCollector(metrics.WithRegistry(a.registry))
	a.compiler = compiler.NewCompiler(file.CompilerConfig(),
		compiler.WithLogger(a.logger),
		compiler.WithMetrics(collector),
	)
	return nil
}

// metricsHandler serves the compiler and detection metrics recorded by
// this process in the Prometheus text format.
func (a *app) metricsHandler() http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	return r
}

func (a *app) printYAML(v any) error {
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return enc.Close()
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the Angular version ng2c implements",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(a.out, "ng2c %s\n", core.VERSION.Full)
		},
	}
}
