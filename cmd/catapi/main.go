package main

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ajitpratap0/nebula-catapi/pkg/config"
	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/connector/registry"
	"github.com/ajitpratap0/nebula-catapi/pkg/logger"
	"github.com/ajitpratap0/nebula-catapi/pkg/observability"

	// Register the Cat API source
	_ "github.com/ajitpratap0/nebula-catapi/pkg/connector/sources/catapi"
)

var version = "1.0.0"

// globalFlags are shared by every subcommand
type globalFlags struct {
	configFile string
	envFile    string
	logLevel   string
	logFormat  string
	tracing    bool
	timeout    time.Duration
}

// app carries what subcommands need once the configuration is loaded
type app struct {
	flags    globalFlags
	loader   *config.Loader
	cfg      *config.BaseConfig
	log      *zap.Logger
	shutdown func(context.Context) error
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{loader: config.NewLoader()}

	root := &cobra.Command{
		Use:   "catapi",
		Short: "Read The Cat API as tables",
		Long: `catapi exposes The Cat API images, breeds, categories, votes and favourites
as tables with static schemas and page offsets.

Configuration comes from an optional YAML/JSON file, CATAPI_* environment
variables (a .env file is loaded first) and flags, in increasing priority.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.configFile, "config", "c", "", "Path to configuration file (yaml or json)")
	pf.StringVar(&a.flags.envFile, "env-file", ".env", "Dotenv file loaded before reading the environment")
	pf.String("api-key", "", "Cat API key (overrides CATAPI_API_KEY)")
	pf.String("base-url", "", "API base URL (default https://api.thecatapi.com/v1)")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	pf.StringVar(&a.flags.logFormat, "log-format", "json", "Log encoding (json or console)")
	pf.BoolVar(&a.flags.tracing, "tracing", false, "Export OpenTelemetry spans to stderr")
	pf.DurationVar(&a.flags.timeout, "timeout", 0, "Per-request timeout (default from config, 30s)")

	v := a.loader.Viper()
	_ = v.BindPFlag("api_key", pf.Lookup("api-key"))
	_ = v.BindPFlag("base_url", pf.Lookup("base-url"))

	root.AddCommand(
		newVersionCmd(),
		newTablesCmd(a),
		newSchemaCmd(a),
		newMetadataCmd(a),
		newHealthCmd(a),
		newReadCmd(a),
		newSyncCmd(a),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "catapi v%s\n", version)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// setup loads .env and configuration, then initializes logging and tracing
func (a *app) setup() error {
	if a.flags.envFile != "" {
		if err := godotenv.Load(a.flags.envFile); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to load %s: %w", a.flags.envFile, err)
		}
	}

	srcCfg, err := a.loader.Load(a.flags.configFile)
	if err != nil {
		return err
	}
	a.cfg = srcCfg.ToBaseConfig()
	if a.flags.timeout > 0 {
		a.cfg.Timeouts.Request = a.flags.timeout
	}
	if a.flags.logLevel != "" {
		a.cfg.Observability.LogLevel = a.flags.logLevel
	}
	if a.flags.tracing {
		a.cfg.Observability.EnableTracing = true
	}

	if err := logger.Init(logger.Config{
		Level:    a.cfg.Observability.LogLevel,
		Encoding: a.flags.logFormat,
	}); err != nil {
		return err
	}
	a.log = logger.With(zap.String("component", "catapi-cli"))

	if a.cfg.Observability.EnableTracing {
		tc := observability.DefaultTracingConfig()
		tc.ServiceVersion = version
		tc.Writer = os.Stderr
		shutdown, err := observability.Initialize(tc)
		if err != nil {
			return fmt.Errorf("failed to initialize tracing: %w", err)
		}
		a.shutdown = shutdown
	}
	return nil
}

func (a *app) teardown() error {
	if a.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdown(ctx); err != nil {
			a.log.Warn("failed to flush traces", zap.Error(err))
		}
	}
	_ = logger.Sync()
	return nil
}

// source creates the configured source through the registry
func (a *app) source() (core.TableSource, error) {
	src, err := registry.CreateSource(a.cfg.Type, a.cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create source connector '%s': %w", a.cfg.Type, err)
	}
	return src, nil
}

// catalog returns the registered connector description
func (a *app) catalog() (*registry.ConnectorInfo, error) {
	return registry.GetConnectorInfo(a.cfg.Type)
}
