package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/envyaml"
	"github.com/eugenenazirov/envyaml/internal/application"
	"github.com/eugenenazirov/envyaml/internal/config"
	"github.com/eugenenazirov/envyaml/internal/logging"
	"github.com/eugenenazirov/envyaml/internal/storage"
)

var signalNotify = signal.Notify

type cli struct {
	app *kingpin.Application
	out io.Writer

	file        *string
	envFile     *string
	environment *bool
	strict      *bool
	set         *map[string]string
	separator   *string
	logLevel    *string

	get        *kingpin.CmdClause
	getKey     *string
	getDefault *string

	keys *kingpin.CmdClause

	export       *kingpin.CmdClause
	exportFormat *string
	exportFlat   *bool

	format     *kingpin.CmdClause
	formatKey  *string
	formatArgs *[]string

	serve       *kingpin.CmdClause
	serveConfig *string
	servePort   *string
	serveCORS   *string
	serveRPS    *float64
	serveBurst  *int
}

func newCLI(out io.Writer) *cli {
	c := &cli{
		app: kingpin.New("envyaml", "Loads YAML configuration with environment variable substitution"),
		out: out,
	}
	c.app.UsageWriter(out)

	c.file = c.app.Flag("file", "YAML configuration file (default $ENV_YAML_FILE or env.yaml)").Short('f').String()
	c.envFile = c.app.Flag("env-file", "Dotenv file (default $ENV_FILE or .env)").String()
	c.environment = c.app.Flag("environment", "Include process environment variables").Default("true").Bool()
	c.strict = c.app.Flag("strict", "Fail on undefined variables and repeated dotenv names").Default("true").Bool()
	c.set = c.app.Flag("set", "Override a variable (KEY=VALUE, repeatable)").StringMap()
	c.separator = c.app.Flag("separator", "Separator joining nested keys").Default(".").String()
	c.logLevel = c.app.Flag("log-level", "Log level (debug, info, warn, error)").Default("info").String()

	c.get = c.app.Command("get", "Print the value stored at KEY")
	c.getKey = c.get.Arg("key", "Flattened key").Required().String()
	c.getDefault = c.get.Flag("default", "Value printed when KEY is absent").String()

	c.keys = c.app.Command("keys", "Print every key")

	c.export = c.app.Command("export", "Print the whole configuration")
	c.exportFormat = c.export.Flag("format", "Output format").Default(formatJSON).Enum(formatJSON, formatYAML, formatDotenv)
	c.exportFlat = c.export.Flag("flat", "Export flattened keys instead of the nested document").Bool()

	c.format = c.app.Command("format", "Fill the {name} placeholders of the string at KEY")
	c.formatKey = c.format.Arg("key", "Flattened key").Required().String()
	c.formatArgs = c.format.Arg("args", "Placeholder values (NAME=VALUE)").Strings()

	c.serve = c.app.Command("serve", "Serve the configuration over HTTP")
	c.serveConfig = c.serve.Flag("config", "Path to YAML server settings file").String()
	c.servePort = c.serve.Flag("port", "HTTP port exposed by the service").String()
	c.serveCORS = c.serve.Flag("cors-origin", "Origin allowed to read the API from a browser (disabled when empty)").String()
	c.serveRPS = c.serve.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	c.serveBurst = c.serve.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	return c
}

func main() {
	c := newCLI(os.Stdout)
	c.app.FatalIfError(c.run(os.Args[1:]), "")
}

func (c *cli) run(args []string) error {
	command, err := c.app.Parse(args)
	if err != nil {
		return err
	}

	logger, err := logging.New(*c.logLevel)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	if command == c.serve.FullCommand() {
		return c.runServe(logger)
	}

	cfg, err := envyaml.Load(c.loadOptions(logger)...)
	if err != nil {
		return err
	}

	switch command {
	case c.get.FullCommand():
		return c.runGet(cfg)
	case c.keys.FullCommand():
		for _, key := range cfg.Keys() {
			fmt.Fprintln(c.out, key)
		}
		return nil
	case c.export.FullCommand():
		return writeExport(c.out, cfg, *c.exportFormat, *c.exportFlat)
	case c.format.FullCommand():
		return c.runFormat(cfg)
	}
	return fmt.Errorf("unknown command %q", command)
}

func (c *cli) loadOptions(logger *zap.Logger) []envyaml.Option {
	opts := []envyaml.Option{
		envyaml.WithYAMLFile(*c.file),
		envyaml.WithEnvFile(*c.envFile),
		envyaml.WithStrict(*c.strict),
		envyaml.WithOverrides(*c.set),
		envyaml.WithSeparator(*c.separator),
		envyaml.WithLogger(logger),
	}
	if !*c.environment {
		opts = append(opts, envyaml.WithoutEnvironment())
	}
	return opts
}

// serveOptions never publishes process environment variables over HTTP.
// They still feed substitution.
func (c *cli) serveOptions(logger *zap.Logger) []envyaml.Option {
	return append(c.loadOptions(logger), envyaml.WithoutEnvironmentKeys())
}

func (c *cli) runGet(cfg *envyaml.Config) error {
	value, err := cfg.Lookup(*c.getKey)
	if err != nil {
		if *c.getDefault == "" {
			return err
		}
		value = *c.getDefault
	}
	return writeValue(c.out, value)
}

func (c *cli) runFormat(cfg *envyaml.Config) error {
	args := make(map[string]any, len(*c.formatArgs))
	for _, pair := range *c.formatArgs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return fmt.Errorf("invalid argument %q, expected NAME=VALUE", pair)
		}
		args[name] = value
	}

	out, err := cfg.Format(*c.formatKey, args)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, out)
	return nil
}

func (c *cli) runServe(logger *zap.Logger) error {
	overrides := &config.CLIOverrides{
		ConfigFile: *c.serveConfig,
	}
	if *c.servePort != "" {
		overrides.Port = c.servePort
	}
	if *c.serveCORS != "" {
		overrides.CORSOrigin = c.serveCORS
	}
	if *c.serveRPS >= 0 {
		overrides.RateLimitRPS = c.serveRPS
	}
	if *c.serveBurst >= 0 {
		overrides.RateLimitBurst = c.serveBurst
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		return fmt.Errorf("load server settings: %w", err)
	}

	opts := c.serveOptions(logger)
	store, err := storage.NewMemoryStorage(func() (*envyaml.Config, error) {
		return envyaml.Load(opts...)
	})
	if err != nil {
		return err
	}

	app, err := application.New(cfg, store, logger)
	if err != nil {
		return fmt.Errorf("initialize application: %w", err)
	}
	if err := app.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
	return nil
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
