// tlbridge drives the bridge from the command line: it issues static
// functions, round-trips pings through a client execution context and can
// follow a configuration file, applying verbosity changes as it is edited.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/najoast/tlbridge/bridge"
	"github.com/najoast/tlbridge/client"
	"github.com/najoast/tlbridge/config"
	"github.com/najoast/tlbridge/core"
	"github.com/najoast/tlbridge/logging"
	"github.com/najoast/tlbridge/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// app is the wiring shared by every command.
type app struct {
	cfg        *config.Config
	configFile string
	logger     *zap.Logger
	level      zap.AtomicLevel
	worker     *worker.Local
	bridge     *bridge.Bridge
	out        io.Writer
}

func run(ctx context.Context, args []string, out io.Writer) error {
	var configFile string
	var verbosity int32

	flagSet := pflag.NewFlagSet("tlbridge", pflag.ContinueOnError)
	flagSet.SetInterspersed(false)
	flagSet.StringVarP(&configFile, "config", "c", "", "configuration file (default: search tlbridge.yaml)")
	flagSet.Int32VarP(&verbosity, "verbosity", "v", -1, "worker verbosity 0..4, overrides the configuration")
	flagSet.Usage = func() { printHelp(flagSet) }

	if err := flagSet.Parse(args); err != nil {
		return err
	}
	rest := flagSet.Args()
	if len(rest) == 0 {
		printHelp(flagSet)
		return pflag.ErrHelp
	}

	a, err := newApp(configFile, verbosity, out)
	if err != nil {
		return err
	}
	defer a.close()

	cmd, ok := commands[rest[0]]
	if !ok {
		return fmt.Errorf("unknown command %q", rest[0])
	}
	return cmd.run(ctx, a, rest[1:])
}

func newApp(configFile string, verbosity int32, out io.Writer) (*app, error) {
	loader := config.NewLoader()
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = loader.LoadFromFile(configFile)
	} else {
		cfg, err = loader.AutoLoad()
	}
	if err != nil {
		return nil, err
	}
	if verbosity >= 0 {
		cfg.Worker.Verbosity = verbosity
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Log.Format == config.LogFormatAuto {
		cfg.Log.Format = config.LogFormatJSON
		if cfg.Log.Output == "stderr" && term.IsTerminal(int(os.Stderr.Fd())) {
			cfg.Log.Format = config.LogFormatConsole
		}
	}

	logger, level, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	if verbosity >= 0 {
		level.SetLevel(logging.LevelForVerbosity(verbosity))
	}
	logger = logger.Named(cfg.App.Name)
	core.SetLogger(logger.Named("core"))

	w := worker.NewLocal(cfg.Worker,
		worker.WithLogger(logger.Named("worker")),
		worker.WithLevel(level))

	b := bridge.New(w,
		bridge.WithLogger(logger),
		bridge.WithClientOptions(client.WithMailboxSize(cfg.Client.MailboxSize)))

	return &app{
		cfg:        cfg,
		configFile: configFile,
		logger:     logger,
		level:      level,
		worker:     w,
		bridge:     b,
		out:        out,
	}, nil
}

func (a *app) close() {
	if err := a.bridge.Close(); err != nil {
		a.logger.Warn("bridge shutdown", zap.Error(err))
	}
	if n := a.bridge.Outstanding(); n != 0 {
		a.logger.Warn("responses not released at exit", zap.Int("outstanding", n))
	}
	_ = a.logger.Sync()
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `tlbridge exercises the request bridge and its reference worker.

Usage:
  tlbridge [flags] <command> [args]

Commands:
`)
	for _, name := range commandNames() {
		fmt.Fprintf(os.Stderr, "  %-10s %s\n", name, commands[name].summary)
	}
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
