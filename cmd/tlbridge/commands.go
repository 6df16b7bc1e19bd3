package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/najoast/tlbridge/config"
	"github.com/najoast/tlbridge/logging"
	"github.com/najoast/tlbridge/tl"
	"github.com/najoast/tlbridge/tonapi"
	"github.com/najoast/tlbridge/tonclient"
)

type command struct {
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = map[string]command{
	"ping":      {"round-trip pings through a client", runPing},
	"verbosity": {"show or set the worker verbosity", runVerbosity},
	"tags":      {"list log tags and their verbosity", runTags},
	"tag":       {"set the verbosity of one log tag", runTag},
	"log":       {"write a message through the worker log", runLog},
	"decode":    {"decode a hex encoded object", runDecode},
	"watch":     {"follow the configuration file and apply changes", runWatch},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func runPing(ctx context.Context, a *app, args []string) error {
	var count int
	var keystore string
	var timeout time.Duration

	flagSet := pflag.NewFlagSet("ping", pflag.ContinueOnError)
	flagSet.IntVarP(&count, "count", "n", 1, "number of pings")
	flagSet.StringVar(&keystore, "keystore", "", "keystore directory (default: in memory)")
	flagSet.DurationVar(&timeout, "timeout", 10*time.Second, "timeout per request")
	if err := flagSet.Parse(args); err != nil {
		return err
	}

	var keystoreType tonapi.KeyStoreType = &tonapi.KeyStoreTypeInMemory{}
	if keystore != "" {
		keystoreType = &tonapi.KeyStoreTypeDirectory{Directory: keystore}
	}

	initCtx, cancel := context.WithTimeout(ctx, timeout)
	c, err := tonclient.New(initCtx, a.bridge, tonclient.Config{
		Verbosity: -1,
		Options: &tonapi.Options{
			Config:       &tonapi.Config{Config: "{}", BlockchainName: "mainnet"},
			KeystoreType: keystoreType,
		},
		Logger: a.logger,
	})
	cancel()
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Fprintf(a.out, "client %s initialized, default wallet id %d\n", c.Handle(), c.Info().DefaultWalletID)
	for i := 0; i < count; i++ {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		start := time.Now()
		pong, err := c.Ping(reqCtx, int64(i))
		cancel()
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "pong id=%d time=%s\n", pong.PingID, time.Since(start).Round(time.Microsecond))
	}
	return nil
}

func runVerbosity(_ context.Context, a *app, args []string) error {
	switch len(args) {
	case 0:
		res, err := tonclient.Execute[*tonapi.LogVerbosityLevel](a.bridge, &tonapi.GetLogVerbosityLevel{})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%d\n", res.VerbosityLevel)
		return nil
	case 1:
		v, err := parseVerbosity(args[0])
		if err != nil {
			return err
		}
		_, err = tonclient.Execute[*tonapi.Ok](a.bridge, &tonapi.SetLogVerbosityLevel{NewVerbosityLevel: v})
		return err
	default:
		return fmt.Errorf("usage: verbosity [level]")
	}
}

func runTags(_ context.Context, a *app, _ []string) error {
	tags, err := tonclient.Execute[*tonapi.LogTags](a.bridge, &tonapi.GetLogTags{})
	if err != nil {
		return err
	}
	for _, tag := range tags.Tags {
		level, err := tonclient.Execute[*tonapi.LogVerbosityLevel](a.bridge, &tonapi.GetLogTagVerbosityLevel{Tag: tag})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "%s\t%d\n", tag, level.VerbosityLevel)
	}
	return nil
}

func runTag(_ context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: tag <name> <level>")
	}
	v, err := parseVerbosity(args[1])
	if err != nil {
		return err
	}
	_, err = tonclient.Execute[*tonapi.Ok](a.bridge, &tonapi.SetLogTagVerbosityLevel{Tag: args[0], NewVerbosityLevel: v})
	return err
}

func runLog(_ context.Context, a *app, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: log <level> <text>")
	}
	v, err := parseVerbosity(args[0])
	if err != nil {
		return err
	}
	_, err = tonclient.Execute[*tonapi.Ok](a.bridge, &tonapi.AddLogMessage{
		VerbosityLevel: v,
		Text:           strings.Join(args[1:], " "),
	})
	return err
}

func runDecode(_ context.Context, a *app, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: decode <hex>")
	}
	data, err := hex.DecodeString(strings.TrimPrefix(args[0], "0x"))
	if err != nil {
		return fmt.Errorf("invalid hex: %w", err)
	}
	id, ok := tl.PeekID(data)
	if !ok {
		return fmt.Errorf("buffer too short for a constructor id")
	}
	c, known := tl.DefaultRegistry.Lookup(id)
	if !known {
		return fmt.Errorf("unknown constructor %#08x", uint32(id))
	}

	var obj tl.Object
	if c.Kind == tl.KindFunction {
		obj, err = tl.DecodeFunction(data)
	} else {
		obj, err = tl.DecodeObject(data)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s %s %+v\n", c.Kind, obj.TypeName(), obj)
	return nil
}

func runWatch(ctx context.Context, a *app, _ []string) error {
	if a.configFile == "" {
		return fmt.Errorf("watch needs --config")
	}
	watcher, err := config.NewWatcher(a.configFile, config.NewLoader(), a.logger)
	if err != nil {
		return err
	}
	watcher.OnConfigChange(func(oldConfig, newConfig *config.Config) {
		a.applyConfig(oldConfig, newConfig)
	})
	if err := watcher.Start(); err != nil {
		return err
	}
	defer watcher.Stop()

	a.logger.Info("watching configuration", zap.String("file", a.configFile))
	<-ctx.Done()
	return nil
}

// applyConfig pushes the settings that can change at runtime.
func (a *app) applyConfig(oldConfig, newConfig *config.Config) {
	if oldConfig.Log.Level != newConfig.Log.Level {
		if level, err := logging.ParseLevel(newConfig.Log.Level); err == nil {
			a.level.SetLevel(level)
		}
	}
	if oldConfig.Worker.Verbosity != newConfig.Worker.Verbosity {
		_, err := tonclient.Execute[*tonapi.Ok](a.bridge, &tonapi.SetLogVerbosityLevel{
			NewVerbosityLevel: newConfig.Worker.Verbosity,
		})
		if err != nil {
			a.logger.Warn("apply verbosity", zap.Error(err))
			return
		}
		a.logger.Info("verbosity changed",
			zap.Int32("from", oldConfig.Worker.Verbosity),
			zap.Int32("to", newConfig.Worker.Verbosity))
	}
}

func parseVerbosity(s string) (int32, error) {
	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid verbosity %q: %w", s, err)
	}
	if v < 0 || v > config.MaxVerbosity {
		return 0, fmt.Errorf("verbosity %d out of range", v)
	}
	return int32(v), nil
}
