// jarvis - chat with a local Ollama model from the terminal.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jeranaias/jarvis/internal/chat"
	"github.com/jeranaias/jarvis/internal/cli"
	"github.com/jeranaias/jarvis/internal/commands"
	"github.com/jeranaias/jarvis/internal/config"
	"github.com/jeranaias/jarvis/internal/inference"
	"github.com/jeranaias/jarvis/internal/model"
	"github.com/jeranaias/jarvis/internal/ollama"
	"github.com/jeranaias/jarvis/internal/render"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

func init() {
	cli.Version = Version
	cli.GitCommit = GitCommit
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "jarvis: %v\n", err)
		os.Exit(1)
	}
}

func run(rawArgs []string) error {
	args, err := cli.ParseArgs(rawArgs)
	if err != nil {
		fmt.Fprint(os.Stderr, cli.Usage)
		return err
	}
	if args.Help {
		fmt.Print(cli.Usage)
		return nil
	}
	if args.Version {
		fmt.Printf("jarvis %s (%s)\n", cli.Version, cli.GitCommit)
		return nil
	}

	// Configuration: defaults < config file < .env / environment < flags
	if err := config.LoadDotEnv(""); err != nil {
		return err
	}
	configPath := args.ConfigPath
	if configPath == "" {
		if configPath, err = config.DefaultPath(); err != nil {
			return err
		}
	}
	fileCfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg := fileCfg.Clone()
	if args.Host != "" {
		cfg.Host = args.Host
	}
	if args.Model != "" {
		cfg.Model = args.Model
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}

	// Logging goes to stderr so it never mixes with replies.
	level := &slog.LevelVar{}
	level.Set(parseLevel(cfg.LogLevel, args.Verbose))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	logger.Debug("config loaded", "path", configPath, "host", cfg.Host, "model", cfg.Model)

	if args.NoColor {
		cli.ForceColorsEnabled(false)
	}
	cli.ConfigureColors()

	cc, err := cli.LoadCodeContext(args.Project, args.Context, args.Lines)
	if err != nil {
		return err
	}

	// Engine
	store := inference.NewStore(cfg.Session())
	pool := cli.NewClientPool(ollama.ClientConfig{
		ConnectTimeout: cfg.ConnectTimeout.Duration,
		StreamTimeout:  cfg.StreamTimeout.Duration,
		Logger:         logger,
	})
	defer pool.CancelAll()

	orchestrator := chat.NewOrchestrator(chat.Config{
		Store:           store,
		Servers:         func(host string) chat.ModelServer { return pool.Client(host) },
		PollInterval:    cfg.DownloadPollInterval.Duration,
		DownloadTimeout: cfg.DownloadTimeout.Duration,
		Logger:          logger,
	})

	conv := model.NewConversation()
	defer conv.Close()

	// Output
	interactiveInput := args.Message == "" && cli.IsTTY()
	term := render.NewTerminal(os.Stdout, render.Options{
		Width:    cli.GetTerminalWidth(),
		WordWrap: cfg.Render.WordWrap,
		Color:    cli.ColorsEnabled(),
		Live:     cli.IsStdoutTTY(),
	})
	// Piped input is not echoed by a terminal, so print it with the replies.
	echoUser := args.Message == "" && !interactiveInput
	buf := render.NewStreamingBufferWithConfig(cfg.Render.BatchSize, cfg.Render.MaxFPS)
	view := render.NewView(term, buf, echoUser)
	conv.Subscribe(view.Handle)

	router := commands.NewRouter(commands.RouterConfig{
		Conversation: conv,
		Store:        store,
		Generator:    orchestrator,
		Servers:      func(host string) commands.ModelServer { return pool.Client(host) },
		Clipboard:    cli.SystemClipboard{},
		OnResult: func(res chat.Result) {
			if res.Stats != nil {
				term.PrintStatus(res.Stats.Format())
			}
		},
		Logger: logger,
	})

	// Input
	var input cli.LineReader
	if interactiveInput {
		completer := commands.NewCompleter(modelLister(store, pool))
		lineInput := cli.NewLineInput(historyPath(), completer.LineCompleter())
		defer lineInput.Close()
		input = lineInput
	} else {
		input = cli.NewScannerInput(os.Stdin)
	}

	repl := cli.NewREPL(cli.REPLConfig{
		Router:      router,
		Input:       input,
		Terminal:    term,
		View:        view,
		Store:       store,
		CodeContext: cc,
		Logger:      logger,
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return view.Run(gctx)
	})

	if args.Message == "" {
		watcher := config.NewWatcher(configPath,
			func(next *config.Config) {
				applyConfigChange(store, level, fileCfg, next, args, term, logger)
				fileCfg = next
			},
			func(err error) {
				logger.Warn("config reload failed", "path", configPath, "error", err)
			})
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil {
				logger.Debug("config watcher not running", "error", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		defer stop()
		if args.Message != "" {
			repl.Send(gctx, args.Message)
			return nil
		}
		return repl.Run(gctx)
	})

	return g.Wait()
}

// applyConfigChange pushes a reloaded config into the running session.
// Values given on the command line keep precedence.
func applyConfigChange(store *inference.Store, level *slog.LevelVar, prev, next *config.Config, args cli.Args, term *render.Terminal, logger *slog.Logger) {
	if !args.Verbose && next.LogLevel != prev.LogLevel {
		level.Set(parseLevel(next.LogLevel, false))
	}
	if args.Host == "" && next.Host != prev.Host {
		sess := store.SetHost(next.Host)
		term.PrintStatus("Config reloaded: host changed to " + sess.Host())
	}
	if args.Model == "" && next.Model != prev.Model {
		sess := store.SetModel(next.Model)
		term.PrintStatus("Config reloaded: model changed to " + sess.Model())
	}
	logger.Info("config reloaded")
}

func parseLevel(name string, verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return slog.LevelWarn
	}
	return level
}

func historyPath() string {
	dir, err := config.ConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "history")
}

// modelLister returns the models installed on the current host for tab
// completion. The list is fetched once per host.
func modelLister(store *inference.Store, pool *cli.ClientPool) func() []string {
	var mu sync.Mutex
	cache := make(map[string][]string)

	return func() []string {
		host := store.Current().Host()

		mu.Lock()
		defer mu.Unlock()
		if names, ok := cache[host]; ok {
			return names
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		models, err := pool.Client(host).ListModels(ctx)
		if err != nil {
			return nil
		}
		names := make([]string, 0, len(models))
		for _, m := range models {
			names = append(names, m.Name)
		}
		cache[host] = names
		return names
	}
}
