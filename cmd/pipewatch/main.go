package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"pipewatch/config"
	"pipewatch/history"
	"pipewatch/logger"
	"pipewatch/runner"
	"pipewatch/session"
	"pipewatch/tui"
)

func main() {
	debug := flag.Bool("debug", false, "enable debug logging")
	shell := flag.String("shell", "", "command interpreter override (default: sh -c, cmd /C on Windows)")
	settingsPath := flag.String("settings", "", "settings file path (default: config dir settings.yaml)")
	noAltScreen := flag.Bool("no-alt-screen", false, "render inline instead of on the alternate screen")
	flag.Parse()

	if err := run(*debug, *shell, *settingsPath, !*noAltScreen); err != nil {
		fmt.Fprintf(os.Stderr, "pipewatch: %v\n", err)
		os.Exit(1)
	}
}

func run(debug bool, shellOverride, settingsPath string, altScreen bool) error {
	logPath, err := logger.DefaultLogPath()
	if err != nil {
		return fmt.Errorf("resolve log path: %w", err)
	}
	if err := logger.Init(logPath); err != nil {
		return err
	}
	defer logger.Close()
	logger.SetDebug(debug)

	var cfg *config.Config
	if settingsPath != "" {
		cfg, err = config.LoadFile(settingsPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	shell := cfg.Shell
	if shellOverride != "" {
		shell = shellOverride
	}

	store := history.Load(cfg.HistoryLimit)

	worker := runner.NewWorker(runner.Options{
		Shell:        shell,
		TickInterval: cfg.TickInterval.Std(),
	})
	worker.Start()
	defer worker.Stop()

	sess := session.New(cfg.QuietPeriod.Std(), cfg.WindowLines)
	model := tui.New(worker, sess, store, cfg.PollInterval.Std())

	var opts []tea.ProgramOption
	if altScreen {
		opts = append(opts, tea.WithAltScreen())
	}

	log := logger.WithComponent("main")
	log.Info("starting", "shell", shell, "historyEntries", store.Len())

	if _, err := tea.NewProgram(model, opts...).Run(); err != nil {
		return fmt.Errorf("run ui: %w", err)
	}
	return nil
}
