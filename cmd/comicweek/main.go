package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"comicweek/internal/config"
	"comicweek/internal/infra/logx"
	"comicweek/internal/releases"
	"comicweek/internal/ui"
)

// app carries the global flags and what PersistentPreRunE derives from them.
type app struct {
	cfgPath string
	apiURL  string
	logFile string
	verbose bool

	cfg config.Config
	svc releases.Service
	now func() time.Time

	newService func(config.Config) releases.Service
	closers    []io.Closer
}

func newApp() *app {
	return &app{
		now: time.Now,
		newService: func(c config.Config) releases.Service {
			return releases.New(c.APIURL, releases.WithTimeout(c.Timeout), releases.WithSyncPath(c.SyncPath))
		},
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "comicweek",
		Short: "Browse weekly comic releases",
		Long: `comicweek browses the weekly release schedule served by a comic release service.

Run without arguments to start the interactive browser. A week is named by its
Wednesday and lists the releases on sale from that Wednesday to the Tuesday after.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.teardown()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runTUI()
		},
	}

	root.PersistentFlags().StringVar(&a.cfgPath, "config", "", "config file (default ~/.comicweekrc; .yaml/.yml for YAML)")
	root.PersistentFlags().StringVar(&a.apiURL, "api", "", "release service base URL (overrides API_URL)")
	root.PersistentFlags().StringVar(&a.logFile, "log-file", "", "write JSON logs to this file (overrides LOG_FILE)")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging without truncation")

	root.AddCommand(
		newWeekCmd(a),
		newWeeksCmd(a),
		newSearchCmd(a),
		newShowCmd(a),
		newSyncCmd(a),
		newHealthCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	path := a.cfgPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.apiURL != "" {
		cfg.APIURL = strings.TrimRight(a.apiURL, "/")
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	if a.logFile != "" {
		cfg.LogFile = a.logFile
	}
	a.cfg = cfg

	// the TUI owns the terminal, so it only logs to files
	interactive := cmd.Root() == cmd
	if err := a.setupLogging(interactive); err != nil {
		return err
	}
	a.svc = a.newService(cfg)
	logx.Infow("config loaded", "path", path, "api", cfg.APIURL, "page_size", cfg.PageSize)
	return nil
}

func (a *app) setupLogging(interactive bool) error {
	level := logx.LevelInfo
	if a.cfg.LogLevel != "" {
		l, err := logx.ParseLevel(a.cfg.LogLevel)
		if err != nil {
			return err
		}
		level = l
	}
	if a.verbose {
		level = logx.LevelDebug
		logx.SetVerbose(true)
	}
	logx.SetMinLevel(level)

	var out io.Writer
	switch {
	case a.cfg.LogFile != "":
		f, err := os.OpenFile(a.cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("log file: %w", err)
		}
		a.closers = append(a.closers, f)
		out = f
	case interactive && len(os.Getenv("DEBUG")) > 0:
		// Enable debug logging when DEBUG environment variable is set
		f, err := tea.LogToFile("debug.log", "debug")
		if err != nil {
			return err
		}
		a.closers = append(a.closers, f)
		logx.SetMinLevel(logx.LevelDebug)
		out = f
	case a.verbose && !interactive:
		out = os.Stderr
	default:
		return nil
	}
	logx.SetOutput(out)
	log.SetFlags(0)
	log.SetOutput(logx.StdlogWriter(logx.LevelInfo, out))
	return nil
}

func (a *app) teardown() {
	_ = logx.Sync()
	for _, c := range a.closers {
		_ = c.Close()
	}
	a.closers = nil
}

func (a *app) runTUI() error {
	_, err := tea.NewProgram(ui.New(a.svc, a.cfg), tea.WithAltScreen()).Run()
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd(newApp()).ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
