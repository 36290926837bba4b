package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/five82/lookout/internal/api"
	"github.com/five82/lookout/internal/config"
	"github.com/five82/lookout/internal/engine"
	"github.com/five82/lookout/internal/logtail"
	"github.com/five82/lookout/internal/prefs"
	"github.com/five82/lookout/internal/state"
	"github.com/five82/lookout/internal/transport"
	"github.com/five82/lookout/internal/ui"
)

// Options configure the lookout application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/lookout/prefs.toml
	Verbose    bool
}

type runtime struct {
	cfg    config.Config
	client *api.Client
	store  *state.Store
	svc    *engine.Service
}

func boot(cfg config.Config, logger *log.Logger) (*runtime, error) {
	client, err := api.NewClient(cfg.APIBind)
	if err != nil {
		return nil, fmt.Errorf("init api client: %w", err)
	}

	store := &state.Store{}
	svc, err := engine.New(engine.Options{
		Stream: cfg.Stream,
		URL:    client.StreamURL(cfg.Stream.Path),
		Dialer: transport.WebsocketDialer{UserAgent: client.UserAgent()},
		Reader: client,
		Store:  store,
		Logger: logger,
	})
	if err != nil {
		return nil, fmt.Errorf("init sync engine: %w", err)
	}
	return &runtime{cfg: cfg, client: client, store: store, svc: svc}, nil
}

// Run boots the dashboard until the user quits or the context is cancelled.
// Logs go to the configured log file so they do not corrupt the TUI.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load lookout config: %w", err)
	}
	logFile, err := OpenLogFile(cfg.LogFile)
	if err != nil {
		return err
	}
	defer logFile.Close()
	logger := NewLogger(logFile, opts.Verbose)

	rt, err := boot(cfg, logger)
	if err != nil {
		return err
	}
	userPrefs := prefs.Load(opts.PrefsPath)

	rt.svc.Start(ctx)
	defer rt.svc.Close()
	StartReconciler(ctx, rt.svc, rt.store, rt.cfg.Stream.ReconcileEvery)

	logger.Info("dashboard starting", "api", rt.cfg.APIBind, "stream", rt.client.StreamURL(rt.cfg.Stream.Path))
	return ui.Run(ui.Options{
		Context:   ctx,
		Store:     rt.store,
		Control:   rt.svc,
		Endpoint:  rt.client.StreamURL(rt.cfg.Stream.Path),
		ThemeName: userPrefs.Theme,
		Panel:     userPrefs.Panel,
		PrefsPath: opts.PrefsPath,
	})
}

// Tail streams applied events to w as plain lines until the context is
// cancelled. Logs go to stderr.
func Tail(ctx context.Context, opts Options, w io.Writer) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load lookout config: %w", err)
	}
	rt, err := boot(cfg, NewLogger(os.Stderr, opts.Verbose))
	if err != nil {
		return err
	}

	rt.svc.Start(ctx)
	defer rt.svc.Close()
	StartReconciler(ctx, rt.svc, rt.store, rt.cfg.Stream.ReconcileEvery)

	return printEvents(ctx, rt.store, w)
}

// Logs prints the last lines of the configured log file at or above level.
func Logs(opts Options, w io.Writer, lines int, level string) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load lookout config: %w", err)
	}
	minLevel := log.DebugLevel
	if level != "" {
		if minLevel, err = log.ParseLevel(level); err != nil {
			return fmt.Errorf("log level: %w", err)
		}
	}
	out, err := logtail.Read(cfg.LogFile, lines, minLevel)
	if err != nil {
		return err
	}
	for _, line := range out {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
