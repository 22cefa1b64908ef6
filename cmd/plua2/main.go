// plua2 - QuickApp emulation core
//
// This is the main entry point for the plua2 emulator. It loads QuickApp
// scripts given on the command line, builds their device descriptors and
// serves the emulated controller API, answering locally or forwarding to
// a live controller depending on configuration.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jangabrielsson/plua2/internal/events"
	"github.com/jangabrielsson/plua2/internal/headers"
	"github.com/jangabrielsson/plua2/internal/infrastructure/config"
	"github.com/jangabrielsson/plua2/internal/infrastructure/logging"
	"github.com/jangabrielsson/plua2/internal/proxy"
	"github.com/jangabrielsson/plua2/internal/quickapp"
	"github.com/jangabrielsson/plua2/internal/router"
	"github.com/jangabrielsson/plua2/internal/scheduler"
	"github.com/jangabrielsson/plua2/internal/web"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. args are the QuickApp script paths to load.
func run(ctx context.Context, args []string) error {
	log := logging.Default()
	log.Info("starting plua2", "version", version, "commit", commit)

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	log = logging.New(cfg.Logging, version)
	log.Info("configuration loaded",
		"offline", cfg.Emulator.Offline,
		"remote", cfg.Remote.URL,
	)

	templates, err := quickapp.LoadTemplates()
	if err != nil {
		return fmt.Errorf("loading device templates: %w", err)
	}

	registry := quickapp.NewRegistry(templates, cfg.Emulator.FirstDeviceID)
	registry.SetLogger(log.Component("quickapp"))

	store := events.NewStore()
	registry.SetEvents(store)

	sched := scheduler.New()
	sched.SetLogger(log.Component("scheduler"))

	// Remote side: absent entirely in offline mode, so no call can ever
	// slip out.
	var remote *proxy.Client
	if !cfg.Emulator.Offline && cfg.Remote.URL != "" {
		remote = proxy.NewClient(cfg.Remote)
		remote.SetLogger(log.Component("proxy"))
		log.Info("remote controller configured", "url", cfg.Remote.URL)
	} else {
		log.Info("running offline")
	}

	parser := headers.NewParser(cfg.Emulator.LibraryPaths)
	parser.SetLogger(log.Component("headers"))

	factoryDeps := quickapp.FactoryDeps{
		Registry: registry,
		Parser:   parser,
		Sched:    sched,
		Offline:  cfg.Emulator.Offline,
		Logger:   log.Component("quickapp"),
	}
	if remote != nil {
		factoryDeps.Proxy = remote
	}
	factory := quickapp.NewFactory(factoryDeps)

	dispatch := router.New(cfg.Emulator.Offline, forwarderOrNil(remote))
	dispatch.SetLogger(log.Component("router"))
	router.RegisterRoutes(dispatch, router.Services{
		Registry: registry,
		Globals:  quickapp.NewGlobalStore(),
		Events:   store,
		Log:      log.Component("router"),
	})

	srv, err := web.New(web.Deps{
		Config: cfg,
		Logger: log,
		Router: dispatch,
		Events: store,
	})
	if err != nil {
		return fmt.Errorf("creating web server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	sched.Start(gctx)
	g.Go(func() error {
		<-gctx.Done()
		sched.Stop()
		return nil
	})

	// Online mode mirrors the controller's event feed into the local
	// store, so refreshStates pollers and the WebSocket hub see remote
	// events too.
	if remote != nil {
		poller := proxy.NewPoller(remote, store)
		poller.SetLogger(log.Component("proxy"))
		poller.Start(gctx)
		g.Go(func() error {
			<-gctx.Done()
			poller.Stop()
			return nil
		})
	}

	g.Go(func() error {
		if startErr := srv.Start(gctx); startErr != nil {
			return fmt.Errorf("starting web server: %w", startErr)
		}
		<-gctx.Done()
		return srv.Close()
	})

	// Scripts load in argument order so automatic ids are stable run to
	// run. A structurally broken script aborts startup; see the error
	// rules in the headers package.
	for _, path := range args {
		if loadErr := loadScript(gctx, factory, log, path); loadErr != nil {
			return loadErr
		}
	}
	log.Info("initialisation complete", "devices", len(registry.List()))

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("plua2 stopped")
	return nil
}

// loadScript reads one QuickApp source file and turns it into a
// registered device.
func loadScript(ctx context.Context, factory *quickapp.Factory, log *logging.Logger, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading script %s: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dev, hs, err := factory.CreateFromContent(ctx, name, string(content))
	if err != nil {
		return fmt.Errorf("loading script %s: %w", path, err)
	}

	log.Info("script loaded",
		"path", path,
		"device_id", dev.ID,
		"type", dev.Type,
		"proxy", dev.Proxy != nil,
		"debug", hs.Debug,
	)
	return nil
}

// forwarderOrNil keeps a typed-nil *proxy.Client from sneaking into the
// router's Forwarder interface.
func forwarderOrNil(remote *proxy.Client) router.Forwarder {
	if remote == nil {
		return nil
	}
	return remote
}

// getConfigPath returns the configuration file path. Uses the
// PLUA2_CONFIG environment variable if set, otherwise the default.
func getConfigPath() string {
	if path := os.Getenv("PLUA2_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
