package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"calwidget/internal/calendar"
	"calwidget/internal/config"
	"calwidget/internal/ics"
	appLog "calwidget/internal/log"
	"calwidget/internal/web"
)

type flagConfig struct {
	configPath string
	listen     string
	cacheDir   string
	once       bool
	debug      bool
}

func main() {
	flags := parseFlags()
	if flags.debug {
		appLog.SetLevel(appLog.LevelDebug)
	}
	defer appLog.Sync()

	appLog.Info("calwidget starting", "version", "0.1.0")

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}

	// CLI --listen overrides the config file if provided.
	if flags.listen != "" {
		conf.Listen = flags.listen
	}

	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"backfill_days", conf.BackfillDays,
		"ics_count", len(conf.ICS),
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	cal := calendar.New()
	importer := ics.NewImporter(ics.ImporterConfig{
		CacheDir:     flags.cacheDir,
		Sources:      icsSources(conf),
		DisplayLoc:   resolveLocationOrLocal(conf.Timezone),
		HorizonDays:  conf.HorizonDays,
		BackfillDays: conf.BackfillDays,
		ColorFor:     conf.ColorFor,
	})

	// Initial import before serving, so the first widget request already
	// sees the subscribed feeds.
	if err := importer.Refresh(ctx, cal); err != nil {
		appLog.Error("initial ics refresh finished with errors", err)
	}

	if flags.once {
		appLog.Info("single-shot refresh done, exiting", "entries", cal.Len())
		return
	}

	// Periodic refresh on the configured cron schedule.
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(conf.RefreshCron, func() {
		refreshCtx, refreshCancel := context.WithTimeout(ctx, 2*time.Minute)
		defer refreshCancel()
		if err := importer.Refresh(refreshCtx, cal); err != nil {
			appLog.Error("scheduled ics refresh finished with errors", err)
		}
	}); err != nil {
		appLog.Error("invalid refresh schedule", err, "refresh", conf.RefreshCron)
		os.Exit(1)
	}
	scheduler.Start()
	defer scheduler.Stop()

	srv := web.NewServer(conf, cal)
	if err := srv.Serve(ctx); err != nil {
		appLog.Error("HTTP server stopped", err)
		os.Exit(1)
	}

	appLog.Info("calwidget exiting")
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/calwidget/config.yaml", "Path to config file")
	flag.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
	flag.StringVar(&cfg.cacheDir, "cache-dir", "/var/lib/calwidget/ics-cache", "Directory for the ICS fetch cache")
	flag.BoolVar(&cfg.once, "once", false, "Run one ICS refresh and exit")
	flag.BoolVar(&cfg.debug, "debug", false, "Enable debug logging")

	flag.Parse()

	return cfg
}

func icsSources(conf *config.Config) []ics.Source {
	sources := make([]ics.Source, 0, len(conf.ICS))
	for _, csrc := range conf.ICS {
		if csrc.URL == "" {
			continue
		}
		id := csrc.ID
		if id == "" {
			if csrc.Name != "" {
				id = csrc.Name
			} else {
				id = csrc.URL
			}
		}
		sources = append(sources, ics.Source{ID: id, URL: csrc.URL})
	}
	return sources
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
