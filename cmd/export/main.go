package main

import (
	"context"
	"flag"

	"epicdash/internal/config"
	"epicdash/internal/data"
	"epicdash/internal/db"
	"epicdash/internal/discord"
	"epicdash/internal/export"

	log "github.com/sirupsen/logrus"
)

func main() {
	sqlitePath := flag.String("sqlite", "", "SQLite export file (overrides EXPORT_SQLITE_PATH, \"-\" disables)")
	workers := flag.Int("workers", 0, "concurrent match exports (overrides EXPORT_WORKERS)")
	flag.Parse()

	config.LoadEnv()
	cfg := config.Load()
	cfg.SetupLogging()
	if *sqlitePath != "" {
		cfg.ExportSQLitePath = *sqlitePath
	}
	if *workers > 0 {
		cfg.ExportWorkers = *workers
	}

	ctx := export.SetupSignalHandler(func(context.Context) {
		log.Println("[Export] Stopping after matches in flight")
	})

	vault, err := cfg.Vault(ctx)
	if err != nil {
		log.Fatalf("Failed to open artifacts: %v", err)
	}

	sinks := openSinks(ctx, cfg)
	if len(sinks) == 0 {
		log.Fatal("No export sink configured")
	}
	defer func() {
		for _, s := range sinks {
			if err := s.Close(); err != nil {
				log.Warnf("[Export] Closing %s: %v", s.Name(), err)
			}
		}
	}()

	var notifier export.Notifier
	if cfg.DiscordWebhookURL != "" {
		notifier = discord.NewWebhookClient(cfg.DiscordWebhookURL)
	}

	summary, err := export.New(data.NewService(vault), sinks, notifier, cfg.ExportWorkers).Run(ctx)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	if summary.Failed > 0 {
		log.Errorf("Export finished with %d failures", summary.Failed)
	}
}

// openSinks connects every configured sink; a sink that cannot connect is skipped
func openSinks(ctx context.Context, cfg *config.Config) []db.Sink {
	var sinks []db.Sink

	if cfg.ExportSQLitePath != "" && cfg.ExportSQLitePath != "-" {
		if s, err := db.NewSQLiteSink(cfg.ExportSQLitePath); err != nil {
			log.Errorf("[Export] SQLite: %v", err)
		} else {
			log.Printf("[Export] Writing to %s", cfg.ExportSQLitePath)
			sinks = append(sinks, s)
		}
	}

	if cfg.TursoURL != "" {
		if s, err := db.NewTursoSink(cfg.TursoURL, cfg.TursoToken); err != nil {
			log.Errorf("[Export] Turso: %v", err)
		} else {
			log.Println("[Export] Writing to Turso")
			sinks = append(sinks, s)
		}
	}

	if cfg.DatabaseURL != "" {
		if s, err := db.NewPostgresSink(ctx, cfg.DatabaseURL); err != nil {
			log.Errorf("[Export] Postgres: %v", err)
		} else {
			log.Println("[Export] Writing to Postgres")
			sinks = append(sinks, s)
		}
	}

	return sinks
}
