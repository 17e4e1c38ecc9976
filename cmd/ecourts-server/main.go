package main

import (
	"context"
	"log/slog"
	"net"
	"time"

	"ecourts-backend/lib/configutil"
	"ecourts-backend/lib/directory"
	"ecourts-backend/lib/querylog"
	"ecourts-backend/lib/telemetry"
	"ecourts-backend/lib/util/serviceutil"
	"ecourts-backend/services/casestatus"
)

func main() {
	ctx := serviceutil.SignalContext()

	config, err := configutil.ReadConfigDefault("config.json5", defaultConfig)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	telemetry.InitSlog(config.Verbose)

	t, err := telemetry.SetupFromEnv(ctx, "ecourts-server")
	if err != nil {
		serviceutil.Fatal("failed to setup telemetry", err)
	}
	defer t.Shutdown(context.Background())
	telemetry.InstrumentPerfStats(ctx)

	dir, err := directory.Load(config.Directory)
	if err != nil {
		serviceutil.Fatal("failed to load court directory", err)
	}
	states, districts := dir.Count()
	if states == 0 {
		slog.Warn("court directory is empty, run `ecourts-cli crawl` to build it", "path", config.Directory)
	}
	slog.Info("loaded court directory", "states", states, "districts", districts)

	slog.Info("opening database...")
	db, err := config.Database.OpenDB()
	if err != nil {
		serviceutil.Fatal("failed to open database", err)
	}
	defer db.Close()
	store := querylog.NewStore(db)
	err = store.Migrate(ctx)
	if err != nil {
		serviceutil.Fatal("failed to migrate database", err)
	}

	portal, err := config.Portal.ClientOptions()
	if err != nil {
		serviceutil.Fatal("failed to configure portal client", err)
	}

	service := casestatus.NewService(casestatus.Options{
		Directory:   dir,
		QueryLog:    store,
		Portal:      portal,
		AdminToken:  config.AdminToken,
		MaxSessions: config.MaxSessions,
		SessionTTL:  time.Duration(config.SessionTTLMinutes) * time.Minute,
	})

	listener, err := net.Listen("tcp", config.Listen)
	if err != nil {
		serviceutil.Fatal("failed to listen", err)
	}
	err = serviceutil.StartHttpServer(ctx, listener, service.Handler())
	service.Wait()
	if err != nil {
		serviceutil.Fatal("http server stopped", err)
	}
}
