package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/m4a3/weathervane/internal/api"
	"github.com/m4a3/weathervane/internal/cache"
	"github.com/m4a3/weathervane/internal/config"
	"github.com/m4a3/weathervane/internal/dispatcher"
	"github.com/m4a3/weathervane/internal/fleetapi"
	"github.com/m4a3/weathervane/internal/flight"
	"github.com/m4a3/weathervane/internal/influx"
	"github.com/m4a3/weathervane/internal/logging"
	"github.com/m4a3/weathervane/internal/monitor"
	"github.com/m4a3/weathervane/internal/otel"
	"github.com/m4a3/weathervane/internal/sim"
	"github.com/m4a3/weathervane/internal/storage"
	"github.com/m4a3/weathervane/internal/weathervane"
)

const (
	serviceName = "weathervaned"

	// Snapshots kept for the /track endpoint. At 50 Hz this is about a
	// minute of history.
	trackHistorySize = 3000
)

var configDir = flag.String("config", ".", "directory containing weathervaned.cfg.json")

func main() {
	flag.Parse()

	if err := config.Load(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	sessionStart := time.Now().UTC()
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "creating logs dir: %v\n", err)
		os.Exit(1)
	}

	logPath := logging.LogFilePath(logsDir, serviceName, sessionStart)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "opening log file: %v\n", err)
		os.Exit(1)
	}
	defer logFile.Close()

	bootLog := logging.BootLogger(logFile)
	bootLog.Info().Str("configDir", *configDir).Str("logFile", logPath).Msg("weathervaned starting")

	otelCfg := config.GetOTelConfig()
	provider, err := otel.New(otel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    logFile,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		bootLog.Fatal().Err(err).Msg("otel provider")
	}

	flightCtx := flight.NewContext()

	slogMgr := logging.NewSlogManager()
	slogMgr.Setup(logFile, config.GetString("logLevel"), provider.LoggerProvider(), flightCtx.LogAttrs)
	log := slogMgr.Logger()

	backend, err := storage.NewBackend(config.GetStorageConfig(), storage.Dependencies{
		Logger:        log,
		DBLogger:      bootLog,
		FlightContext: flightCtx,
	})
	if err != nil {
		bootLog.Fatal().Err(err).Msg("storage backend")
	}
	if err := backend.Init(); err != nil {
		bootLog.Fatal().Err(err).Msg("storage init")
	}

	var influxMgr *influx.Manager
	if config.GetBool("influx.enabled") {
		influxMgr = influx.NewManager(bootLog, filepath.Join(logsDir, "influx_backup.lp.gz"))
		if err := influxMgr.Connect(); err != nil {
			log.Error("influxdb unavailable, telemetry disabled", "error", err)
			influxMgr = nil
		}
	}

	engine, err := buildEngine(log, backend, influxMgr, flightCtx)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("simulation engine")
	}

	disp, err := dispatcher.New(log)
	if err != nil {
		bootLog.Fatal().Err(err).Msg("dispatcher")
	}
	engine.RegisterHandlers(disp)

	monDeps := monitor.Dependencies{
		Logger:        log,
		FlightContext: flightCtx,
		Backend:       backend,
		Influx:        influxMgr,
		StatusDir:     logsDir,
	}
	if stats, ok := backend.(monitor.Stats); ok {
		monDeps.Stats = stats
	}
	mon := monitor.NewService(monDeps)
	if err := mon.Start(); err != nil {
		log.Error("status monitor not started", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	engDone := make(chan struct{})
	go func() {
		if err := engine.Run(ctx); err != nil {
			log.Error("simulation stopped", "error", err)
		}
		close(engDone)
	}()

	// Feed the API's track history from the engine's snapshot stream.
	track := cache.NewTrackCache(trackHistorySize)
	go func() {
		ch, unsub := engine.Subscribe(ctx)
		defer unsub()
		for st := range ch {
			track.Add(st)
		}
	}()

	listenAddr := config.GetString("api.listenAddr")
	httpServer := &http.Server{
		Addr:    listenAddr,
		Handler: api.NewServer(engine, disp, track, log).Handler(),
	}
	go func() {
		log.Info("http api listening", "addr", listenAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown", "error", err)
	}

	// The engine closes out any active flight before returning, so the
	// backend still sees the EndFlight before Close drains its queues.
	<-engDone
	mon.Stop()

	if err := backend.Close(); err != nil {
		log.Error("closing storage backend", "error", err)
	}

	uploadExport(log, backend)

	if influxMgr != nil {
		influxMgr.Close()
	}

	_ = slogMgr.Flush(shutdownCtx)
	if err := provider.Shutdown(shutdownCtx); err != nil {
		bootLog.Error().Err(err).Msg("otel shutdown")
	}

	bootLog.Info().Msg("shutdown complete")
}

// buildEngine assembles the simulation engine from the loaded configuration.
func buildEngine(log *slog.Logger, backend storage.Backend, influxMgr *influx.Manager, flightCtx *flight.Context) (*sim.Engine, error) {
	wvCfg := config.GetWeathervaneConfig()

	class, err := weathervane.ParseVehicleClass(wvCfg.VehicleClass)
	if err != nil {
		return nil, err
	}
	direction, err := weathervane.ParseDirection(wvCfg.Direction)
	if err != nil {
		return nil, err
	}

	simCfg := config.GetSimConfig()

	return sim.New(sim.Config{
		OriginLat: simCfg.OriginLat,
		OriginLon: simCfg.OriginLon,
		TickHz:    simCfg.TickHz,
		StartAltM: simCfg.StartAltM,
		Wind: sim.Wind{
			SpeedMS: simCfg.WindSpeedMS,
			FromDeg: simCfg.WindDirectionDeg,
		},
		Terrain:      sim.Terrain{Enabled: simCfg.TerrainEnabled},
		VehicleClass: class,
		Controller: weathervane.Config{
			Direction:            direction,
			Gain:                 wvCfg.Gain,
			MinDeadzoneAngleDeg:  wvCfg.MinDeadzoneAngleDeg,
			MinHeightM:           wvCfg.MinHeightM,
			MaxHorizontalSpeedMS: wvCfg.MaxHorizontalSpeedMS,
			MaxVerticalSpeedMS:   wvCfg.MaxVerticalSpeedMS,
			MaxYawRateDS:         wvCfg.MaxYawRateDS,
		},
		InfluxSampleEveryN: config.GetInt("influx.sampleEveryN"),
	}, sim.Dependencies{
		Logger:        log,
		Backend:       backend,
		Influx:        influxMgr,
		FlightContext: flightCtx,
	})
}

// uploadExport ships the last exported flight log to the fleet server when
// uploads are enabled and the backend produced a file.
func uploadExport(log *slog.Logger, backend storage.Backend) {
	fleetCfg := config.GetFleetConfig()
	if !fleetCfg.Enabled {
		return
	}

	up, ok := backend.(storage.Uploadable)
	if !ok {
		return
	}
	path := up.GetExportedFilePath()
	if path == "" {
		return
	}

	client := fleetapi.New(fleetCfg.ServerURL, fleetCfg.APIKey)
	if err := client.Healthcheck(); err != nil {
		log.Error("fleet server unreachable, keeping export local", "path", path, "error", err)
		return
	}
	if err := client.Upload(path, up.GetExportMetadata()); err != nil {
		log.Error("flight log upload failed", "path", path, "error", err)
		return
	}
	log.Info("flight log uploaded", "path", path)
}
