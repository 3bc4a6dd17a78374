package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"brandgen-go/internal/config"
	"brandgen-go/internal/constants"
	"brandgen-go/internal/logging"
	tracing "brandgen-go/internal/monitoring/tracing"
	"brandgen-go/internal/runtime"
	srv "brandgen-go/internal/server"
	"brandgen-go/internal/upstream"
	log "github.com/sirupsen/logrus"
)

func main() {
	configPath := flag.String("config", "", "Path to configuration file (searched when empty)")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	manager, err := config.NewManager(*configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	defer manager.Stop()

	cfg := manager.Current()
	if *debug {
		cfg.Security.Debug = true
	}
	if err := logging.Setup(cfg); err != nil {
		log.WithError(err).Fatal("failed to configure logging")
	}
	if !reportValidation(cfg) {
		log.Fatal("invalid configuration")
	}
	manager.OnChange(func(_, next *config.Config) {
		if *debug {
			next.Security.Debug = true
		}
		if err := logging.Setup(next); err != nil {
			log.WithError(err).Warn("failed to reconfigure logging")
		}
	})

	traceShutdown, err := tracing.Init(context.Background())
	if err != nil {
		log.WithError(err).Warn("failed to initialize tracing")
	}
	if traceShutdown != nil {
		defer func() {
			if err := traceShutdown(context.Background()); err != nil {
				log.WithError(err).Warn("failed to shutdown tracing")
			}
		}()
	}
	log.WithFields(log.Fields{
		"version": constants.Version,
		"commit":  constants.GitCommit,
		"config":  manager.Path(),
	}).Info("Starting brandgen relay")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := srv.OpenStorage(ctx, cfg)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize storage")
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.WithError(err).Warn("failed to close storage")
		}
	}()

	engine := srv.BuildEngine(srv.Dependencies{
		Config:  manager,
		Storage: rt.Storage,
		Guard:   rt.Guard,
		Access:  rt.Access,
		Clients: upstream.NewManager(),
	})
	httpSrv := newHTTPServer(cfg, engine)

	sup := runtime.NewSupervisor(ctx)
	if err := sup.Go("http-server", func(context.Context) error {
		log.Infof("API listening on %s", httpSrv.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// 监听失败时记录错误并等待关停信号
			return err
		}
		return nil
	}); err != nil {
		log.WithError(err).Fatal("failed to start http server")
	}
	if err := sup.Every("storage-health", constants.StorageHealthInterval, srv.StorageHealthCheck(rt.Storage)); err != nil {
		log.WithError(err).Warn("storage health check disabled")
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Info("Shutdown signal received")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), constants.ServerShutdownTimeout)
	defer cancelShutdown()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("graceful shutdown incomplete")
	}
	if err := sup.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("background tasks still running")
	}
	log.Info("Server stopped")
}
