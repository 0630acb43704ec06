// Starts the sync broker of spec §4.9: a WebSocket endpoint that
// registers presence and brokers peer-to-peer share retrieval.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sdraeger/ddalab-core/internal/applog"
	"github.com/sdraeger/ddalab-core/internal/broker"
	"github.com/sdraeger/ddalab-core/internal/config"
	"github.com/sdraeger/ddalab-core/internal/presence"
	"github.com/sdraeger/ddalab-core/internal/storage/postgres"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ddalab-broker: %v\n", err)
		os.Exit(1)
	}

	log := applog.MustServerLogger(false)
	defer log.Sync()

	ctx := context.Background()
	db, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Sugar().Fatalf("failed opening database: %v", err)
	}
	defer db.Close()

	shares := postgres.NewShareRepo(db)
	users := postgres.NewUserRepo(db)
	teams := postgres.NewTeamRepo(db)
	institutions := postgres.NewInstitutionRepo(db)
	directory := postgres.NewDirectory(users, teams, institutions)
	reg := presence.NewRegistry(presence.DefaultCapacity)

	stopSweep := make(chan struct{})
	reg.RunStaleSweep(60*time.Second, float64(cfg.HeartbeatTimeoutSeconds), stopSweep)
	defer close(stopSweep)

	b := broker.New(reg, shares, directory, log, cfg.CORSOrigins)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.Port),
		Handler: b,
	}

	signaled := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer close(signaled)
		sig := <-sigCh
		log.Sugar().Infof("terminating broker on signal %v", sig)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Sugar().Infof("ddalab-broker listening on %s", httpSrv.Addr)
		serveErr <- httpSrv.ListenAndServe()
	}()

	select {
	case <-signaled:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			log.Sugar().Errorf("graceful shutdown failed: %v", err)
		}
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			log.Sugar().Fatalf("serve error: %v", err)
		}
	}
}
