// Starts the institutional server of spec §4.9: auth, share and team
// CRUD, job submission/status/cancel/download, audit logging, and a
// presence-driven heartbeat sweep for the broker side of the control
// plane.
//
// Configuration is entirely environment-variable driven, spec §6; see
// internal/config for the full variable list and defaults.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sdraeger/ddalab-core/internal/config"
	"github.com/sdraeger/ddalab-core/internal/jobqueue"
	"github.com/sdraeger/ddalab-core/internal/presence"
	"github.com/sdraeger/ddalab-core/internal/server"
	"github.com/sdraeger/ddalab-core/internal/session"
	"github.com/sdraeger/ddalab-core/internal/storage/postgres"

	"github.com/sdraeger/ddalab-core/internal/applog"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "ddalab-server: %v\n", err)
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

	users := postgres.NewUserRepo(db)
	teams := postgres.NewTeamRepo(db)
	jobsTable := postgres.NewJobRepo(db)
	audit := postgres.NewAuditRepo(db)
	shares := postgres.NewShareRepo(db)
	institutions := postgres.NewInstitutionRepo(db)
	directory := postgres.NewDirectory(users, teams, institutions)
	sessions := session.NewStore()
	jobQueue := jobqueue.New(cfg.MaxConcurrentJobs, applog.NewComponent("server-queue "))

	// The institutional server's own presence registry backs
	// /auth/validate-adjacent bookkeeping the broker process also
	// maintains independently; each process owns its own registry
	// instance per spec §4.6 ("no component reaches into another's
	// internal state").
	presenceReg := presence.NewRegistry(presence.DefaultCapacity)
	stopSweep := make(chan struct{})
	presenceReg.RunStaleSweep(60*time.Second, float64(cfg.HeartbeatTimeoutSeconds), stopSweep)
	defer close(stopSweep)

	srv := server.New(cfg, log, users, teams, jobsTable, audit, shares, directory, sessions, jobQueue)
	jobQueue.Start(&jobqueue.DDARunner{BinaryPath: ddaBinaryPath(), OutputDir: ddaOutputDir()})
	defer jobQueue.Stop()
	jobQueue.StartWatchdog(5 * time.Second)

	httpSrv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.Port),
		Handler: srv.Router(),
	}

	signaled := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer close(signaled)
		sig := <-sigCh
		log.Sugar().Infof("terminating server on signal %v", sig)
	}()

	serveErr := make(chan error, 1)
	go func() {
		log.Sugar().Infof("ddalab-server listening on %s", httpSrv.Addr)
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

// ddaBinaryPath and ddaOutputDir are deliberately not part of
// config.ServerConfig: spec §6 pins the institutional server's
// environment-variable surface exactly, and neither variable appears
// there. They're read directly with conservative fallbacks instead of
// growing the pinned config struct.
func ddaBinaryPath() string {
	if v := os.Getenv("DDA_BINARY_PATH"); v != "" {
		return v
	}
	return "dda"
}

func ddaOutputDir() string {
	if v := os.Getenv("DDA_OUTPUT_DIR"); v != "" {
		return v
	}
	return "./dda-output"
}
