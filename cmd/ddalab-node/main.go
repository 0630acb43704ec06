// Starts a local node: the per-user embedded API, job queue, and
// snapshot import/export of spec §2/§4.3/§4.8.
//
// For usage details, run ddalab-node with -h.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/sdraeger/ddalab-core/internal/applog"
	"github.com/sdraeger/ddalab-core/internal/jobqueue"
	"github.com/sdraeger/ddalab-core/internal/session"
	"github.com/sdraeger/ddalab-core/internal/storage/sqlite"
)

func main() {
	var bindAddr string
	var port int
	var dbPath string
	var ddaBinary string
	var outputDir string
	var maxConcurrentJobs int64
	var enableEncryption bool
	var help bool
	var logOutput bool

	flag.Usage = usage
	flag.StringVar(&bindAddr, "bind", "127.0.0.1", "address to bind the embedded API to")
	flag.IntVar(&port, "port", 8765, "port for the embedded API")
	flag.StringVar(&dbPath, "db", "ddalab-node.db", "path to the node's SQLite database")
	flag.StringVar(&ddaBinary, "dda-binary", "dda", "path to the DDA analysis binary")
	flag.StringVar(&outputDir, "output-dir", "./dda-output", "directory DDA result files are written to")
	flag.Int64Var(&maxConcurrentJobs, "max-jobs", 4, "maximum number of concurrently running analysis jobs")
	flag.BoolVar(&enableEncryption, "encrypt", false, "require the session encryption middleware on opted-in routes")
	flag.BoolVar(&help, "h", false, "Show usage information")
	flag.BoolVar(&logOutput, "l", false, "Show component logging output (for debugging)")
	flag.Parse()

	if help {
		usage()
		os.Exit(0)
	}
	if logOutput {
		applog.EnableComponentLogging()
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "ddalab-node: failed creating output dir %s: %v\n", outputDir, err)
		os.Exit(1)
	}

	db, err := sqlite.Open(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ddalab-node: failed opening database %s: %v\n", dbPath, err)
		os.Exit(1)
	}
	defer db.Close()

	node := &Node{
		queue:       jobqueue.New(maxConcurrentJobs, applog.NewComponent("node-queue ")),
		analyses:    sqlite.NewAnalysisRepo(db),
		annotations: sqlite.NewAnnotationRepo(db),
		sessions:    session.NewStore(),
		encryption:  enableEncryption,
		log:         applog.NewComponent("node-api "),
		valid:       validator.New(),
	}
	node.queue.Start(&jobqueue.DDARunner{BinaryPath: ddaBinary, OutputDir: outputDir})
	defer node.queue.Stop()
	node.queue.StartWatchdog(5 * time.Second)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", bindAddr, port),
		Handler: node.Router(),
	}

	signaled := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer close(signaled)
		fmt.Printf("Terminating node on signal %v...\n", <-sigCh)
	}()

	serveErr := make(chan error, 1)
	go func() {
		fmt.Printf("ddalab-node listening on %s\n", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case <-signaled:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "ddalab-node: graceful shutdown failed: %v\n", err)
		}
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "ddalab-node: serve error: %v\n", err)
			os.Exit(1)
		}
	}
}

func usage() {
	fmt.Print(`usage: ddalab-node [-h] [-l] [-bind addr] [-port n] [-db path]
                    [-dda-binary path] [-output-dir dir] [-max-jobs n] [-encrypt]

Starts the per-user embedded API, job queue, and snapshot endpoints.

Flags:
`)
	flag.PrintDefaults()
}
