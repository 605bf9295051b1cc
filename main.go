package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/tetratrack/gaitd/internal/api"
	"github.com/tetratrack/gaitd/internal/config"
	"github.com/tetratrack/gaitd/internal/db"
	"github.com/tetratrack/gaitd/internal/ingest"
	"github.com/tetratrack/gaitd/internal/units"
)

var (
	listen      = flag.String("listen", ":8080", "HTTP listen address")
	udpListen   = flag.String("udp-listen", ":9870", "UDP sample listen address")
	dbPath      = flag.String("db", "gaitd.db", "Path to the session database")
	configPath  = flag.String("config", "", "Path to a tuning config JSON file (built-in defaults when empty)")
	speedUnits  = flag.String("units", units.MPS, "Display units for speeds (mps, kmph, kph, mph)")
	udpRcvBuf   = flag.Int("udp-rcvbuf", 1<<20, "UDP receive buffer size in bytes")
	logInterval = flag.Duration("stats-interval", time.Minute, "Interval between sample stats log lines")
)

func main() {
	flag.Parse()

	if *listen == "" {
		log.Fatal("Listen address is required")
	}
	if !units.IsValid(*speedUnits) {
		log.Fatalf("Invalid units %q; valid values: %s", *speedUnits, units.GetValidUnitsString())
	}

	var tuning *config.TuningConfig
	if *configPath != "" {
		var err error
		tuning, err = config.LoadTuningConfig(*configPath)
		if err != nil {
			log.Fatalf("Failed to load tuning config: %v", err)
		}
	} else {
		tuning = config.MustLoadDefaultConfig()
	}

	database, err := db.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	if err := database.MigrateUp(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	pipeline := ingest.NewPipeline(tuning, database, nil)

	var wg sync.WaitGroup
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// UDP sample receive loop
	wg.Add(1)
	go func() {
		defer wg.Done()
		listener := ingest.NewUDPListener(ingest.UDPListenerConfig{
			Address:     *udpListen,
			RcvBuf:      *udpRcvBuf,
			LogInterval: *logInterval,
			Pipeline:    pipeline,
		})
		if err := listener.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("UDP listener error: %v", err)
		}
		log.Print("UDP listener routine terminated")
	}()

	// HTTP server goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()

		mux := http.NewServeMux()

		// admin debugging routes (tailsql browser, tsweb debug, backup)
		database.AttachAdminRoutes(mux)

		apiServer := api.NewServer(pipeline, database, *speedUnits)
		mux.Handle("/api/", apiServer.ServeMux())

		server := &http.Server{
			Addr:    *listen,
			Handler: api.LoggingMiddleware(mux),
		}

		go func() {
			log.Printf("HTTP server listening on %s", *listen)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("failed to start server: %v", err)
			}
		}()

		<-ctx.Done()
		log.Println("shutting down HTTP server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("HTTP server shutdown error: %v", err)
		}

		log.Printf("HTTP server routine stopped")
	}()

	wg.Wait()
	log.Printf("Graceful shutdown complete")
}
