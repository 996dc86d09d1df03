package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opsledger/opsledger/internal/api"
	"github.com/opsledger/opsledger/internal/database"
	"github.com/opsledger/opsledger/internal/healthpass"
	"github.com/opsledger/opsledger/internal/jobs"
	"github.com/opsledger/opsledger/internal/ledger"
	"github.com/opsledger/opsledger/internal/notification"
	"github.com/opsledger/opsledger/internal/probe"
	"github.com/opsledger/opsledger/internal/websocket"
)

var serveMigrationsDir string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the read API, live event stream and scheduled jobs",
	Long: `Serve hosts the HTTP read API, the websocket event stream and the
scheduled background jobs: the hourly health pass, the nightly
retention sweep and the Docker size collector.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		db, err := database.Connect(cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to get database connection: %w", err)
		}
		defer sqlDB.Close()

		if err := database.RunMigrations(cfg.Database, serveMigrationsDir); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}

		hub := websocket.NewHub(cfg.API.JWTSecret, cfg.API.CORSOrigins)
		go hub.Run()

		recorder := ledger.NewRecorder(db, cfg.DryRun)
		recorder.SetPublisher(hub)
		queries := ledger.NewQueries(db)
		dispatcher := notification.NewDispatcher(cfg.Sinks, cfg.DryRun)

		var heartbeat *notification.HeartbeatSink
		if cfg.Sinks.Heartbeat != nil {
			heartbeat = notification.NewHeartbeat(cfg.Sinks.Heartbeat.URL)
		}
		var pinger healthpass.Prober
		if len(cfg.Probes.PingHosts) > 0 {
			pinger = probe.NewPinger(cfg.Probes.PingHosts, cfg.Probes.PingTimeout)
		}
		var collector *probe.DockerCollector
		if len(cfg.Probes.DockerHosts) > 0 {
			collector = probe.NewDockerCollector(cfg.Probes.DockerHosts)
		}

		pass := healthpass.New(
			ledger.NewStateStore(db, cfg.DryRun),
			recorder, queries, dispatcher, heartbeat, pinger,
			cfg.Author, cfg.DryRun,
		)
		sweeper := ledger.NewSweeper(db, cfg.Retention, cfg.DryRun)

		scheduler := jobs.NewScheduler(cfg.Schedule, sweeper, pass, collector, recorder)
		if err := scheduler.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer scheduler.Stop()

		router := api.NewRouter(cfg, queries, hub)

		server := &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.API.Port),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			log.Printf("Server starting on port %d", cfg.API.Port)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Server failed to start: %v", err)
			}
		}()

		// Graceful shutdown
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Println("Server exited")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveMigrationsDir, "migrations-dir", "./migrations", "directory holding SQL migrations")
	rootCmd.AddCommand(serveCmd)
}
