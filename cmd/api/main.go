package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tessera-tickets/tessera/internal/app"
	"github.com/tessera-tickets/tessera/internal/clock"
	"github.com/tessera-tickets/tessera/internal/config"
	"github.com/tessera-tickets/tessera/internal/storage/postgres"
	transporthttp "github.com/tessera-tickets/tessera/internal/transport/http"
	"github.com/tessera-tickets/tessera/migrations"
)

func main() {
	logger := log.Default()

	if err := godotenv.Load(); err != nil {
		logger.Printf("WARN: no .env file loaded: %v", err)
	}
	cfg := config.Load()

	startupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("parse database url: %v", err)
	}
	// NUMERIC columns scan into shopspring decimals on every connection.
	poolCfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(startupCtx, poolCfg)
	if err != nil {
		log.Fatalf("connect to db: %v", err)
	}
	defer pool.Close()

	if err := pool.Ping(startupCtx); err != nil {
		log.Fatalf("db ping: %v", err)
	}
	if err := migrations.Apply(startupCtx, pool); err != nil {
		log.Fatalf("apply migrations: %v", err)
	}

	lockOpt := postgres.WithLockTimeout(cfg.LockTimeout)
	bookingRepo := postgres.NewBookingRepository(pool, lockOpt)
	ticketRepo := postgres.NewTicketRepository(pool, lockOpt)
	eventRepo := postgres.NewEventRepository(pool, lockOpt)

	bookingSvc := app.NewBookingService(
		bookingRepo,
		ticketRepo,
		clock.NewSystem(),
		app.WithExpiryPolicy(app.ExpiryPolicy{Before: cfg.ExpiryBeforeStart}),
		app.WithConflictRetries(cfg.ConflictRetries),
	)
	eventSvc := app.NewEventService(eventRepo, clock.NewSystem())

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := app.NewSweeper(bookingSvc, cfg.SweepInterval, cfg.SweepBatchLimit, logger)
	go sweeper.Run(stopCtx)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", transporthttp.HealthHandler)
	mux.Handle("/ready", transporthttp.ReadyHandler(pool))
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/events", transporthttp.HandleEvents(eventSvc))
	mux.Handle("/events/", transporthttp.HandleEventByID(eventSvc))
	mux.Handle("/bookings", transporthttp.HandleBookings(bookingSvc))
	mux.Handle("/bookings/", transporthttp.HandleBookingByID(bookingSvc, logger))
	mux.Handle("/admin/events", transporthttp.HandleAdminEvents(eventSvc))
	mux.Handle("/admin/events/", transporthttp.HandleAdminEventActions(eventSvc))
	mux.Handle("/admin/ticket-types/", transporthttp.HandleAdminTicketTypes(eventSvc))
	mux.Handle("/", transporthttp.NotFoundHandler())

	handler := transporthttp.Recoverer(
		transporthttp.RequestLogger(transporthttp.CORS(cfg.CORSOrigins, mux), logger),
		logger,
	)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: handler,
	}

	log.Printf("api listening on :%s", cfg.Port)

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("server error: %v", err)
		}
	case <-stopCtx.Done():
		log.Printf("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Printf("server shutdown error: %v", err)
	}
	log.Printf("server stopped")
}
