package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	coursehandler "coursehub/internal/course/handler"
	courseservice "coursehub/internal/course/service"
	coursestore "coursehub/internal/course/store"
	enrollmenthandler "coursehub/internal/enrollment/handler"
	enrollmentmetrics "coursehub/internal/enrollment/metrics"
	enrollmentservice "coursehub/internal/enrollment/service"
	enrollmentstore "coursehub/internal/enrollment/store"
	"coursehub/internal/events/outbox"
	"coursehub/internal/platform/config"
	"coursehub/internal/platform/httpserver"
	"coursehub/internal/platform/logger"
	"coursehub/internal/platform/middleware"
	"coursehub/internal/platform/postgres"
	"coursehub/internal/platform/redis"
)

// main wires dependencies and owns the process lifecycle. Business logic
// lives in the internal service packages. Without POSTGRES_DSN the process
// runs on in-memory stores, which is only useful for local development.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(cfg.Postgres)
	if err != nil {
		log.Error("postgres connection failed", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	} else {
		log.Warn("POSTGRES_DSN not set, using in-memory stores")
	}

	redisClient, err := redis.New(cfg.Redis)
	if err != nil {
		log.Error("redis connection failed", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	// Course module. The write path always talks to the store directly;
	// the cache only decorates reads on the enrollment listing join.
	var courseStore courseservice.Store
	var courseFinder enrollmentservice.CourseFinder
	var courseWrites enrollmentservice.CourseStore
	var courseOpts []courseservice.Option
	if db != nil {
		pg := coursestore.NewPostgres(db)
		courseStore = pg
		courseFinder = pg
		courseWrites = pg
	} else {
		mem := coursestore.NewInMemory()
		courseStore = mem
		courseFinder = mem
		courseWrites = mem
	}
	if redisClient != nil && cfg.CourseCacheTTL > 0 {
		cache := coursestore.NewCache(courseFinder, redisClient.Client, cfg.CourseCacheTTL, log)
		courseFinder = cache
		courseOpts = append(courseOpts, courseservice.WithInvalidator(cache))
	}
	courseOpts = append(courseOpts, courseservice.WithLogger(log))
	courseSvc := courseservice.New(courseStore, courseOpts...)

	// Enrollment module: stores, transaction boundary, outbox.
	var enrollStore enrollmentservice.EnrollmentStore
	var storeTx enrollmentservice.StoreTx
	var eventStore outbox.Store
	if db != nil {
		enrollStore = enrollmentstore.NewPostgres(db)
		storeTx = enrollmentstore.NewPostgresTx(db)
		eventStore = outbox.NewPostgresStore(db)
	} else {
		enrollStore = enrollmentstore.NewInMemory()
		storeTx = enrollmentservice.NewInMemoryTx()
		eventStore = outbox.NewInMemoryStore()
	}

	m := enrollmentmetrics.New()
	enrollSvc := enrollmentservice.New(enrollStore, courseWrites, storeTx,
		enrollmentservice.WithLogger(log),
		enrollmentservice.WithMetrics(m),
		enrollmentservice.WithEventStore(eventStore),
	)
	querySvc := enrollmentservice.NewQuery(enrollStore, courseFinder, log)

	validator := middleware.NewHMACValidator(cfg.JWTSigningKey)

	router := chi.NewRouter()
	router.Get("/healthz", healthz(db, redisClient))
	router.Handle("/metrics", promhttp.Handler())
	coursehandler.New(courseSvc, log, validator).Register(router)
	enrollmenthandler.New(enrollSvc, querySvc, log, validator).Register(router)

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting coursehub", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if len(cfg.Kafka.SeedBrokers) > 0 {
		publisher, err := outbox.NewKafkaPublisher(ctx, cfg.Kafka.SeedBrokers, cfg.Kafka.Topic)
		if err != nil {
			log.Error("kafka connection failed", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()

		worker := outbox.NewWorker(eventStore, publisher, cfg.Kafka.PollInterval, log)
		g.Go(func() error {
			return worker.Run(gctx)
		})
	} else {
		log.Warn("KAFKA_SEED_BROKERS not set, enrollment events stay in the outbox")
	}

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
