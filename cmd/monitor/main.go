package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	_ "github.com/Krimson/vibro-monitor/docs" // Swagger docs
	"github.com/Krimson/vibro-monitor/internal/baseline"
	"github.com/Krimson/vibro-monitor/internal/config"
	"github.com/Krimson/vibro-monitor/internal/health"
	"github.com/Krimson/vibro-monitor/internal/model"
	"github.com/Krimson/vibro-monitor/internal/server"
	"github.com/Krimson/vibro-monitor/internal/session"
	"github.com/Krimson/vibro-monitor/internal/stream"
	ws "github.com/Krimson/vibro-monitor/internal/websocket"
)

// @title Vibro Monitor API
// @version 1.0
// @description API мониторинга вибродиагностики строительных конструкций
// @host localhost:8080
// @BasePath /
// @schemes http

func main() {
	log.Printf("[INFO] Starting vibro-monitor server...")

	cfg := config.Load()
	log.Printf("[INFO] Configuration loaded: http_port=%s grpc_port=%s window=%.1fs rate=%.1fHz sensors=%d",
		cfg.HTTPPort, cfg.GRPCPort, cfg.WindowDurationSec, cfg.SampleRateHz, cfg.ExpectedSensors)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis: без него сервис работает, но без кэша горячего состояния
	var sessionCache session.CacheStore
	var baselineCache baseline.CacheStore
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("[WARN] Redis unavailable, running without cache: %v", err)
	} else {
		log.Printf("[INFO] Connected to Redis at %s", cfg.RedisAddr)
		sessionCache = session.NewRedisStore(redisClient, cfg.ResultTTL)
		baselineCache = baseline.NewRedisStore(redisClient)
	}
	defer redisClient.Close()

	// PostgreSQL: без него эталоны и сессии живут только в памяти
	var sessionRepo session.Repository
	var baselineRepo baseline.Repository
	db, err := sql.Open("postgres", cfg.PostgresDSN)
	if err == nil {
		err = db.PingContext(ctx)
	}
	if err != nil {
		log.Printf("[WARN] PostgreSQL unavailable, running in-memory only: %v", err)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
		defer db.Close()

		sessionPg := session.NewPostgresRepository(db)
		baselinePg := baseline.NewPostgresRepository(db)
		if err := sessionPg.InitSchema(ctx); err != nil {
			log.Fatalf("[FATAL] Failed to init sessions schema: %v", err)
		}
		if err := baselinePg.InitSchema(ctx); err != nil {
			log.Fatalf("[FATAL] Failed to init baselines schema: %v", err)
		}
		sessionRepo = sessionPg
		baselineRepo = baselinePg
		log.Printf("[INFO] Connected to PostgreSQL")
	}

	// Модель: без нее скоринг невозможен
	models, err := model.NewManager(cfg.ModelPath)
	if err != nil {
		log.Fatalf("[FATAL] Failed to load model from %s: %v", cfg.ModelPath, err)
	}
	log.Printf("[INFO] Model loaded: version=%s", models.Current().Version)

	baselines := baseline.NewManager(cfg, baselineCache, baselineRepo)
	if baselineRepo != nil {
		if err := baselines.LoadPersisted(ctx); err != nil {
			log.Printf("[WARN] Failed to load persisted baselines: %v", err)
		}
	}

	hub := ws.NewHub()
	hub.SetWelcome(func(structureID string) *stream.Event {
		target := structureID
		if target == "" {
			target = "default"
		}
		var activeID string
		if b := baselines.Active(target); b != nil {
			activeID = b.ID
		}
		return stream.NewParametersEvent(structureID, time.Now().UnixMilli(), &stream.Parameters{
			WindowDurationSec: cfg.WindowDurationSec,
			SampleRateHz:      cfg.SampleRateHz,
			AnomalyThreshold:  models.Current().Threshold,
			ActiveBaselineID:  activeID,
		})
	})
	go hub.Run()

	pipeline := session.NewPipeline(cfg, models, baselines)
	sessions := session.NewManager(cfg, pipeline, sessionCache, sessionRepo, hub)
	go sessions.RunSweeper(ctx)

	ingest := ws.NewIngestHandler(cfg, sessions)
	httpHandler := server.NewHTTPHandler(sessions, baselines, hub)

	router := mux.NewRouter()
	httpHandler.RegisterRoutes(router)
	router.HandleFunc("/ws/ingest", ingest.HandleIngest)
	router.HandleFunc("/ws/subscribe", hub.HandleSubscribe)
	router.Handle("/metrics", promhttp.Handler())
	router.PathPrefix("/swagger/").Handler(httpSwagger.WrapHandler)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.HTTPPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewHealthServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	grpcAddress := fmt.Sprintf(":%s", cfg.GRPCPort)
	listener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		log.Fatalf("[FATAL] Failed to listen on %s: %v", grpcAddress, err)
	}

	healthServer.SetServingStatus("")
	healthServer.SetServingStatus("vibro.v1.Monitor")

	serverErrChan := make(chan error, 2)
	go func() {
		log.Printf("[INFO] HTTP server listening on :%s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()
	go func() {
		log.Printf("[INFO] gRPC health server listening on %s", grpcAddress)
		if err := grpcServer.Serve(listener); err != nil {
			serverErrChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrChan:
		log.Printf("[ERROR] Server error: %v", err)

	case sig := <-shutdownChan:
		log.Printf("[INFO] Received signal %v, starting graceful shutdown...", sig)

		healthServer.SetNotServingStatus("")
		healthServer.SetNotServingStatus("vibro.v1.Monitor")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Printf("[WARN] HTTP shutdown error: %v", err)
		}
		grpcServer.GracefulStop()
		cancel()

		log.Printf("[INFO] Graceful shutdown completed")
	}

	log.Printf("[INFO] Server stopped")
}
