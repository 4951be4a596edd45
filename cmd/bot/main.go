package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/branchwatch/social-listening-bot/internal/config"
	"github.com/branchwatch/social-listening-bot/internal/models"
	"github.com/branchwatch/social-listening-bot/internal/notifications"
	"github.com/branchwatch/social-listening-bot/internal/pipeline"
	"github.com/branchwatch/social-listening-bot/internal/scheduler"
	"github.com/branchwatch/social-listening-bot/internal/sentiment"
	"github.com/branchwatch/social-listening-bot/internal/sources"
	"github.com/branchwatch/social-listening-bot/internal/storage"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	serve := flag.Bool("serve", false, "run as a scheduled service with an HTTP surface instead of a single run")
	flag.Parse()

	// Load environment variables from .env file if it exists
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Infof("Starting social listening bot for brand %q", cfg.BrandName)

	writer, err := storage.NewSQLiteWriter(cfg.SinkPath, cfg.SinkDedupAcrossRuns)
	if err != nil {
		logrus.Fatalf("Failed to initialize sink: %v", err)
	}
	defer writer.Close()

	classifier := sentiment.NewClassifier(cfg.SentimentEndpoint, cfg.SentimentAPIKey, cfg.SentimentBatchSize)
	defer classifier.Close()

	notificationService := notifications.NewService(cfg)

	collectors := []sources.Collector{
		sources.NewTwitterCollector(cfg.TwitterBearerToken, cfg.TwitterQuery, cfg.TwitterMaxResults),
		sources.NewFacebookCollector(cfg.FacebookPage),
		sources.NewGooglePlayCollector(cfg.GooglePlayAppID),
	}

	pipelineService := pipeline.NewService(cfg, collectors, classifier, writer, notificationService)

	if !*serve {
		report := pipelineService.Run(context.Background())
		if report.Outcome == models.OutcomeFailure {
			logrus.Error("Run produced no usable data from any source")
			os.Exit(1)
		}
		return
	}

	runServer(cfg, pipelineService)
}

func runServer(cfg *config.Config, pipelineService *pipeline.Service) {
	schedulerService := scheduler.NewService(cfg, pipelineService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(pipelineService)).Methods("GET")
	router.HandleFunc("/trigger", triggerHandler(pipelineService)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(pipelineService *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(pipelineService.GetMetrics()))
	}
}

func triggerHandler(pipelineService *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			report := pipelineService.Run(context.Background())
			if report.Outcome == models.OutcomeFailure {
				logrus.Error("Manually triggered run produced no usable data")
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Run triggered successfully"}`))
	}
}
