package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/shiv248/kolabpad/pkg/logger"
	"github.com/shiv248/kolabpad/pkg/server"
	"github.com/shiv248/kolabpad/pkg/store"
)

// Config holds all server configuration.
type Config struct {
	Port            string
	SQLiteURI       string
	MaxDocumentSize int
	WSReadTimeout   time.Duration
	WSWriteTimeout  time.Duration
}

func main() {
	logger.Init()

	config := Config{
		Port:            getEnv("PORT", "3030"),
		SQLiteURI:       os.Getenv("SQLITE_URI"),
		MaxDocumentSize: getEnvInt("MAX_DOCUMENT_SIZE_KB", 256) * 1024,
		WSReadTimeout:   time.Duration(getEnvInt("WS_READ_TIMEOUT_MINUTES", 30)) * time.Minute,
		WSWriteTimeout:  time.Duration(getEnvInt("WS_WRITE_TIMEOUT_SECONDS", 10)) * time.Second,
	}

	logger.Info("starting kolabpad server...")
	logger.Info("port: %s", config.Port)

	var s store.Store
	if config.SQLiteURI != "" {
		logger.Info("store: sqlite at %s", config.SQLiteURI)
		sqlStore, err := store.NewSQLiteStore(config.SQLiteURI)
		if err != nil {
			logger.Error("failed to initialize sqlite store: %v", err)
			log.Fatalf("failed to initialize sqlite store: %v", err)
		}
		defer sqlStore.Close()
		s = sqlStore
	} else {
		logger.Info("store: in-memory")
		s = store.NewMemoryStore()
	}

	srv := server.NewServer(s, server.Config{
		MaxDocumentSize: config.MaxDocumentSize,
		WSReadTimeout:   config.WSReadTimeout,
		WSWriteTimeout:  config.WSWriteTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("shutting down...")
		cancel()
		srv.Shutdown(ctx)
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%s", config.Port)
	log.Fatal(srv.ListenAndServe(addr))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
