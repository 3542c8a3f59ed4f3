package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/npezzotti/go-chatrelay/internal/api"
	"github.com/npezzotti/go-chatrelay/internal/config"
	"github.com/npezzotti/go-chatrelay/internal/server"
	"github.com/npezzotti/go-chatrelay/internal/stats"
	"github.com/npezzotti/go-chatrelay/internal/store"
)

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr            string
	allowedOrigins  stringSliceFlag
	historyCapacity int
	backfillLimit   int
	typingWindow    time.Duration
	rateBurst       int
	rateInterval    time.Duration
)

func envString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func main() {
	logger := log.New(os.Stderr, "[go-chatrelay] ", log.LstdFlags)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Fatal("load .env:", err)
	}

	flag.StringVar(&addr, "addr", envString("RELAY_ADDR", "localhost:8000"), "server address")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.IntVar(&historyCapacity, "history-capacity", envInt("RELAY_HISTORY_CAPACITY", store.DefaultCapacity), "messages retained per room")
	flag.IntVar(&backfillLimit, "backfill-limit", envInt("RELAY_BACKFILL_LIMIT", 50), "messages replayed on join")
	flag.DurationVar(&typingWindow, "typing-window", envDuration("RELAY_TYPING_WINDOW", 3*time.Second), "how long a typing signal stays active")
	flag.IntVar(&rateBurst, "rate-burst", envInt("RELAY_RATE_BURST", 10), "client messages allowed per interval")
	flag.DurationVar(&rateInterval, "rate-interval", envDuration("RELAY_RATE_INTERVAL", time.Second), "client rate limit interval")
	flag.Parse()

	if len(allowedOrigins) == 0 {
		if v := envString("RELAY_ALLOWED_ORIGINS", ""); v != "" {
			allowedOrigins.Set(v)
		}
	}

	cfg, err := config.NewConfig(addr, allowedOrigins, historyCapacity, backfillLimit, typingWindow,
		config.RateLimit{Burst: rateBurst, Interval: rateInterval})
	if err != nil {
		logger.Fatal("config:", err)
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)
	messageStore := store.NewMemoryStore(cfg.HistoryCapacity)

	chatServer, err := server.NewChatServer(logger, cfg, messageStore, statsUpdater)
	if err != nil {
		logger.Fatal("new chat server:", err)
	}

	srv := api.NewRelayApp(mux, logger, chatServer, messageStore, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go chatServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down chat server...")
	if err := chatServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("chat server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
