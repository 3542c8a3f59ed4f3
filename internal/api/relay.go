package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/npezzotti/go-chatrelay/internal/config"
	"github.com/npezzotti/go-chatrelay/internal/server"
	"github.com/npezzotti/go-chatrelay/internal/store"
)

type RelayApp struct {
	log            *log.Logger
	store          store.MessageStore
	srv            *http.Server
	cs             *server.ChatServer
	allowedOrigins []string
	historyLimit   int
}

func NewRelayApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer, st store.MessageStore, cfg *config.Config) *RelayApp {
	s := &RelayApp{
		log:            logger,
		store:          st,
		cs:             cs,
		allowedOrigins: cfg.AllowedOrigins,
		historyLimit:   cfg.HistoryCapacity,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("GET /api/presence", s.getPresence)
	mux.HandleFunc("GET /api/messages", s.getMessages)
	mux.HandleFunc("GET /ws", s.serveWs)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
	)(mux)

	h = handlers.CombinedLoggingHandler(accessLog{logger}, h)
	h = s.errorHandler(h)

	s.srv = &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	return s
}

// accessLog sends access log lines through the app logger.
type accessLog struct {
	l *log.Logger
}

func (a accessLog) Write(p []byte) (int, error) {
	a.l.Print(string(p))
	return len(p), nil
}

func (s *RelayApp) Handler() http.Handler {
	return s.srv.Handler
}

func (s *RelayApp) Start() error {
	s.log.Printf("starting server on %s\n", s.srv.Addr)
	return s.srv.ListenAndServe()
}

func (s *RelayApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
