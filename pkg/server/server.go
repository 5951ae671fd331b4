package server

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yleoer/trackid/pkg/database"
	"github.com/yleoer/trackid/pkg/enrich"
)

// Config holds server configuration
type Config struct {
	Addr          string
	MaxUploadSize int64
}

// Server is the HTTP front of the orchestrator
type Server struct {
	config  Config
	router  *chi.Mux
	enrich  *enrich.Orchestrator
	history database.HistoryStore
	logger  *log.Logger
}

// New creates a new server. history may be nil.
func New(cfg Config, o *enrich.Orchestrator, history database.HistoryStore, logger *log.Logger) *Server {
	s := &Server{
		config:  cfg,
		router:  chi.NewRouter(),
		enrich:  o,
		history: history,
		logger:  logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/history", s.handleHistory)

	r.Post("/predict/text", s.handleText)
	r.Post("/predict/image", s.handleImage)
	r.Post("/predict_image", s.handleImage)
	r.Post("/predict/audio", s.handleAudio)
	r.Post("/predict_audio", s.handleAudio)
}

// ServeHTTP lets tests drive the router directly
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Run starts the server and blocks until SIGINT/SIGTERM
func (s *Server) Run() error {
	srv := &http.Server{
		Addr:         s.config.Addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		<-sigCh

		s.logger.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			s.logger.Printf("ERROR: Shutdown error: %v", err)
		}
		close(done)
	}()

	s.logger.Printf("Server listening on %s", s.config.Addr)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}

	<-done
	return nil
}
