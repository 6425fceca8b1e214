package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"dad-joke-hotline/internal/config"
	"dad-joke-hotline/internal/db"
	"dad-joke-hotline/internal/joke"
	"dad-joke-hotline/internal/messaging"
	"dad-joke-hotline/internal/signature"
	"dad-joke-hotline/internal/store"
)

// JokeProvider is satisfied by *joke.Provider.
type JokeProvider interface {
	Joke(ctx context.Context) joke.Result
}

type Server struct {
	router     *chi.Mux
	cfg        config.Config
	jokes      JokeProvider
	sms        messaging.Sender
	smsErr     error
	smsSet     bool
	deliveries store.DeliveryLog
	verifier   *signature.Verifier
	database   *db.DB
}

type Option func(*Server)

func WithJokeProvider(p JokeProvider) Option {
	return func(s *Server) { s.jokes = p }
}

// WithSender replaces the configured SMS backend. A nil sender makes the
// inbound endpoint answer 500 as if messaging were not configured.
func WithSender(sender messaging.Sender) Option {
	return func(s *Server) {
		s.sms = sender
		s.smsSet = true
		if sender == nil {
			s.smsErr = messaging.ErrNotConfigured
		}
	}
}

func WithDeliveryLog(l store.DeliveryLog) Option {
	return func(s *Server) { s.deliveries = l }
}

func NewServer(cfg config.Config, opts ...Option) (*Server, error) {
	s := &Server{
		router:   chi.NewRouter(),
		cfg:      cfg,
		verifier: signature.NewVerifier(cfg.VonageSignatureSecret),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.jokes == nil {
		prompt, err := joke.LoadPrompt(cfg.JokePromptFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load joke prompt: %w", err)
		}
		client := joke.NewOpenRouterClient(cfg.OpenRouterAPIKey, cfg.OpenRouterBaseURL, cfg.OpenRouterReferer, cfg.OpenRouterTitle)
		s.jokes = joke.NewProvider(client, prompt, cfg.JokeModel)
	}

	if !s.smsSet {
		s.sms, s.smsErr = messaging.New(cfg)
		if s.smsErr != nil {
			log.Printf("warning: %v; inbound SMS will fail", s.smsErr)
		}
	}

	if s.deliveries == nil {
		if cfg.DatabaseURL != "" {
			database, err := db.New(cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("failed to initialize database: %w", err)
			}
			log.Println("database connection established")
			if err := database.RunMigrations(context.Background(), cfg.MigrationsDir); err != nil {
				database.Close()
				return nil, fmt.Errorf("failed to run migrations: %w", err)
			}
			s.database = database
			s.deliveries = store.NewDatabaseDeliveryLog(database)
		} else {
			log.Println("DB_URL not provided, keeping SMS deliveries in memory")
			s.deliveries = store.NewMemoryDeliveryLog(500)
		}
	}

	s.routes()
	return s, nil
}

func (s *Server) routes() {
	r := s.router
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.StripSlashes)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{s.cfg.AllowedOrigin},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Timestamp"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", s.handleHealthz)

		// Signed provider webhooks.
		r.Group(func(r chi.Router) {
			r.Use(s.verifier.Middleware)
			r.Get("/answer", s.handleAnswer)
			r.Post("/event", s.handleEvent)
			r.Get("/fallback", s.handleFallback)
			if s.cfg.VerifyInboundSMS {
				r.Post("/inbound", s.handleInbound)
			}
		})

		if !s.cfg.VerifyInboundSMS {
			r.Post("/inbound", s.handleInbound)
		}
	})
}

func (s *Server) Router() http.Handler { return s.router }

// Close releases the database connection, if any.
func (s *Server) Close() error {
	if s.database != nil {
		return s.database.Close()
	}
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
