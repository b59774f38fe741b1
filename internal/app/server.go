package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/haleth-io/vectorpipe/internal/api/handlers"
	appMiddleware "github.com/haleth-io/vectorpipe/internal/api/middlewares"
	"github.com/haleth-io/vectorpipe/internal/config"
	"github.com/haleth-io/vectorpipe/internal/convert"
	"github.com/haleth-io/vectorpipe/internal/core"
	"github.com/haleth-io/vectorpipe/internal/dedupe"
	"github.com/haleth-io/vectorpipe/internal/jobs"
	"github.com/haleth-io/vectorpipe/internal/rag"
	"github.com/haleth-io/vectorpipe/internal/search"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, db core.DbClient, obj core.ObjectClient, converter *convert.Service, validator *dedupe.Validator, queue *jobs.Queue, searcher *search.Service, builder *rag.Builder, llm core.LLMProvider) *Server {
	docHandler := handlers.NewDocumentHandler(db, obj, converter, validator, queue, cfg)
	searchHandler := handlers.NewSearchHandler(searcher)
	chatHandler := handlers.NewChatHandler(builder, llm)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Minute))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8888"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api", func(api chi.Router) {
		api.Group(func(protected chi.Router) {
			protected.Use(appMiddleware.JWTMiddleware)
			protected.Post("/documents/upload", docHandler.UploadDocument)
			protected.Get("/documents", docHandler.GetDocuments)
			protected.Get("/documents/{document_id}", docHandler.GetDocument)
			protected.Get("/documents/{document_id}/status", docHandler.GetJobStatus)
			protected.Post("/jobs/retry", docHandler.RetryFailed)
			protected.Post("/search", searchHandler.Search)
			protected.Post("/chat/query", chatHandler.Query)
		})
	})

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	return &Server{httpServer: httpSrv}
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
