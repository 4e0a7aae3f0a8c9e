package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/GoRAG/internal/adapter/utils"
	"github.com/akolanti/GoRAG/internal/config"
	"github.com/akolanti/GoRAG/internal/handlers"
	"github.com/akolanti/GoRAG/internal/middleware"
	"github.com/akolanti/GoRAG/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger = logger_i.NewLogger("Server")
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// RegisterRoutes mounts every API route on r.
func RegisterRoutes(r chi.Router, h *handlers.RAGHandler) {
	r.Get("/health", middleware.Public(handlers.GetHandler))
	r.Get("/files/{id}", middleware.Wrap(h.ServeFile))

	r.Route("/api", func(api chi.Router) {
		api.Post("/ask", middleware.Wrap(h.Ask))

		api.Get("/sessions/{id}/history", middleware.Wrap(h.SessionHistory))
		api.Delete("/sessions/{id}", middleware.Wrap(h.ClearSession))

		api.Get("/documents", middleware.Wrap(h.ListDocuments))
		api.Delete("/documents", middleware.Wrap(h.ClearDocuments))
		api.Post("/documents/upload", middleware.Wrap(h.UploadDocument))
		api.Post("/documents/url", middleware.Wrap(h.IngestURL))
		api.Get("/documents/stats", middleware.Wrap(h.DocumentStats))
		api.Get("/documents/{id}", middleware.Wrap(h.GetDocument))
		api.Delete("/documents/{id}", middleware.Wrap(h.DeleteDocument))

		api.Post("/ingest", middleware.Wrap(h.PostIngestHandler))
		api.Get("/status/{id}", middleware.Wrap(handlers.GetStatusHandler))
	})
}

// CreateServer blocks serving cfg.ListenAddr until ShutDownHandler stops it.
func CreateServer(cfg config.ServerConfig, h *handlers.RAGHandler) {
	middleware.Configure(cfg)

	r := utils.GetRouter()
	RegisterRoutes(r.Router, h)

	server = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      r.Router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", cfg.ListenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", cfg.ListenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully shut down")
	case <-ctx.Done():
		_logger.Error("Force shut down")
		os.Exit(1)
	}
}
