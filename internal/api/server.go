// Package api exposes extraction, preprocessing preview, dataset download
// and run history over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/sells-group/dataset-cli/internal/model"
	"github.com/sells-group/dataset-cli/internal/pipeline"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 10 << 20

// defaultRecordCount is used when a request omits record_count.
const defaultRecordCount = 10

// Extractor runs one extraction request. *pipeline.Orchestrator satisfies it.
type Extractor interface {
	Run(ctx context.Context, req *model.ExtractionRequest) (*pipeline.Result, error)
}

// RunReader reads the run log. store.Store satisfies it.
type RunReader interface {
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, limit int) ([]model.Run, error)
}

// Server holds the HTTP handlers' dependencies.
type Server struct {
	extractor Extractor
	runs      RunReader
}

// NewServer creates a Server. runs may be nil when no store is configured.
func NewServer(extractor Extractor, runs RunReader) *Server {
	return &Server{extractor: extractor, runs: runs}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))
	r.Use(middleware.RequestSize(maxBodyBytes))

	r.Get("/health", s.health)
	r.Post("/extract_structured", s.extractStructured)
	r.Post("/preview_preprocessed", s.previewPreprocessed)
	r.Post("/download_dataset", s.downloadDataset)
	r.Route("/runs", func(r chi.Router) {
		r.Get("/", s.listRuns)
		r.Get("/{id}", s.getRun)
	})
	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// accessLog writes one zap line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			zap.L().Info("api: request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}
