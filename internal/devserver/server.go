// Package devserver is a local stand-in for the quiz backend. It serves the
// same REST surface the client speaks, backed by SQLite and a sample
// catalog, so the client can be used and tested without the hosted service.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/abhisek/quizcraft/internal/auth"
	"github.com/abhisek/quizcraft/internal/llm"
	"github.com/abhisek/quizcraft/internal/store"
)

const defaultMaxUpload = 20 << 20

// Options configures a Server. Store and Issuer are required.
type Options struct {
	Store       *store.Store
	Issuer      *auth.Issuer
	Generator   Generator // nil uses the built-in generator
	CORSOrigins []string
	Logger      *zap.Logger
	PageSize    int   // drive listing page size
	MaxUpload   int64 // bytes accepted by generate-pdf
}

// Server handles the quiz REST API.
type Server struct {
	store     *store.Store
	issuer    *auth.Issuer
	gen       Generator
	tree      *driveTree
	metrics   *metrics
	logger    *zap.Logger
	origins   []string
	maxUpload int64
	now       func() time.Time
}

// New creates a Server.
func New(opts Options) (*Server, error) {
	if opts.Store == nil {
		return nil, errors.New("devserver: store is required")
	}
	if opts.Issuer == nil {
		return nil, errors.New("devserver: issuer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	gen := opts.Generator
	if gen == nil {
		gen = builtinGenerator{}
	}
	maxUpload := opts.MaxUpload
	if maxUpload <= 0 {
		maxUpload = defaultMaxUpload
	}
	return &Server{
		store:     opts.Store,
		issuer:    opts.Issuer,
		gen:       gen,
		tree:      newSampleTree(opts.PageSize),
		metrics:   newMetrics(),
		logger:    logger.Named("devserver"),
		origins:   opts.CORSOrigins,
		maxUpload: maxUpload,
		now:       time.Now,
	}, nil
}

// NewGenerator returns a Generator backed by p, or the built-in generator
// when p is nil.
func NewGenerator(p llm.Provider, logger *zap.Logger) Generator {
	if p == nil {
		return builtinGenerator{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return newLLMGenerator(p, logger.Named("generator"))
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, s.requestLogger, middleware.Recoverer)
	r.Use(s.metrics.middleware)
	if len(s.origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.origins,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Content-Length", "Retry-After"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Handle("/metrics", s.metrics.handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get("/quiz/drive-contents", s.handleDriveContents)
			r.Post("/quiz/generate-pdf", s.handleGeneratePDF)
			r.Post("/quiz/generate-ncert", s.handleGenerateCatalog)
			r.Get("/quiz/{id}", s.handleGetQuiz)
			r.Post("/test/submit", s.handleSubmit)
			r.Get("/test/results", s.handleListResults)
			r.Get("/test/results/{id}", s.handleGetResult)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		s.fail(w, http.StatusNotFound, "Not found")
	})
	return r
}

// requestLogger logs one line per request, keyed by the request id the
// client sent or chi generated.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", requestID(r)),
		}
		if ww.Status() >= http.StatusInternalServerError {
			s.logger.Warn("request", fields...)
			return
		}
		s.logger.Info("request", fields...)
	})
}

func requestID(r *http.Request) string {
	if id := r.Header.Get("X-Request-ID"); id != "" {
		return id
	}
	return middleware.GetReqID(r.Context())
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", zap.String("addr", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}
