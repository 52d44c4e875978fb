// =============================================================================
// Attendance Dashboard - HTTP Server
// =============================================================================
//
// The server exposes one dashboard session over HTTP:
//
//   /            rendered HTML report of the full dashboard
//   /api/...     JSON API for every dashboard operation, plus export
//                downloads and the XSD of the XML export
//   /ws          websocket stream of store change events
//   /metrics     Prometheus gauges for the KPIs
//
// Every mutation made through the API (or by any other holder of the same
// session) is pushed to websocket clients and reflected in the gauges.
//
// =============================================================================

package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"github.com/ginjaninja78/attendance-dashboard/internal/dashboard"
	"github.com/ginjaninja78/attendance-dashboard/internal/exporter"
	"github.com/ginjaninja78/attendance-dashboard/internal/infrastructure"
	"github.com/ginjaninja78/attendance-dashboard/internal/store"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second

	// DefaultMaxImportBytes caps the body of POST /api/import.
	DefaultMaxImportBytes = 10 << 20
)

// Options configures the server.
type Options struct {
	// Address is the listen address, e.g. 127.0.0.1:8080.
	Address string

	// Export carries the PDF settings used by the export endpoints.
	Export exporter.Options

	// MaxImportBytes caps an import body. Zero means DefaultMaxImportBytes.
	MaxImportBytes int64

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Server serves one dashboard session.
type Server struct {
	dash    *dashboard.Dashboard
	hub     *Hub
	metrics *Metrics
	router  chi.Router
	opts    Options
	logger  *slog.Logger

	unsubscribe func()
}

// New builds the router, starts the websocket hub and subscribes to the
// session's change events. Call Close to release them.
func New(dash *dashboard.Dashboard, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "server"))

	s := &Server{
		dash:   dash,
		hub:    NewHub(logger),
		opts:   opts,
		logger: logger,
	}
	s.metrics = NewMetrics(s.hub.ClientCount)
	s.metrics.Update(dash.Records())

	go s.hub.Run()
	s.unsubscribe = dash.Subscribe(s.onChange)
	s.router = s.routes()

	return s
}

// onChange runs after every store mutation.
func (s *Server) onChange(ev store.ChangeEvent) {
	s.metrics.Observe(ev)
	s.metrics.Update(s.dash.Records())
	s.hub.BroadcastChange(ev)
}

func (s *Server) maxImportBytes() int64 {
	if s.opts.MaxImportBytes > 0 {
		return s.opts.MaxImportBytes
	}
	return DefaultMaxImportBytes
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Hub returns the websocket hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Close unsubscribes from the session and stops the hub. The session itself
// stays open.
func (s *Server) Close() {
	s.unsubscribe()
	s.hub.Stop()
	s.hub.Wait()
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Address,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", slog.String("address", s.opts.Address))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("HTTP server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	// Websocket connections are hijacked; the hub closes them.
	s.hub.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// =============================================================================
// ROUTES
// =============================================================================

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestContext)
	r.Use(middleware.Recoverer)

	// Hijacked connections must not be wrapped by the access logger.
	r.Get("/ws", s.hub.ServeWS)
	r.Handle("/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(accessLog(s.logger))

		r.Get("/", s.handleReport)
		r.Get("/healthz", s.handleHealth)

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))

			r.Get("/dashboard", s.handleDashboard)
			r.Get("/records", s.handleListRecords)
			r.Post("/records", s.handleAddRecord)
			r.Delete("/records", s.handleRemoveRecord)
			r.Get("/records/detail", s.handleDetail)
			r.Post("/import", s.handleImport)
			r.Post("/sample", s.handleSample)
			r.Post("/sort/{field}", s.handleSort)
			r.Get("/kpis", s.handleKPIs)
			r.Get("/charts", s.handleCharts)
			r.Get("/departments", s.handleDepartments)
			r.Get("/export/schema.xsd", s.handleSchema)
			r.Get("/export/{format}", s.handleExport)
			r.Delete("/storage", s.handleClear)
		})
	})

	return r
}

// requestContext copies chi's request id into the context key the logger
// reads.
func requestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := middleware.GetReqID(r.Context())
		ctx := infrastructure.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// accessLog logs one line per request.
func accessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.InfoContext(r.Context(), "HTTP request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Int("bytes", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)))
		})
	}
}
