// Package api exposes the lending engine over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"library-lending/library"
)

const (
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 15 * time.Second
	writeTimeout      = 15 * time.Second
	idleTimeout       = time.Minute
)

// Options configures the HTTP surface.
type Options struct {
	Addr            string
	RateLimitRPS    float64
	RateLimitBurst  int
	ShutdownTimeout time.Duration
}

// Server wraps the chi router and the http.Server.
type Server struct {
	http    *http.Server
	limiter *rateLimiter
	opts    Options
	log     *slog.Logger
}

// NewServer wires every route over lm.
func NewServer(lm *library.LibraryManager, opts Options, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	limiter := newRateLimiter(opts.RateLimitRPS, opts.RateLimitBurst)
	return &Server{
		http: &http.Server{
			Addr:              opts.Addr,
			Handler:           newRouter(lm, limiter, log),
			ReadHeaderTimeout: readHeaderTimeout,
			ReadTimeout:       readTimeout,
			WriteTimeout:      writeTimeout,
			IdleTimeout:       idleTimeout,
		},
		limiter: limiter,
		opts:    opts,
		log:     log,
	}
}

// Handler returns the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

func newRouter(lm *library.LibraryManager, limiter *rateLimiter, log *slog.Logger) http.Handler {
	h := &handler{lm: lm}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(log))
	r.Use(recoverPanic)
	r.Use(limiter.middleware)
	r.Use(chimw.CleanPath)

	r.Get("/health", h.health)

	r.Post("/users", h.signUp)
	r.Delete("/users/{userName}", h.deleteUser)
	r.Get("/users/{userName}/books", h.myBooks)
	r.Get("/users/{userName}/statistics", h.statistics)
	r.Post("/sessions", h.signIn)

	r.Route("/books", func(r chi.Router) {
		r.Get("/", h.listBooks)
		r.Post("/", h.addBook)
		r.Get("/search", h.searchBooks)
		r.Route("/{bookID}", func(r chi.Router) {
			r.Get("/", h.getBook)
			r.Delete("/", h.deleteBook)
			r.Post("/borrow", h.circulate(borrow, http.StatusCreated))
			r.Post("/return", h.circulate(giveBack, http.StatusOK))
			r.Post("/read", h.circulate(markRead, http.StatusCreated))
			r.Post("/favorite", h.circulate(favorite, http.StatusCreated))
		})
	})

	r.Route("/reports", func(r chi.Router) {
		r.Get("/most-read-books", h.mostReadBooks)
		r.Get("/most-read-genres", h.mostReadGenres)
		r.Get("/most-read-authors", h.mostReadAuthors)
		r.Get("/recently-added", h.recentlyAdded)
	})

	return r
}

// Run serves until ctx is cancelled, then drains in-flight requests for at
// most ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	go s.limiter.janitor(ctx)

	serveErr := make(chan error, 1)
	go func() {
		s.log.Info("server starting", slog.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down server", slog.Duration("timeout", s.opts.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.log.Info("server stopped cleanly")
	return nil
}
