package http

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/bnema/clipforge/internal/adapter/http/middleware"
	"github.com/bnema/clipforge/internal/adapter/http/ratelimit"
	"github.com/bnema/clipforge/internal/infrastructure/logger"
	"github.com/bnema/clipforge/internal/port"
)

type Options struct {
	// StartRateLimit is the number of jobs one client may start per minute.
	// Zero disables the limit.
	StartRateLimit int
	// BehindProxy trusts X-Forwarded-For and X-Real-IP for the client address.
	BehindProxy bool
}

type Server struct {
	router      chi.Router
	handlers    *Handlers
	rateLimiter *ratelimit.StartRateLimiter
	behindProxy bool
}

func NewServer(jobs JobService, checker port.ToolChecker, opts Options) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		handlers:    NewHandlers(jobs, checker),
		behindProxy: opts.BehindProxy,
	}
	if opts.StartRateLimit > 0 {
		s.rateLimiter = ratelimit.NewStartRateLimiter(opts.StartRateLimit, time.Minute)
	}

	s.registerRoutes()

	return s
}

func (s *Server) registerRoutes() {
	r := s.router
	if s.behindProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.AccessLog)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/check", s.handlers.Check())
		r.With(s.limitStarts).Post("/start", s.handlers.Start())
		r.Get("/status/{taskId}", s.handlers.Status())
		r.Get("/download/{taskId}", s.handlers.Download())
		r.Get("/jobs", s.handlers.Jobs())
	})
}

// limitStarts rejects start requests over the per-client budget with 429.
func (s *Server) limitStarts(next http.Handler) http.Handler {
	if s.rateLimiter == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clientID := clientAddr(r)
		allowed, retryAfter := s.rateLimiter.Allow(clientID)
		if !allowed {
			logger.Warn.Printf("start rate limit hit for %s", logger.SanitizeForLog(clientID))
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Max(1, math.Ceil(retryAfter.Seconds())))))
			writeError(w, http.StatusTooManyRequests, "Too many requests, try again later")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientAddr strips the port from RemoteAddr. Behind a proxy chi's RealIP
// middleware has already replaced RemoteAddr with the forwarded address.
func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
