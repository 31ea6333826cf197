package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/go-playground/validator/v10"
	"github.com/unrolled/secure"

	"kharcha/internal/log"
	"kharcha/internal/services"
	"kharcha/internal/session"
)

const (
	// SessionHeader carries the session id on API requests.
	SessionHeader = "X-Session-ID"
	// SessionCookie carries the session id for browsers.
	SessionCookie = "kharcha_session"

	readyTimeout   = 2 * time.Second
	requestTimeout = 60 * time.Second
)

// CheckFunc reports whether a dependency is usable.
type CheckFunc func(ctx context.Context) error

// ServerConfig holds everything NewServer wires together.
type ServerConfig struct {
	Addr               string
	Service            *services.LedgerService
	Sessions           session.Store
	RateLimitPerMinute int
	Logger             *log.Logger
	// ReadyChecks are run by /readyz, keyed by dependency name.
	ReadyChecks map[string]CheckFunc
	// OnShutdown hooks run before the listener closes.
	OnShutdown    []func()
	IsDevelopment bool
}

type Server struct {
	http.Server
	svc         *services.LedgerService
	sessions    session.Store
	locker      *session.Locker
	validate    *validator.Validate
	logger      *log.Logger
	readyChecks map[string]CheckFunc

	onShutdown   []func()
	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(cfg ServerConfig) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Discard()
	}
	rate := cfg.RateLimitPerMinute
	if rate < 1 {
		rate = 60
	}

	s := &Server{
		svc:         cfg.Service,
		sessions:    cfg.Sessions,
		locker:      session.NewLocker(),
		validate:    validator.New(),
		logger:      logger.WithComponent(log.ComponentHTTP),
		readyChecks: cfg.ReadyChecks,
		onShutdown:  cfg.OnShutdown,
	}

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "strict-origin-when-cross-origin",
		ContentSecurityPolicy: "default-src 'self'",
		SSLProxyHeaders:       map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:         cfg.IsDevelopment,
	})

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(log.Middleware(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(secureMiddleware.Handler)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(api chi.Router) {
		api.Use(httprate.Limit(rate, time.Minute,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				ErrorResponse(http.StatusTooManyRequests, "rate_limited", "Slow down. Try again in a minute.").
					Header("Retry-After", "60").
					Write(w)
			}),
		))
		api.Use(s.withSession)

		api.Post("/parse", s.handleParse)
		api.Post("/confirm", s.handleConfirm)
		api.Post("/cancel", s.handleCancel)
		api.Get("/session", s.handleSession)
		api.Get("/expenses", s.handleListExpenses)
		api.Get("/expenses.csv", s.handleExportCSV)
		api.Delete("/expenses/{id}", s.handleDeleteExpense)
		api.Get("/dashboard", s.handleDashboard)
		api.Post("/roast", s.handleRoast)
	})

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown runs the shutdown hooks once, then closes the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		for _, hook := range s.onShutdown {
			hook()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

type sessionKey struct{}

// withSession resolves the session id from the header or cookie, issuing a
// new one when absent or malformed.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if id == "" {
			if c, err := r.Cookie(SessionCookie); err == nil {
				id = c.Value
			}
		}
		if !session.ValidID(id) {
			id = session.NewID()
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		w.Header().Set(SessionHeader, id)

		ctx := context.WithValue(r.Context(), sessionKey{}, id)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldSessionID, id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}
