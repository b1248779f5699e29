package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/MrEthical07/goAccount/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// Service is the set of account flows the handlers call. *goAccount.Engine
// implements it.
type Service interface {
	Register(ctx context.Context, in goAccount.NewUser) (*goAccount.User, error)
	Login(ctx context.Context, email, password string) (*goAccount.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*goAccount.RefreshResult, error)
	Logout(ctx context.Context, refreshToken string) error
	ChangePassword(ctx context.Context, userID, newPassword string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	GetUser(ctx context.Context, userID string) (*goAccount.User, error)
	ValidateAccess(ctx context.Context, accessToken string) (string, error)
}

// Handler holds the HTTP handlers for the account routes.
type Handler struct {
	service    Service
	cookie     goAccount.CookieConfig
	refreshTTL time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewHandler builds handlers over service. Cookie attributes and the refresh
// cookie lifetime come from cfg.
func NewHandler(service Service, cfg goAccount.Config, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		service:    service,
		cookie:     cfg.Cookie,
		refreshTTL: cfg.Refresh.TTL,
		logger:     logger,
		now:        time.Now,
	}
}

// NewRouter mounts h on a chi router with request logging and panic
// recovery.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.ClientIP)
	r.Use(requestLogger(h.logger, h.now))
	r.Use(chimw.Recoverer)

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Get("/refresh", h.Refresh)
		r.Get("/logout", h.Logout)
		r.Post("/forgot-password", h.ForgotPassword)
		r.Patch("/reset-password/{token}", h.ResetPassword)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(h.service))
			r.Get("/me", h.Me)
			r.Patch("/password", h.ChangePassword)
		})
	})

	return r
}
