package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/digkill/ContentPlanner/internal/apperr"
	"github.com/digkill/ContentPlanner/internal/auth"
	"github.com/digkill/ContentPlanner/internal/service"
	"github.com/digkill/ContentPlanner/pkg/errtrack"
)

// Services groups the procedure implementations the server dispatches to.
type Services struct {
	Users         *service.UserService
	Payments      *service.PaymentService
	Subscriptions *service.SubscriptionService
	Plans         *service.PlanService
	Content       *service.ContentService
	Templates     *service.TemplateService
}

type Options struct {
	Addr           string
	RequestTimeout time.Duration
	CookieSecure   bool
}

type Server struct {
	opts     Options
	log      *slog.Logger
	sessions *auth.Sessions
	revoker  auth.Revoker
	svc      Services
	router   *chi.Mux
}

func NewServer(opts Options, log *slog.Logger, sessions *auth.Sessions, revoker auth.Revoker, svc Services) *Server {
	if revoker == nil {
		revoker = auth.NoopRevoker{}
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	s := &Server{
		opts:     opts,
		log:      log,
		sessions: sessions,
		revoker:  revoker,
		svc:      svc,
		router:   r,
	}

	r.Get("/healthz", s.handleHealth)
	r.Route("/rpc", func(rpc chi.Router) {
		rpc.Use(s.sessionMiddleware)

		rpc.Get("/auth.me", s.handleMe)
		rpc.Post("/auth.logout", s.handleLogout)

		rpc.Get("/plans.list", s.handleListPlans)
		rpc.Get("/payment.bankDetails", s.handleBankDetails)
		rpc.Post("/payment.requestUpgrade", s.handleRequestUpgrade)
		rpc.Get("/payment.getRequests", s.handleListOwnRequests)
		rpc.Post("/payment.updateRequest", s.handleSubmitProof)
		rpc.Post("/payment.uploadProof", s.handleUploadProof)
		rpc.Post("/payment.adminApprove", s.handleAdminDecide)
		rpc.Get("/payment.adminGetPending", s.handleListPending)

		rpc.Get("/subscription.current", s.handleCurrentSubscription)
		rpc.Post("/subscription.update", s.handleUpdateSubscription)

		rpc.Get("/content.list", s.handleListPosts)
		rpc.Post("/content.create", s.handleCreatePost)
		rpc.Post("/content.update", s.handleUpdatePost)
		rpc.Post("/content.delete", s.handleDeletePost)

		rpc.Get("/templates.list", s.handleListTemplates)
		rpc.Post("/templates.create", s.handleCreateTemplate)
		rpc.Post("/templates.delete", s.handleDeleteTemplate)
	})
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.opts.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error("api shutdown error", "err", err)
		}
	}()

	s.log.Info("api listening", "addr", s.opts.Addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api listen: %w", err)
	}
	return nil
}

// sessionMiddleware resolves the caller from the session cookie or a bearer
// token. Missing, invalid or revoked tokens leave the request anonymous.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := sessionToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()

		claims, err := s.sessions.Verify(token)
		if err != nil {
			s.log.Debug("ignore session", "err", err)
			next.ServeHTTP(w, r)
			return
		}
		revoked, err := s.revoker.Revoked(ctx, claims.Id)
		if err != nil {
			s.log.Warn("session revocation check failed", "err", err)
			next.ServeHTTP(w, r)
			return
		}
		if revoked {
			next.ServeHTTP(w, r)
			return
		}

		user, err := s.svc.Users.Authenticate(ctx, service.Identity{
			OpenID:      claims.OpenID,
			Name:        claims.Name,
			Email:       claims.Email,
			LoginMethod: claims.LoginMethod,
		})
		if apperr.Is(err, apperr.Unavailable) {
			// The token is valid; keep its claims so logout still works.
			s.log.Warn("session user unavailable", "err", err)
			next.ServeHTTP(w, r.WithContext(auth.WithClaims(ctx, claims)))
			return
		}
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		ctx = auth.WithClaims(auth.WithUser(ctx, user), claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionToken(r *http.Request) string {
	if cookie, err := r.Cookie(auth.CookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return ""
}

type errorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorBody `json:"error"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	if unresolvedSession(r.Context()) && apperr.Is(err, apperr.Unauthorized) {
		err = apperr.Wrap(apperr.Unavailable, err, "database not available")
	}
	kind := apperr.KindOf(err)
	status := statusFor(kind, auth.UserFrom(r.Context()) != nil)

	switch kind {
	case "":
		s.log.Error("procedure failed", "path", r.URL.Path, "request_id", middleware.GetReqID(r.Context()), "err", err)
		errtrack.CaptureWithExtra(err, "path", r.URL.Path)
	case apperr.Unavailable:
		s.log.Warn("procedure unavailable", "path", r.URL.Path, "err", err)
	default:
		s.log.Debug("procedure rejected", "path", r.URL.Path, "kind", kind, "err", err)
	}

	body := errorBody{Kind: string(kind), Message: apperr.Message(err)}
	if kind == "" {
		body.Kind = "Internal"
	}
	s.writeJSON(w, status, errorResponse{Error: body})
}

// unresolvedSession reports a verified session whose user could not be loaded.
func unresolvedSession(ctx context.Context) bool {
	return auth.UserFrom(ctx) == nil && auth.ClaimsFrom(ctx) != nil
}

// statusFor maps an error kind to an HTTP status. Unauthorized becomes 403
// when a caller was resolved but lacks the role.
func statusFor(kind apperr.Kind, authenticated bool) int {
	switch kind {
	case apperr.Validation:
		return http.StatusBadRequest
	case apperr.Unauthorized:
		if authenticated {
			return http.StatusForbidden
		}
		return http.StatusUnauthorized
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.InvalidState:
		return http.StatusConflict
	case apperr.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respond writes v, or err through writeError when it is set.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.Validation, "request body is required")
		}
		return apperr.Wrap(apperr.Validation, err, "invalid json")
	}
	return nil
}

type successResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	if unresolvedSession(r.Context()) {
		s.writeError(w, r, apperr.New(apperr.Unavailable, "database not available"))
		return
	}
	s.writeJSON(w, http.StatusOK, auth.UserFrom(r.Context()))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if claims := auth.ClaimsFrom(ctx); claims != nil {
		until := time.Unix(claims.ExpiresAt, 0)
		if err := s.revoker.Revoke(ctx, claims.Id, until); err != nil {
			s.log.Warn("revoke session", "err", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.opts.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	s.writeJSON(w, http.StatusOK, successResponse{Success: true})
}
