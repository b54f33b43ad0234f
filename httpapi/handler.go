// Package httpapi exposes domain verification checks over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/synqronlabs/domainauth"
	"github.com/synqronlabs/domainauth/lock"
)

// OwnerHeader carries the caller's owner id when no OwnerFunc is set.
const OwnerHeader = "X-Owner-ID"

// Service defines the verification operations the handler needs.
// *domainauth.Service implements it.
type Service interface {
	Authorize(ctx context.Context, ownerID, domainID string) error
	Recheck(ctx context.Context, ownerID, domainID string) (domainauth.Result, error)
	CheckMxRecords(ctx context.Context, domainID string) (domainauth.Result, error)
	CheckVerificationForSending(ctx context.Context, domainID string) (domainauth.Result, error)
}

// OwnerFunc resolves the authenticated owner of a request. It returns "" for
// anonymous requests.
type OwnerFunc func(r *http.Request) string

// HeaderOwner reads the owner id from the X-Owner-ID header.
func HeaderOwner(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(OwnerHeader))
}

// Option configures a Handler.
type Option func(*Handler)

// WithOwnerFunc sets how the caller is identified. Default: HeaderOwner.
func WithOwnerFunc(fn OwnerFunc) Option {
	return func(h *Handler) {
		if fn != nil {
			h.owner = fn
		}
	}
}

// WithLimiter rate limits recheck requests per caller.
func WithLimiter(l *Limiter) Option {
	return func(h *Handler) {
		h.limiter = l
	}
}

// Handler wires verification endpoints to the service.
type Handler struct {
	service Service
	logger  *slog.Logger
	owner   OwnerFunc
	limiter *Limiter
}

// New constructs a handler.
func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	h := &Handler{
		service: service,
		logger:  logger,
		owner:   HeaderOwner,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/domains/{id}", func(r chi.Router) {
		r.Use(h.requireOwner)
		if h.limiter != nil {
			r.With(h.limiter.Middleware(func(r *http.Request) string { return h.owner(r) })).
				Post("/recheck", h.HandleRecheck)
		} else {
			r.Post("/recheck", h.HandleRecheck)
		}
		r.Post("/mx", h.HandleMX)
		r.Post("/sending", h.HandleSending)
	})
}

// HandleRecheck handles POST /domains/{id}/recheck.
func (h *Handler) HandleRecheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := h.owner(r)
	id := chi.URLParam(r, "id")

	res, err := h.service.Recheck(ctx, owner, id)
	if err != nil {
		h.writeError(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Payload())
}

// HandleMX handles POST /domains/{id}/mx.
func (h *Handler) HandleMX(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, h.service.CheckMxRecords)
}

// HandleSending handles POST /domains/{id}/sending.
func (h *Handler) HandleSending(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, h.service.CheckVerificationForSending)
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request, run func(context.Context, string) (domainauth.Result, error)) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.service.Authorize(ctx, h.owner(r), id); err != nil {
		h.writeError(w, r, id, err)
		return
	}

	res, err := run(ctx, id)
	if err != nil {
		h.writeError(w, r, id, err)
		return
	}
	writeJSON(w, http.StatusOK, res.Payload())
}

func (h *Handler) requireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.owner(r) == "" {
			writeMessage(w, http.StatusUnauthorized, "Authentication required.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, id string, err error) {
	switch {
	case errors.Is(err, domainauth.ErrAlreadyVerified):
		writeMessage(w, http.StatusNotFound, "Domain already verified")
	case errors.Is(err, domainauth.ErrDomainNotFound):
		writeMessage(w, http.StatusNotFound, "Domain not found")
	case errors.Is(err, lock.ErrNotAcquired):
		writeMessage(w, http.StatusConflict, "A check for this domain is already running, please try again later.")
	default:
		h.logger.ErrorContext(r.Context(), "domain check failed",
			slog.String("domain_id", id),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeMessage(w, http.StatusInternalServerError, "Internal server error")
	}
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, domainauth.Payload{Success: false, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
