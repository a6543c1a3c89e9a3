package consolehttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tablewise/tablewise/internal/console"
	"github.com/tablewise/tablewise/internal/platform/httpx"
	"github.com/tablewise/tablewise/internal/shared"
)

const defaultWaitTimeout = 20 * time.Second

// Sessions resolves console sessions for the cookie session of a request.
type Sessions interface {
	Session(id string, creds console.Credentials) (*console.Session, error)
	Close(id string) bool
}

// TokenStore hands out credentials bound to a cookie session.
type TokenStore interface {
	Credentials(sessionID string) console.Credentials
	Destroy(sess *shared.Session)
}

// Handler exposes console orchestration over HTTP.
type Handler struct {
	logger      *slog.Logger
	sessions    Sessions
	tokens      TokenStore
	validator   *validator.Validate
	waitTimeout time.Duration
}

// NewHandler constructs a console HTTP handler.
func NewHandler(logger *slog.Logger, sessions Sessions, tokens TokenStore, waitTimeout time.Duration) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if waitTimeout <= 0 {
		waitTimeout = defaultWaitTimeout
	}
	return &Handler{
		logger:      logger,
		sessions:    sessions,
		tokens:      tokens,
		validator:   validator.New(),
		waitTimeout: waitTimeout,
	}
}

// MountRoutes registers HTTP routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/auth/session", func(r chi.Router) {
		r.Post("/", h.attachCredentials)
		r.Delete("/", h.signOut)
	})
	r.Route("/console", func(r chi.Router) {
		r.Get("/state", h.state)
		r.Post("/navigate", h.navigate)
		r.Put("/period", h.setPeriod)
		r.Get("/domains/{domain}", h.domain)
		r.Post("/domains/{domain}/retry", h.retry)
		r.Delete("/session", h.closeSession)
	})
}

type credentialsRequest struct {
	Token string `json:"token" validate:"required,max=4096"`
	Role  string `json:"role" validate:"required,oneof=admin manager staff chef waiter"`
}

type navigateRequest struct {
	View       string `json:"view" validate:"required,oneof=dashboard staff inventory reports settings menu operations stock suppliers recipes financial"`
	Subsection string `json:"subsection" validate:"omitempty,max=64"`
}

type periodRequest struct {
	Period string `json:"period" validate:"required,oneof=today week month"`
}

type navigateResponse struct {
	View       console.ViewState     `json:"view"`
	Dispatched console.DomainSet     `json:"dispatched"`
	State      *console.SessionState `json:"state,omitempty"`
}

func (h *Handler) attachCredentials(w http.ResponseWriter, r *http.Request) {
	sess, err := shared.RequireSession(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req credentialsRequest
	if !h.decode(w, r, &req) {
		return
	}
	sess.SetCredentials(req.Token, req.Role)
	h.logger.Info("credentials attached", slog.String("session_id", sess.ID), slog.String("role", req.Role))
	httpx.NoContent(w)
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	sess, err := shared.RequireSession(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	sess.ClearCredentials()
	h.sessions.Close(sess.ID)
	h.tokens.Destroy(sess)
	httpx.NoContent(w)
}

func (h *Handler) state(w http.ResponseWriter, r *http.Request) {
	cs, err := h.consoleSession(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cs.State())
}

func (h *Handler) navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if !h.decode(w, r, &req) {
		return
	}
	cs, err := h.consoleSession(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := cs.Navigate(console.View(req.View), console.Subsection(req.Subsection))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	out := navigateResponse{View: res.View, Dispatched: res.Dispatched}
	if wantsWait(r) {
		ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
		defer cancel()
		if err := cs.Wait(ctx); err != nil {
			h.logger.Warn("navigate wait expired", slog.Any("error", err))
		}
		state := cs.State()
		out.State = &state
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) setPeriod(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if !h.decode(w, r, &req) {
		return
	}
	cs, err := h.consoleSession(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := cs.SetPeriod(console.PeriodKey(req.Period)); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, cs.State())
}

func (h *Handler) domain(w http.ResponseWriter, r *http.Request) {
	cs, err := h.consoleSession(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	state, err := cs.Domain(console.DomainID(chi.URLParam(r, "domain")))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, state)
}

func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	cs, err := h.consoleSession(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id := console.DomainID(chi.URLParam(r, "domain"))
	if err := cs.Retry(id); err != nil {
		h.fail(w, r, err)
		return
	}
	if wantsWait(r) {
		ctx, cancel := context.WithTimeout(r.Context(), h.waitTimeout)
		defer cancel()
		_ = cs.Wait(ctx)
		state, _ := cs.Domain(id)
		httpx.JSON(w, http.StatusOK, state)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *Handler) closeSession(w http.ResponseWriter, r *http.Request) {
	sess, err := shared.RequireSession(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.sessions.Close(sess.ID)
	httpx.NoContent(w)
}

func (h *Handler) consoleSession(r *http.Request) (*console.Session, error) {
	sess, err := shared.RequireSession(r.Context())
	if err != nil {
		return nil, err
	}
	return h.sessions.Session(sess.ID, h.tokens.Credentials(sess.ID))
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.RespondError(w, err)
		return false
	}
	if err := h.validator.Struct(target); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[strings.ToLower(fe.Field())] = fieldMessage(fe)
		}
		httpx.ValidationProblem(w, fields)
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return "must be one of: " + fe.Param()
	case "max":
		return "must be at most " + fe.Param() + " characters"
	}
	return "is invalid"
}

// fail maps console errors onto problem responses.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, console.ErrUnknownView),
		errors.Is(err, console.ErrInvalidSubsection),
		errors.Is(err, console.ErrInvalidPeriod):
		err = fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	case errors.Is(err, console.ErrUnknownDomain):
		err = fmt.Errorf("%w: %v", httpx.ErrNotFound, err)
	case errors.Is(err, console.ErrSessionClosed):
		err = fmt.Errorf("%w: %v", httpx.ErrConflict, err)
	}
	if !httpx.IsClientError(err) {
		h.logger.Error("console request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

func wantsWait(r *http.Request) bool {
	switch r.URL.Query().Get("wait") {
	case "1", "true":
		return true
	}
	return false
}
