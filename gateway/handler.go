// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-uuid"

	"github.com/hashicorp/authgate/oidc"
)

// SessionCookieName carries the session id between the browser and the
// gateway.
const SessionCookieName = "authgate_session"

type contextKey string

const sessionContextKey contextKey = "authgate.session"

// ErrorResponse is the JSON body for all error replies.
type ErrorResponse struct {
	Error string `json:"error"`
}

// callbackResponse is the JSON body for a successful login callback.
type callbackResponse struct {
	Tokens *oidc.Token `json:"tokens"`
	User   *User       `json:"user"`
}

// refreshResponse is the JSON body for a successful token refresh.
type refreshResponse struct {
	Message string      `json:"message"`
	Tokens  *oidc.Token `json:"tokens"`
	User    *User       `json:"user"`
}

// Handler exposes a Flow over HTTP.  Session identity rides in the
// SessionCookieName cookie; management endpoints additionally accept a
// bearer token for sessionless API calls.
type Handler struct {
	flow   *Flow
	store  Store
	logger hclog.Logger
	router chi.Router
}

// NewHandler builds the gateway's HTTP surface:
//
//	GET /                     index page with session status
//	GET /auth/login           start a login, redirect to the provider
//	GET /auth/callback        finish a login
//	GET /auth/logout          destroy the session, redirect to the provider's logout
//	GET /management/refresh   refresh the session's token set
//	GET /management/userinfo  fetch fresh identity claims
//
// Supported options: WithHandlerLogger
func NewHandler(flow *Flow, store Store, opt ...Option) (*Handler, error) {
	const op = "gateway.NewHandler"
	if flow == nil {
		return nil, fmt.Errorf("%s: flow is nil: %w", op, oidc.ErrNilParameter)
	}
	if store == nil {
		return nil, fmt.Errorf("%s: session store is nil: %w", op, oidc.ErrNilParameter)
	}
	opts := getHandlerOpts(opt...)
	h := &Handler{
		flow:   flow,
		store:  store,
		logger: opts.withLogger,
	}

	r := chi.NewRouter()
	r.Use(h.withSession)
	r.Get("/", h.index)
	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", h.login)
		r.Get("/callback", h.callback)
		r.Get("/logout", h.logout)
	})
	r.Route("/management", func(r chi.Router) {
		r.Use(h.requireToken)
		r.Get("/refresh", h.refresh)
		r.Get("/userinfo", h.userinfo)
	})
	h.router = r
	return h, nil
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	h.router.ServeHTTP(w, req)
}

// withSession resolves the request's session from the cookie, creating a new
// empty session (and setting the cookie) when there isn't one.  The session
// placed on the context is the caller's private copy; handlers persist
// changes through the flow, not by mutating it.
func (h *Handler) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var sess *Session
		if c, err := req.Cookie(SessionCookieName); err == nil {
			if s, err := h.store.Get(req.Context(), c.Value); err == nil {
				sess = s
			}
		}
		if sess == nil {
			id, err := uuid.GenerateUUID()
			if err != nil {
				h.logger.Error("unable to generate session id", "err", err)
				render.Status(req, http.StatusInternalServerError)
				render.JSON(w, req, ErrorResponse{Error: "internal error"})
				return
			}
			sess = &Session{ID: id}
			if err := h.store.Set(req.Context(), id, sess); err != nil {
				h.logger.Error("unable to persist new session", "err", err)
				render.Status(req, http.StatusInternalServerError)
				render.JSON(w, req, ErrorResponse{Error: "internal error"})
				return
			}
			http.SetCookie(w, &http.Cookie{
				Name:     SessionCookieName,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		ctx := context.WithValue(req.Context(), sessionContextKey, sess)
		next.ServeHTTP(w, req.WithContext(ctx))
	})
}

// requireToken gates the management endpoints: the request must carry an
// access token, either in the session or as a bearer header.  A bearer token
// is injected into the request's session copy only; it's never persisted.
func (h *Handler) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		sess := sessionFromContext(req.Context())
		injectBearerToken(sess, req.Header.Get("Authorization"))
		if sess.AccessToken() == "" {
			h.logger.Warn("no access token in session or bearer header")
			render.Status(req, http.StatusUnauthorized)
			render.JSON(w, req, ErrorResponse{Error: "Not authenticated"})
			return
		}
		next.ServeHTTP(w, req)
	})
}

func sessionFromContext(ctx context.Context) *Session {
	sess, _ := ctx.Value(sessionContextKey).(*Session)
	return sess
}

func (h *Handler) index(w http.ResponseWriter, req *http.Request) {
	sess := sessionFromContext(req.Context())
	status := "Not logged in"
	if sess.Authenticated() {
		status = "Logged in as " + sess.UserInfo.Username
	}
	render.HTML(w, req, fmt.Sprintf(`<h1>Welcome</h1>
<p><a href="/auth/login">Login</a></p>
<p><a href="/management/userinfo">Info</a></p>
<p><a href="/auth/logout">Logout</a></p>
<p>%s</p>
`, status))
}

func (h *Handler) login(w http.ResponseWriter, req *http.Request) {
	sess := sessionFromContext(req.Context())
	authURL, err := h.flow.BeginLogin(req.Context(), sess)
	if err != nil {
		h.logger.Error("unable to initiate login", "err", err)
		render.Status(req, http.StatusInternalServerError)
		render.JSON(w, req, ErrorResponse{Error: "Failed to initiate login"})
		return
	}
	http.Redirect(w, req, authURL, http.StatusFound)
}

// callback finishes a login attempt.  Every failure, from a state mismatch
// to a provider outage, sends the user back to the index rather than leaking
// a provider error page.
func (h *Handler) callback(w http.ResponseWriter, req *http.Request) {
	sess := sessionFromContext(req.Context())
	q := req.URL.Query()
	result, err := h.flow.CompleteLogin(req.Context(), sess, q.Get("state"), q.Get("code"))
	if err != nil {
		h.logger.Error("callback error", "err", err)
		http.Redirect(w, req, "/", http.StatusFound)
		return
	}
	render.JSON(w, req, callbackResponse{Tokens: result.Tokens, User: result.UserInfo})
}

func (h *Handler) logout(w http.ResponseWriter, req *http.Request) {
	sess := sessionFromContext(req.Context())
	logoutURL := h.flow.Logout(req.Context(), sess.ID)
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, req, logoutURL, http.StatusFound)
}

func (h *Handler) refresh(w http.ResponseWriter, req *http.Request) {
	sess := sessionFromContext(req.Context())
	result, err := h.flow.Refresh(req.Context(), sess)
	switch {
	case err == nil:
		render.JSON(w, req, refreshResponse{
			Message: "Tokens refreshed successfully",
			Tokens:  result.Tokens,
			User:    result.UserInfo,
		})
	case errors.Is(err, oidc.ErrMissingRefreshToken):
		h.logger.Warn("no refresh token in session")
		render.Status(req, http.StatusBadRequest)
		render.JSON(w, req, ErrorResponse{Error: "No refresh token in session"})
	default:
		h.logger.Error("token refresh failed", "err", err)
		render.Status(req, http.StatusUnauthorized)
		render.JSON(w, req, ErrorResponse{Error: "Failed to refresh token"})
	}
}

func (h *Handler) userinfo(w http.ResponseWriter, req *http.Request) {
	sess := sessionFromContext(req.Context())
	claims, err := h.flow.UserInfo(req.Context(), sess)
	if err != nil {
		h.logger.Error("unable to fetch user info", "err", err)
		render.Status(req, http.StatusInternalServerError)
		render.JSON(w, req, ErrorResponse{Error: "Failed to fetch user info"})
		return
	}
	render.JSON(w, req, claims)
}

// handlerOptions is the set of available options for Handler functions
type handlerOptions struct {
	withLogger hclog.Logger
}

func handlerDefaults() handlerOptions {
	return handlerOptions{
		withLogger: hclog.NewNullLogger(),
	}
}

func getHandlerOpts(opt ...Option) handlerOptions {
	opts := handlerDefaults()
	for _, o := range opt {
		if o != nil {
			o(&opts)
		}
	}
	return opts
}

// WithHandlerLogger provides an optional logger.
func WithHandlerLogger(l hclog.Logger) Option {
	return func(o interface{}) {
		if o, ok := o.(*handlerOptions); ok {
			o.withLogger = l
		}
	}
}
