// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memodeck/memodeck/internal/platform/constants"
	"github.com/memodeck/memodeck/internal/platform/metrics"
	"github.com/memodeck/memodeck/internal/platform/middleware"
	requestutil "github.com/memodeck/memodeck/internal/platform/request"
	"github.com/memodeck/memodeck/internal/platform/respond"
	"github.com/memodeck/memodeck/internal/platform/validate"
)

// Handler exposes the authentication endpoints.
type Handler struct {
	service *Service
	metrics *metrics.Registry
	secure  bool
}

// NewHandler creates the HTTP handler for the auth routes. secure controls
// the Secure flag on the refresh cookie (off only in local development).
func NewHandler(service *Service, registry *metrics.Registry, secure bool) *Handler {
	return &Handler{service: service, metrics: registry, secure: secure}
}

// Routes returns the router for the /auth subtree.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()

	router.Post("/register", handler.Register)
	router.Post("/login", handler.Login)
	router.Post("/refresh", handler.Refresh)
	router.Post("/logout", handler.Logout)

	router.Group(func(protected chi.Router) {
		protected.Use(middleware.RequireAuth)
		protected.Post("/logout-all", handler.LogoutAll)
	})

	return router
}

// # Request Payloads

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type refreshRequest struct {
	UserID       string `json:"user_id"`
	RefreshToken string `json:"refresh_token"`
}

// # Endpoints

/*
Register handles POST /auth/register.

Description: Creates an account and responds 201 with the user and both
freshly issued tokens. The refresh token is additionally set as an HttpOnly
cookie scoped to the auth subtree.
*/
func (handler *Handler) Register(writer http.ResponseWriter, request *http.Request) {
	var payload registerRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.Register(request.Context(), payload.Username, payload.Email, payload.Password)
	handler.metrics.ObserveAuth("register", err)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session.RefreshToken)
	respond.Created(writer, session)
}

/*
Login handles POST /auth/login.

Description: Authenticates by username or email plus password and responds
200 with a fresh session. Unknown accounts and wrong passwords produce the
same 401.
*/
func (handler *Handler) Login(writer http.ResponseWriter, request *http.Request) {
	var payload loginRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	session, err := handler.service.Authenticate(request.Context(), payload.Login, payload.Password)
	handler.metrics.ObserveAuth("login", err)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session.RefreshToken)
	respond.OK(writer, session)
}

/*
Refresh handles POST /auth/refresh.

Description: Rotates the presented refresh token into a brand-new session.
The token is read from the JSON body; when the body omits it the HttpOnly
cookie is used instead, so browser clients never touch the raw value.
*/
func (handler *Handler) Refresh(writer http.ResponseWriter, request *http.Request) {
	var payload refreshRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}
	handler.fillTokenFromCookie(request, &payload)

	session, err := handler.service.RefreshSession(request.Context(), payload.UserID, payload.RefreshToken)
	handler.metrics.ObserveAuth("refresh", err)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.setRefreshCookie(writer, session.RefreshToken)
	respond.OK(writer, session)
}

/*
Logout handles POST /auth/logout.

Description: Revokes the single session matching the presented refresh token
and clears the cookie. Responds 204 even when the token is already gone.
*/
func (handler *Handler) Logout(writer http.ResponseWriter, request *http.Request) {
	var payload refreshRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}
	handler.fillTokenFromCookie(request, &payload)

	if err := (&validate.Validator{}).Required(FieldUserID, payload.UserID).Err(); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err := handler.service.Logout(request.Context(), payload.UserID, payload.RefreshToken)
	handler.metrics.ObserveAuth("logout", err)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearRefreshCookie(writer)
	respond.NoContent(writer)
}

/*
LogoutAll handles POST /auth/logout-all (authenticated).

Description: Revokes every live session for the caller's account. Responds
204; already-issued access tokens remain valid until their own expiry.
*/
func (handler *Handler) LogoutAll(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.service.RevokeAll(request.Context(), userID)
	handler.metrics.ObserveAuth("logout_all", err)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	handler.clearRefreshCookie(writer)
	respond.NoContent(writer)
}

// # Cookie Handling

func (handler *Handler) setRefreshCookie(writer http.ResponseWriter, token IssuedToken) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    token.Value,
		Path:     constants.RefreshTokenCookiePath,
		Expires:  token.ExpiresAt,
		HttpOnly: true,
		Secure:   handler.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (handler *Handler) clearRefreshCookie(writer http.ResponseWriter) {
	http.SetCookie(writer, &http.Cookie{
		Name:     constants.RefreshTokenCookieName,
		Value:    "",
		Path:     constants.RefreshTokenCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   handler.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// fillTokenFromCookie falls back to the HttpOnly cookie when the body did
// not carry the refresh token.
func (handler *Handler) fillTokenFromCookie(request *http.Request, payload *refreshRequest) {
	if payload.RefreshToken != "" {
		return
	}
	if cookie, err := request.Cookie(constants.RefreshTokenCookieName); err == nil {
		payload.RefreshToken = cookie.Value
	}
}
