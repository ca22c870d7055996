// Copyright (c) 2026 Memodeck. All rights reserved.
// Author: dev@memodeck.app

package account

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/memodeck/memodeck/internal/platform/metrics"
	"github.com/memodeck/memodeck/internal/platform/middleware"
	requestutil "github.com/memodeck/memodeck/internal/platform/request"
	"github.com/memodeck/memodeck/internal/platform/respond"
)

// Handler exposes the account-mutation endpoints. Every route requires an
// authenticated caller; the password in each payload is the additional
// re-auth proof.
type Handler struct {
	service *Service
	metrics *metrics.Registry
}

// NewHandler creates the HTTP handler for the account routes.
func NewHandler(service *Service, registry *metrics.Registry) *Handler {
	return &Handler{service: service, metrics: registry}
}

// Routes returns the router for the /account subtree.
func (handler *Handler) Routes() chi.Router {
	router := chi.NewRouter()
	router.Use(middleware.RequireAuth)

	router.Put("/password", handler.ChangePassword)
	router.Put("/username", handler.ChangeUsername)
	router.Put("/email", handler.ChangeEmail)
	router.Delete("/", handler.DeleteAccount)

	return router
}

// # Request Payloads

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type changeUsernameRequest struct {
	Password    string `json:"password"`
	NewUsername string `json:"new_username"`
}

type changeEmailRequest struct {
	Password string `json:"password"`
	NewEmail string `json:"new_email"`
}

type deleteAccountRequest struct {
	Password string `json:"password"`
}

// # Endpoints

// ChangePassword handles PUT /account/password. Responds 204; all sessions
// are revoked, so the client must log in again.
func (handler *Handler) ChangePassword(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload changePasswordRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.service.ChangePassword(request.Context(), userID, payload.CurrentPassword, payload.NewPassword)
	handler.metrics.ObserveAuth("change_password", err)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}

// ChangeUsername handles PUT /account/username. Responds 200 with the
// updated public identity.
func (handler *Handler) ChangeUsername(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload changeUsernameRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.ChangeUsername(request.Context(), userID, payload.Password, payload.NewUsername)
	handler.metrics.ObserveAuth("change_username", err)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// ChangeEmail handles PUT /account/email. Responds 200 with the updated
// public identity.
func (handler *Handler) ChangeEmail(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload changeEmailRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	user, err := handler.service.ChangeEmail(request.Context(), userID, payload.Password, payload.NewEmail)
	handler.metrics.ObserveAuth("change_email", err)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.OK(writer, user)
}

// DeleteAccount handles DELETE /account. Irreversible; responds 204.
func (handler *Handler) DeleteAccount(writer http.ResponseWriter, request *http.Request) {
	userID, err := requestutil.RequiredUserID(request)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	var payload deleteAccountRequest
	if err := requestutil.DecodeJSON(request, &payload); err != nil {
		respond.Error(writer, request, err)
		return
	}

	err = handler.service.DeleteAccount(request.Context(), userID, payload.Password)
	handler.metrics.ObserveAuth("delete_account", err)
	if err != nil {
		respond.Error(writer, request, err)
		return
	}

	respond.NoContent(writer)
}
