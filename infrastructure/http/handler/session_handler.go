package handler

import (
	"encoding/json"
	"mime"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/rankboard/portalgate/application/port/inbound"
	apperr "github.com/rankboard/portalgate/domain/error"
	"github.com/rankboard/portalgate/infrastructure/http/response"
)

// login bodies carry one identity token or one authorization code
const maxLoginBodyBytes = 64 * 1024

type SessionHandler struct {
	auth    inbound.AuthUseCase
	session inbound.SessionUseCase
}

func NewSessionHandler(auth inbound.AuthUseCase, session inbound.SessionUseCase) *SessionHandler {
	return &SessionHandler{auth: auth, session: session}
}

// RegisterRoutes mounts the /v1 session API. guards wrap every route;
// loginLimit wraps the two login routes only.
func (h *SessionHandler) RegisterRoutes(router *mux.Router, loginLimit mux.MiddlewareFunc, guards ...mux.MiddlewareFunc) {
	v1 := router.PathPrefix("/v1").Subrouter()
	v1.Use(guards...)
	v1.HandleFunc("/session", h.Current).Methods(http.MethodGet)
	v1.HandleFunc("/session/logout", h.Logout).Methods(http.MethodPost)
	v1.HandleFunc("/route", h.Route).Methods(http.MethodGet)

	login := v1.PathPrefix("/session/login").Subrouter()
	if loginLimit != nil {
		login.Use(loginLimit)
	}
	login.HandleFunc("/member", h.LoginMember).Methods(http.MethodPost)
	login.HandleFunc("/backoffice", h.LoginBackOffice).Methods(http.MethodPost)
}

func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.session.Current()
	if !ok {
		response.AppError(w, apperr.ErrNoSession())
		return
	}
	response.Success(w, http.StatusOK, "success", profile)
}

func (h *SessionHandler) LoginMember(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLoginRequest(w, r)
	if !ok {
		return
	}
	res, err := h.auth.LoginMember(r.Context(), req)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Login successful", res)
}

func (h *SessionHandler) LoginBackOffice(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeLoginRequest(w, r)
	if !ok {
		return
	}
	res, err := h.auth.LoginBackOffice(r.Context(), req)
	if err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Login successful", res)
}

func (h *SessionHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		response.AppError(w, err)
		return
	}
	response.Success(w, http.StatusOK, "Logged out", nil)
}

// Route answers what the role gate would do for ?path= without navigating.
func (h *SessionHandler) Route(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")
	if path == "" {
		response.BadRequest(w, "path query parameter is required")
		return
	}
	response.Success(w, http.StatusOK, "success", h.session.Route(path))
}

// decodeLoginRequest only accepts application/json, which a cross-site form
// or a no-cors fetch cannot send without a preflight.
func decodeLoginRequest(w http.ResponseWriter, r *http.Request) (inbound.LoginRequest, bool) {
	var req inbound.LoginRequest
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		response.Error(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return req, false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxLoginBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		response.BadRequest(w, "Invalid request body")
		return req, false
	}
	if req.Credential == "" && req.Code == "" {
		response.AppError(w, apperr.ErrInvalidCredential(nil))
		return req, false
	}
	return req, true
}
