package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"prepmaster-service/internal/app"
	"prepmaster-service/internal/domain"
)

// Handler ties the REST routes to the application service.
type Handler struct {
	service *app.Service
	log     *zap.Logger
}

func NewHandler(service *app.Service, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{service: service, log: log}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("route", routePattern(r)), zap.Error(err))
		writeErr(w, status, "internal server error")
		return
	}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, status, errResp{Error: "validation failed", Fields: verr.Fields})
		return
	}
	writeErr(w, status, err.Error())
}

// Register handles POST /api/auth/register.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in app.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login handles POST /api/auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	sess, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.Profile(r.Context(), callerFrom(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in app.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		h.writeError(w, r, err)
		return
	}
	user, err := h.service.UpdateProfile(r.Context(), callerFrom(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
