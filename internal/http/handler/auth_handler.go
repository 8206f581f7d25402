package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tesloshop/backend/internal/domain"
	"github.com/tesloshop/backend/internal/http/middleware"
	"github.com/tesloshop/backend/internal/http/response"
	"github.com/tesloshop/backend/internal/service"
)

type AuthHandler struct {
	svc service.AuthServiceInterface
}

func NewAuthHandler(svc service.AuthServiceInterface) *AuthHandler {
	return &AuthHandler{svc: svc}
}

type userView struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"full_name"`
	IsActive bool      `json:"is_active"`
	Roles    []string  `json:"roles"`
}

func newUserView(u *domain.User) userView {
	return userView{
		ID:       u.ID,
		Email:    u.Email,
		FullName: u.FullName,
		IsActive: u.IsActive,
		Roles:    u.RoleNames(),
	}
}

type sessionView struct {
	User         userView  `json:"user"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func newSessionView(res *service.LoginResult) sessionView {
	return sessionView{
		User:         newUserView(res.User),
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		FullName string `json:"full_name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	res, err := h.svc.Register(r.Context(), body.Email, body.FullName, body.Password, r.UserAgent(), r.RemoteAddr)
	if err != nil {
		writeAuthError(w, r, err, "failed to register user")
		return
	}
	response.JSON(w, r, http.StatusCreated, newSessionView(res))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}

	res, err := h.svc.Login(r.Context(), body.Email, body.Password, r.UserAgent(), r.RemoteAddr)
	if err != nil {
		writeAuthError(w, r, err, "failed to log in")
		return
	}
	response.JSON(w, r, http.StatusOK, newSessionView(res))
}

// CheckStatus revalidates the caller and hands back a fresh access token.
// It never opens a new refresh session.
func (h *AuthHandler) CheckStatus(w http.ResponseWriter, r *http.Request) {
	userID := actorID(r)
	if userID == uuid.Nil {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return
	}

	res, err := h.svc.CheckStatus(r.Context(), userID)
	if err != nil {
		writeAuthError(w, r, err, "failed to check status")
		return
	}
	response.JSON(w, r, http.StatusOK, newSessionView(res))
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "refresh_token is required", nil)
		return
	}

	res, err := h.svc.Refresh(r.Context(), body.RefreshToken, r.UserAgent(), r.RemoteAddr)
	if err != nil {
		writeAuthError(w, r, err, "failed to refresh session")
		return
	}
	response.JSON(w, r, http.StatusOK, newSessionView(res))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RefreshToken == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "refresh_token is required", nil)
		return
	}

	if err := h.svc.Logout(r.Context(), body.RefreshToken); err != nil {
		writeAuthError(w, r, err, "failed to log out")
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{"logged_out": true})
}

func writeAuthError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
	case errors.Is(err, service.ErrUserInactive):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
	case errors.Is(err, service.ErrSessionInvalid):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "refresh token is invalid or already used", nil)
	case errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrEmailInvalid),
		errors.Is(err, service.ErrFullNameRequired),
		errors.Is(err, service.ErrWeakPassword):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", fallback, nil)
	}
}

// actorID extracts the authenticated caller's id, or uuid.Nil when the
// request carries no verified claims.
func actorID(r *http.Request) uuid.UUID {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		return uuid.Nil
	}
	id, err := claims.UserID()
	if err != nil {
		return uuid.Nil
	}
	return id
}
