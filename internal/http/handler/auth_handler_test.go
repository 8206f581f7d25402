package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tesloshop/backend/internal/domain"
	"github.com/tesloshop/backend/internal/service"
)

type stubAuthService struct {
	result *service.LoginResult

	registerErr error
	loginErr    error
	statusErr   error
	refreshErr  error
	logoutErr   error

	registeredEmail string
	statusUserID    uuid.UUID
	refreshedToken  string
	revokedToken    string
}

func (s *stubAuthService) Register(_ context.Context, email, _, _, _, _ string) (*service.LoginResult, error) {
	s.registeredEmail = email
	if s.registerErr != nil {
		return nil, s.registerErr
	}
	return s.result, nil
}

func (s *stubAuthService) Login(_ context.Context, _, _, _, _ string) (*service.LoginResult, error) {
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return s.result, nil
}

func (s *stubAuthService) CheckStatus(_ context.Context, userID uuid.UUID) (*service.LoginResult, error) {
	s.statusUserID = userID
	if s.statusErr != nil {
		return nil, s.statusErr
	}
	return s.result, nil
}

func (s *stubAuthService) Refresh(_ context.Context, refreshToken, _, _ string) (*service.LoginResult, error) {
	s.refreshedToken = refreshToken
	if s.refreshErr != nil {
		return nil, s.refreshErr
	}
	return s.result, nil
}

func (s *stubAuthService) Logout(_ context.Context, refreshToken string) error {
	s.revokedToken = refreshToken
	return s.logoutErr
}

func sampleLoginResult(userID uuid.UUID) *service.LoginResult {
	return &service.LoginResult{
		User: &domain.User{
			ID:       userID,
			Email:    "test@example.com",
			FullName: "Test User",
			IsActive: true,
			Roles:    []domain.Role{{ID: 1, Name: domain.RoleUser}},
		},
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		ExpiresAt:    time.Now().Add(2 * time.Hour),
	}
}

func newAuthRouter(svc service.AuthServiceInterface) http.Handler {
	h := NewAuthHandler(svc)
	r := chi.NewRouter()
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.Get("/auth/check-status", h.CheckStatus)
	r.Post("/auth/refresh", h.Refresh)
	r.Post("/auth/logout", h.Logout)
	return r
}

func TestRegisterReturnsSession(t *testing.T) {
	userID := uuid.New()
	svc := &stubAuthService{result: sampleLoginResult(userID)}
	router := newAuthRouter(svc)

	body := `{"email":"Test@Example.com","full_name":"Test User","password":"Abc123"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d (body %s)", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	var data struct {
		User struct {
			Email string   `json:"email"`
			Roles []string `json:"roles"`
		} `json:"user"`
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if data.AccessToken == "" || data.RefreshToken == "" {
		t.Fatalf("tokens missing: %+v", data)
	}
	if len(data.User.Roles) != 1 || data.User.Roles[0] != domain.RoleUser {
		t.Fatalf("roles = %v", data.User.Roles)
	}
	if svc.registeredEmail != "Test@Example.com" {
		t.Fatalf("email forwarded = %q", svc.registeredEmail)
	}
}

func TestRegisterMapsValidationErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		err  error
		want int
	}{
		{"weak password", service.ErrWeakPassword, http.StatusBadRequest},
		{"invalid email", service.ErrEmailInvalid, http.StatusBadRequest},
		{"missing full name", service.ErrFullNameRequired, http.StatusBadRequest},
		{"duplicate email", service.ErrEmailTaken, http.StatusBadRequest},
	} {
		t.Run(tc.name, func(t *testing.T) {
			router := newAuthRouter(&stubAuthService{registerErr: tc.err})
			req := httptest.NewRequest(http.MethodPost, "/auth/register", strings.NewReader(`{"email":"a@b.c"}`))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != tc.want {
				t.Fatalf("status = %d, want %d", rec.Code, tc.want)
			}
			env := decodeEnvelope(t, rec)
			if env.Error == nil || env.Error.Message != tc.err.Error() {
				t.Fatalf("error = %+v", env.Error)
			}
		})
	}
}

func TestLoginRejectsBadCredentialsWith401(t *testing.T) {
	router := newAuthRouter(&stubAuthService{loginErr: service.ErrInvalidCredentials})

	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"email":"a@b.c","password":"x"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	env := decodeEnvelope(t, rec)
	if env.Error == nil || env.Error.Code != "UNAUTHORIZED" {
		t.Fatalf("error = %+v", env.Error)
	}
}

func TestCheckStatusRequiresClaims(t *testing.T) {
	userID := uuid.New()
	svc := &stubAuthService{result: sampleLoginResult(userID)}
	router := newAuthRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/auth/check-status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status without claims = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	req = withClaims(httptest.NewRequest(http.MethodGet, "/auth/check-status", nil), userID)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status with claims = %d (body %s)", rec.Code, rec.Body.String())
	}
	if svc.statusUserID != userID {
		t.Fatalf("user id forwarded = %s, want %s", svc.statusUserID, userID)
	}
}

func TestRefreshRejectsReplayedTokens(t *testing.T) {
	svc := &stubAuthService{refreshErr: service.ErrSessionInvalid}
	router := newAuthRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{"refresh_token":"used-token"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if svc.refreshedToken != "used-token" {
		t.Fatalf("token forwarded = %q", svc.refreshedToken)
	}
}

func TestRefreshRequiresToken(t *testing.T) {
	router := newAuthRouter(&stubAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/auth/refresh", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	svc := &stubAuthService{}
	router := newAuthRouter(svc)

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", strings.NewReader(`{"refresh_token":"some-token"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.revokedToken != "some-token" {
		t.Fatalf("revoked token = %q", svc.revokedToken)
	}
}
