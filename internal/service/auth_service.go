package service

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tesloshop/backend/internal/domain"
	"github.com/tesloshop/backend/internal/observability"
	"github.com/tesloshop/backend/internal/repository"
	"github.com/tesloshop/backend/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("credentials are not valid")
	ErrUserInactive       = errors.New("user is inactive, talk with an admin")
	ErrEmailTaken         = errors.New("email already registered")
	ErrEmailInvalid       = errors.New("a valid email is required")
	ErrFullNameRequired   = errors.New("full name is required")
	ErrWeakPassword       = errors.New("password must have an uppercase letter, a lowercase letter and a number")
)

var (
	uppercaseRe = regexp.MustCompile(`[A-Z]`)
	lowercaseRe = regexp.MustCompile(`[a-z]`)
	digitRe     = regexp.MustCompile(`\d`)
)

type LoginResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

type AuthService struct {
	userRepo            repository.UserRepository
	roleRepo            repository.RoleRepository
	tokenSvc            *TokenService
	accessTTL           time.Duration
	bootstrapAdminEmail string
	logger              *slog.Logger
}

func NewAuthService(
	userRepo repository.UserRepository,
	roleRepo repository.RoleRepository,
	tokenSvc *TokenService,
	accessTTL time.Duration,
	bootstrapAdminEmail string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		userRepo:            userRepo,
		roleRepo:            roleRepo,
		tokenSvc:            tokenSvc,
		accessTTL:           accessTTL,
		bootstrapAdminEmail: bootstrapAdminEmail,
		logger:              logger,
	}
}

func (s *AuthService) Register(ctx context.Context, email, fullName, password, ua, ip string) (*LoginResult, error) {
	outcome := "success"
	defer func() { observability.RecordAuthFlow(ctx, "register", outcome) }()

	email = strings.TrimSpace(strings.ToLower(email))
	fullName = strings.TrimSpace(fullName)
	if err := validateEmail(email); err != nil {
		outcome = "bad_request"
		return nil, err
	}
	if fullName == "" {
		outcome = "bad_request"
		return nil, ErrFullNameRequired
	}
	if err := validatePassword(password); err != nil {
		outcome = "bad_request"
		return nil, err
	}
	if _, err := s.userRepo.FindByEmail(email); err == nil {
		outcome = "conflict"
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		outcome = "error"
		return nil, err
	}

	hash, err := security.HashPassword(password)
	if err != nil {
		outcome = "error"
		return nil, err
	}
	user := &domain.User{Email: email, FullName: fullName, PasswordHash: hash, IsActive: true}
	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			outcome = "conflict"
			return nil, ErrEmailTaken
		}
		outcome = "error"
		return nil, err
	}

	if userRole, err := s.roleRepo.FindByName(domain.RoleUser); err == nil {
		if err := s.userRepo.AddRole(user.ID, userRole.ID); err != nil {
			s.logger.WarnContext(ctx, "assign default role failed", "error", err, "user_id", user.ID)
		}
	}
	if s.bootstrapAdminEmail != "" && email == s.bootstrapAdminEmail {
		if adminRole, err := s.roleRepo.FindByName(domain.RoleAdmin); err == nil {
			if err := s.userRepo.AddRole(user.ID, adminRole.ID); err != nil {
				s.logger.WarnContext(ctx, "assign bootstrap admin role failed", "error", err, "user_id", user.ID)
			}
		}
	}

	fresh, err := s.userRepo.FindByID(user.ID)
	if err != nil {
		outcome = "error"
		return nil, err
	}
	return s.loginResult(fresh, ua, ip, &outcome)
}

func (s *AuthService) Login(ctx context.Context, email, password, ua, ip string) (*LoginResult, error) {
	outcome := "success"
	defer func() { observability.RecordAuthFlow(ctx, "login", outcome) }()

	email = strings.TrimSpace(strings.ToLower(email))
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		outcome = "unauthorized"
		return nil, ErrInvalidCredentials
	}
	ok, err := security.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		outcome = "error"
		return nil, err
	}
	if !ok {
		outcome = "unauthorized"
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		outcome = "unauthorized"
		return nil, ErrUserInactive
	}
	return s.loginResult(user, ua, ip, &outcome)
}

// CheckStatus re-validates an authenticated user and hands back a fresh
// access token, without opening a new refresh session.
func (s *AuthService) CheckStatus(ctx context.Context, userID uuid.UUID) (*LoginResult, error) {
	outcome := "success"
	defer func() { observability.RecordAuthFlow(ctx, "check_status", outcome) }()

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			outcome = "unauthorized"
			return nil, ErrInvalidCredentials
		}
		outcome = "error"
		return nil, err
	}
	if !user.IsActive {
		outcome = "unauthorized"
		return nil, ErrUserInactive
	}
	access, err := s.tokenSvc.IssueAccess(user)
	if err != nil {
		outcome = "error"
		return nil, err
	}
	return &LoginResult{User: user, AccessToken: access, ExpiresAt: time.Now().Add(s.accessTTL)}, nil
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken, ua, ip string) (*LoginResult, error) {
	outcome := "success"
	defer func() { observability.RecordAuthFlow(ctx, "refresh", outcome) }()

	access, newRefresh, userID, err := s.tokenSvc.Rotate(refreshToken, func(id uuid.UUID) (*domain.User, error) {
		user, err := s.userRepo.FindByID(id)
		if err != nil {
			return nil, err
		}
		if !user.IsActive {
			return nil, ErrUserInactive
		}
		return user, nil
	}, ua, ip)
	if err != nil {
		if errors.Is(err, ErrSessionInvalid) || errors.Is(err, ErrUserInactive) {
			outcome = "unauthorized"
		} else {
			outcome = "error"
		}
		return nil, err
	}
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		outcome = "error"
		return nil, err
	}
	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: newRefresh,
		ExpiresAt:    time.Now().Add(s.accessTTL),
	}, nil
}

func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	outcome := "success"
	defer func() { observability.RecordAuthFlow(ctx, "logout", outcome) }()

	if err := s.tokenSvc.Revoke(refreshToken); err != nil {
		outcome = "error"
		return err
	}
	return nil
}

func (s *AuthService) loginResult(user *domain.User, ua, ip string, outcome *string) (*LoginResult, error) {
	access, refresh, err := s.tokenSvc.Issue(user, ua, ip)
	if err != nil {
		*outcome = "error"
		return nil, err
	}
	return &LoginResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    time.Now().Add(s.accessTTL),
	}, nil
}

func validateEmail(email string) error {
	if email == "" {
		return ErrEmailInvalid
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrEmailInvalid
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 || len(password) > 50 ||
		!uppercaseRe.MatchString(password) || !lowercaseRe.MatchString(password) || !digitRe.MatchString(password) {
		return ErrWeakPassword
	}
	return nil
}
