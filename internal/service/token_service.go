package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tesloshop/backend/internal/domain"
	"github.com/tesloshop/backend/internal/repository"
	"github.com/tesloshop/backend/internal/security"
)

var ErrSessionInvalid = errors.New("session invalid or expired")

type TokenService struct {
	jwtMgr      *security.JWTManager
	sessionRepo repository.SessionRepository
	pepper      string
	accessTTL   time.Duration
	refreshTTL  time.Duration
}

func NewTokenService(jwtMgr *security.JWTManager, sessionRepo repository.SessionRepository, pepper string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{jwtMgr: jwtMgr, sessionRepo: sessionRepo, pepper: pepper, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// IssueAccess mints an access token without opening a new session,
// for status checks that refresh the caller's short-lived credential.
func (s *TokenService) IssueAccess(user *domain.User) (string, error) {
	return s.jwtMgr.SignAccessToken(user.ID, user.RoleNames(), s.accessTTL)
}

func (s *TokenService) Issue(user *domain.User, ua, ip string) (access string, refresh string, err error) {
	access, err = s.jwtMgr.SignAccessToken(user.ID, user.RoleNames(), s.accessTTL)
	if err != nil {
		return "", "", err
	}
	refresh, err = s.jwtMgr.SignRefreshToken(user.ID, s.refreshTTL)
	if err != nil {
		return "", "", err
	}
	hash := security.HashRefreshToken(refresh, s.pepper)
	if err := s.sessionRepo.Create(&domain.Session{
		UserID:           user.ID,
		RefreshTokenHash: hash,
		UserAgent:        ua,
		IP:               ip,
		ExpiresAt:        time.Now().Add(s.refreshTTL),
	}); err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Rotate exchanges a refresh token for a fresh pair and revokes the old
// session, so every refresh token is single-use.
func (s *TokenService) Rotate(refreshToken string, userFetcher func(id uuid.UUID) (*domain.User, error), ua, ip string) (access string, newRefresh string, userID uuid.UUID, err error) {
	claims, err := s.jwtMgr.ParseRefreshToken(refreshToken)
	if err != nil {
		return "", "", uuid.Nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	hash := security.HashRefreshToken(refreshToken, s.pepper)
	session, err := s.sessionRepo.FindValidByHash(hash)
	if err != nil {
		return "", "", uuid.Nil, ErrSessionInvalid
	}
	if err := s.sessionRepo.RevokeByHash(hash); err != nil {
		return "", "", uuid.Nil, err
	}
	userID, err = claims.UserID()
	if err != nil {
		return "", "", uuid.Nil, fmt.Errorf("%w: %v", ErrSessionInvalid, err)
	}
	if session.UserID != userID {
		return "", "", uuid.Nil, ErrSessionInvalid
	}
	user, err := userFetcher(userID)
	if err != nil {
		return "", "", uuid.Nil, err
	}
	access, newRefresh, err = s.Issue(user, ua, ip)
	if err != nil {
		return "", "", uuid.Nil, err
	}
	return access, newRefresh, userID, nil
}

func (s *TokenService) Revoke(refreshToken string) error {
	hash := security.HashRefreshToken(refreshToken, s.pepper)
	return s.sessionRepo.RevokeByHash(hash)
}

func (s *TokenService) RevokeAll(userID uuid.UUID) error {
	return s.sessionRepo.RevokeByUserID(userID)
}
