package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"nativeai_backend/internal/auth"
	"nativeai_backend/internal/logger"
	"nativeai_backend/internal/models"
	"nativeai_backend/internal/repositories"
	"nativeai_backend/internal/services/dto"
	"nativeai_backend/pkg/apperrors"
)

const refreshTokenTTL = 30 * 24 * time.Hour

type AuthService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error)
	Logout(ctx context.Context, userID string) error
}

type authService struct {
	userRepo repositories.UserRepository
}

func NewAuthService(userRepo repositories.UserRepository) AuthService {
	return &authService{userRepo: userRepo}
}

func (s *authService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	if _, err := s.userRepo.FindByEmail(email); err == nil {
		return nil, apperrors.ErrAlreadyExists(repositories.ErrUserAlreadyExists)
	} else if err != repositories.ErrUserNotFound {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         models.UserRoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		if err == repositories.ErrUserAlreadyExists {
			return nil, apperrors.ErrAlreadyExists(err)
		}
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	logger.CtxInfo(ctx, "user registered", "user_id", user.ID)
	return s.issueTokens(user)
}

func (s *authService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(req.Email)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	if !auth.CheckPassword(user.PasswordHash, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}

	logger.CtxInfo(ctx, "user logged in", "user_id", user.ID)
	return s.issueTokens(user)
}

// Refresh rotates the refresh token: the presented token is deleted and a new
// pair is issued, so a leaked token can be used at most once.
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*dto.AuthResponse, error) {
	stored, err := s.userRepo.FindRefreshToken(refreshToken)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	if time.Now().After(stored.ExpiresAt) {
		_ = s.userRepo.DeleteRefreshToken(refreshToken)
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.userRepo.FindByID(stored.UserID)
	if err != nil {
		if err == repositories.ErrUserNotFound {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	if err := s.userRepo.DeleteRefreshToken(refreshToken); err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	return s.issueTokens(user)
}

func (s *authService) Logout(ctx context.Context, userID string) error {
	if err := s.userRepo.DeleteUserRefreshTokens(userID); err != nil {
		return apperrors.ErrStorageUnavailable(err)
	}
	logger.CtxInfo(ctx, "user logged out", "user_id", userID)
	return nil
}

func (s *authService) issueTokens(user *models.User) (*dto.AuthResponse, error) {
	accessToken, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	refresh := &models.RefreshToken{
		UserID:    user.ID,
		Token:     uuid.NewString(),
		ExpiresAt: time.Now().Add(refreshTokenTTL),
	}
	if err := s.userRepo.CreateRefreshToken(refresh); err != nil {
		return nil, apperrors.ErrStorageUnavailable(err)
	}

	return &dto.AuthResponse{
		UserID:       user.ID,
		Email:        user.Email,
		Role:         string(user.Role),
		AccessToken:  accessToken,
		RefreshToken: refresh.Token,
	}, nil
}
