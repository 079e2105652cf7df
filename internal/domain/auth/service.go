package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coduxa/coduxa-api/internal/domain/activity"
	"github.com/coduxa/coduxa-api/internal/domain/user"
	"github.com/coduxa/coduxa-api/internal/pkg/jwt"
	"github.com/coduxa/coduxa-api/internal/pkg/password"
)

// Service handles authentication business logic
type Service struct {
	userRepo   user.Repository
	jwtService *jwt.Service
	activities activity.Recorder // nil disables registration logging
}

// NewService creates auth service
func NewService(userRepo user.Repository, jwtService *jwt.Service, activities activity.Recorder) *Service {
	return &Service{
		userRepo:   userRepo,
		jwtService: jwtService,
		activities: activities,
	}
}

// Register creates new user account
func (s *Service) Register(ctx context.Context, req *RegisterRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)

	// 1. Check if email exists
	existing, _ := s.userRepo.GetByEmail(ctx, req.Email)
	if existing != nil {
		return nil, ErrEmailAlreadyExists
	}

	// 2. Hash password
	hash, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	// 3. Create user
	now := time.Now()
	u := &user.User{
		ID:           uuid.New(),
		Email:        req.Email,
		Username:     req.Username,
		PasswordHash: hash,
		Role:         user.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.userRepo.Create(ctx, u); err != nil {
		if err == user.ErrEmailTaken {
			return nil, ErrEmailAlreadyExists
		}
		return nil, err
	}

	s.recordRegistration(ctx, u)

	// 4. Generate tokens
	return s.generateTokens(u)
}

// Login authenticates user
func (s *Service) Login(ctx context.Context, req *LoginRequest) (*AuthResponse, error) {
	req.Email = normalizeEmail(req.Email)

	u, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil || u == nil {
		return nil, ErrInvalidCredentials
	}

	if !password.Verify(req.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokens(u)
}

// Refresh exchanges a valid refresh token for a fresh token pair
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*AuthResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	u, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}

	return s.generateTokens(u)
}

// GetCurrentUser returns current user by ID
func (s *Service) GetCurrentUser(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return nil, ErrUserNotFound
	}
	resp := newUserResponse(u)
	return &resp, nil
}

// generateTokens creates access and refresh tokens
func (s *Service) generateTokens(u *user.User) (*AuthResponse, error) {
	accessToken, err := s.jwtService.GenerateAccessToken(u.ID, u.Role)
	if err != nil {
		return nil, err
	}

	refreshToken, _, err := s.jwtService.GenerateRefreshToken(u.ID)
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User: newUserResponse(u),
		Tokens: TokensResponse{
			AccessToken:      accessToken,
			RefreshToken:     refreshToken,
			ExpiresIn:        int(s.jwtService.GetAccessTTL().Seconds()),
			RefreshExpiresIn: int(s.jwtService.GetRefreshTTL().Seconds()),
		},
	}, nil
}

// recordRegistration writes a user_registration activity entry.
// Failures are logged, never surfaced: signup must not depend on the log.
func (s *Service) recordRegistration(ctx context.Context, u *user.User) {
	if s.activities == nil {
		return
	}
	entry := &activity.Entry{
		ID:          uuid.New(),
		Type:        activity.TypeUserRegistration,
		UserID:      u.ID.String(),
		Description: "New user registered: " + u.Username,
		CreatedAt:   time.Now(),
	}
	if err := s.activities.Insert(ctx, entry); err != nil {
		log.Warn().Err(err).Str("user_id", u.ID.String()).Msg("failed to record registration activity")
	}
}

func newUserResponse(u *user.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}
