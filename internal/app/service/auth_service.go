package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/neiios/dam-project-server/internal/common"
	"github.com/neiios/dam-project-server/internal/common/security"
	"github.com/neiios/dam-project-server/internal/domain/model"
	"github.com/neiios/dam-project-server/internal/domain/policy"
	"github.com/neiios/dam-project-server/internal/domain/repository"
)

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *security.TokenAuth
}

func NewAuthService(userRepo repository.UserRepository, tokens *security.TokenAuth) *AuthService {
	return &AuthService{userRepo: userRepo, tokens: tokens}
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User  *model.User `json:"user"`
	Token string      `json:"token"`
}

// Register creates a regular user. Admins only come from the startup seed.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	user, err := s.createUser(ctx, req.Name, req.Email, req.Password, model.RoleUser)
	if err != nil {
		return nil, err
	}
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, common.ErrBadRequest
	}

	user, err := s.userRepo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("invalid credentials: %w", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if !security.CheckPasswordHash(req.Password, user.HashedPassword) {
		return nil, fmt.Errorf("invalid credentials: %w", common.ErrUnauthorized)
	}
	return s.issue(user)
}

// Profile returns the stored user behind a principal.
func (s *AuthService) Profile(ctx context.Context, p *policy.Principal) (*model.User, error) {
	if p == nil {
		return nil, common.ErrUnauthorized
	}
	user, err := s.userRepo.FindByID(ctx, p.ID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrUnauthorized
		}
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}
	return user, nil
}

// Authenticate resolves verified token claims to a principal. The role is taken
// from the stored user, not the token, and a deleted user no longer authenticates.
func (s *AuthService) Authenticate(ctx context.Context, claims map[string]any) (*policy.Principal, error) {
	userID, err := security.GetUserIDFromClaims(claims)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, common.ErrUnauthorized)
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("token subject no longer exists: %w", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to resolve principal: %w", err)
	}
	return &policy.Principal{ID: user.ID, Role: user.Role}, nil
}

// EnsureAdmin creates the seed administrator unless a user with that e-mail exists.
func (s *AuthService) EnsureAdmin(ctx context.Context, name, email, password string) error {
	existing, err := s.userRepo.FindByEmail(ctx, normalizeEmail(email))
	if err == nil {
		if existing.Role != model.RoleAdmin {
			slog.WarnContext(ctx, "Seed admin e-mail belongs to a regular user; role left unchanged", "email", existing.Email)
		}
		return nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to look up seed admin: %w", err)
	}

	if _, err := s.createUser(ctx, name, email, password, model.RoleAdmin); err != nil {
		return fmt.Errorf("failed to create seed admin: %w", err)
	}
	slog.InfoContext(ctx, "Seed admin created", "email", normalizeEmail(email))
	return nil
}

func (s *AuthService) createUser(ctx context.Context, name, email, password, role string) (*model.User, error) {
	if name == "" || email == "" || password == "" {
		return nil, common.ErrBadRequest
	}
	if !model.IsValidRole(role) {
		return nil, fmt.Errorf("unknown role %q: %w", role, common.ErrBadRequest)
	}

	hashedPassword, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:           name,
		Email:          normalizeEmail(email),
		HashedPassword: hashedPassword,
		Role:           role,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		// Repo returns common.ErrConflict for a taken e-mail
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *AuthService) issue(user *model.User) (*AuthResponse, error) {
	token, err := s.tokens.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	user.HashedPassword = ""
	return &AuthResponse{User: user, Token: token}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
