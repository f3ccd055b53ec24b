package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/hema22923/AgriConnect/internal/logger"
	"github.com/hema22923/AgriConnect/internal/repository"
	"github.com/rs/zerolog"
)

type UserService struct {
	users repository.UserRepository
	log   zerolog.Logger
	now   func() time.Time
}

func NewUserService(users repository.UserRepository, log zerolog.Logger) *UserService {
	return &UserService{users: users, log: log, now: time.Now}
}

type Registration struct {
	FullName string
	Email    string
	Role     string
}

// ProfileUpdate holds optional profile changes; nil fields are kept.
type ProfileUpdate struct {
	FullName *string
	Address  *string
	City     *string
	Zip      *string
}

// Register creates the profile of an account the auth provider already
// knows as uid. Admins cannot self-register.
func (s *UserService) Register(ctx context.Context, uid string, reg Registration) (*domain.User, error) {
	if uid == "" {
		return nil, domain.ErrAuthRequired
	}

	name := strings.TrimSpace(reg.FullName)
	if name == "" {
		return nil, fmt.Errorf("%w: fullName is required", domain.ErrInvalidArgument)
	}
	email, err := normalizeEmail(reg.Email)
	if err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(reg.Role)
	if err != nil {
		return nil, err
	}
	if role == domain.RoleAdmin {
		return nil, fmt.Errorf("%w: admin accounts cannot be self-registered", domain.ErrForbidden)
	}

	u := &domain.User{
		ID:        uid,
		FullName:  name,
		Email:     email,
		Role:      role,
		CreatedAt: s.now().UTC(),
	}
	if err := s.create(ctx, u); err != nil {
		return nil, err
	}

	logger.FromContext(ctx, s.log).Info().
		Str("user_id", uid).
		Str("role", string(role)).
		Msg("user registered")
	return u, nil
}

// EnsureAdmin creates the bootstrap admin account if it does not exist yet.
func (s *UserService) EnsureAdmin(ctx context.Context, uid, email string) error {
	if uid == "" {
		return nil
	}
	if _, err := s.users.GetUser(ctx, uid); err == nil {
		return nil
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup admin: %w", err)
	}

	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}
	admin := &domain.User{
		ID:        uid,
		FullName:  "Administrator",
		Email:     normalized,
		Role:      domain.RoleAdmin,
		CreatedAt: s.now().UTC(),
	}
	if err := s.create(ctx, admin); err != nil && !errors.Is(err, domain.ErrAlreadyExists) {
		return err
	}
	return nil
}

func (s *UserService) create(ctx context.Context, u *domain.User) error {
	if _, err := s.users.GetUserByEmail(ctx, u.Email); err == nil {
		return fmt.Errorf("%w: email %s is already registered", domain.ErrAlreadyExists, u.Email)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("lookup email: %w", err)
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// Identity resolves uid into the caller identity used for authorization.
// Unknown users are unauthenticated.
func (s *UserService) Identity(ctx context.Context, uid string) (domain.Identity, error) {
	if uid == "" {
		return domain.Identity{}, domain.ErrAuthRequired
	}
	u, err := s.users.GetUser(ctx, uid)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Identity{}, domain.ErrAuthRequired
		}
		return domain.Identity{}, err
	}
	return u.Identity(), nil
}

func (s *UserService) Profile(ctx context.Context, id domain.Identity) (*domain.User, error) {
	if !id.Authenticated() {
		return nil, domain.ErrAuthRequired
	}
	return s.users.GetUser(ctx, id.UserID)
}

func (s *UserService) UpdateProfile(ctx context.Context, id domain.Identity, upd ProfileUpdate) (*domain.User, error) {
	if !id.Authenticated() {
		return nil, domain.ErrAuthRequired
	}
	u, err := s.users.GetUser(ctx, id.UserID)
	if err != nil {
		return nil, err
	}

	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if name == "" {
			return nil, fmt.Errorf("%w: fullName cannot be empty", domain.ErrInvalidArgument)
		}
		u.FullName = name
	}
	if upd.Address != nil {
		u.Address = strings.TrimSpace(*upd.Address)
	}
	if upd.City != nil {
		u.City = strings.TrimSpace(*upd.City)
	}
	if upd.Zip != nil {
		u.Zip = strings.TrimSpace(*upd.Zip)
	}

	if err := s.users.UpdateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return u, nil
}

func (s *UserService) ListUsers(ctx context.Context, id domain.Identity) ([]*domain.User, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return s.users.ListUsers(ctx)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", fmt.Errorf("%w: invalid email %q", domain.ErrInvalidArgument, email)
	}
	return email, nil
}
