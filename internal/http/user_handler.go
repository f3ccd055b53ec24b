package http

import (
	"context"
	"net/http"
	"time"

	"github.com/hema22923/AgriConnect/internal/domain"
	"github.com/hema22923/AgriConnect/internal/service"
)

type UserHandler struct {
	users   *service.UserService
	timeout time.Duration
}

func NewUserHandler(users *service.UserService, timeout time.Duration) *UserHandler {
	return &UserHandler{
		users:   users,
		timeout: timeout,
	}
}

type RegisterRequestDTO struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

type ProfileUpdateDTO struct {
	FullName *string `json:"fullName"`
	Address  *string `json:"address"`
	City     *string `json:"city"`
	Zip      *string `json:"zip"`
}

type UsersResponseDTO struct {
	Users []*domain.User `json:"users"`
}

// POST /api/v1/users/register
//
// The caller is not a user yet, so the uid is read from the header instead
// of the resolved identity.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RegisterRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.Register(ctx, r.Header.Get(UserIDHeader), service.Registration{
		FullName: req.FullName,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, u)
}

// GET /api/v1/users/me
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	u, err := h.users.Profile(ctx, getIdentity(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, u)
}

// PUT /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req ProfileUpdateDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	u, err := h.users.UpdateProfile(ctx, getIdentity(r.Context()), service.ProfileUpdate{
		FullName: req.FullName,
		Address:  req.Address,
		City:     req.City,
		Zip:      req.Zip,
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, u)
}

// GET /api/v1/admin/users
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	users, err := h.users.ListUsers(ctx, getIdentity(r.Context()))
	if err != nil {
		handleError(w, r, err)
		return
	}
	if users == nil {
		users = []*domain.User{}
	}
	respondJSON(w, r, http.StatusOK, UsersResponseDTO{Users: users})
}
