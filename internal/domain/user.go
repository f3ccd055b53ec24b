package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleFarmer Role = "farmer"
	RoleAdmin  Role = "admin"
)

func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleBuyer, RoleFarmer, RoleAdmin:
		return r, nil
	}
	return "", invalid("unknown role %q", s)
}

func (r Role) CanBuy() bool        { return r == RoleBuyer }
func (r Role) CanSell() bool       { return r == RoleFarmer }
func (r Role) CanAdminister() bool { return r == RoleAdmin }

type User struct {
	ID        string    `json:"uid"`
	FullName  string    `json:"fullName"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Address   string    `json:"address,omitempty"`
	City      string    `json:"city,omitempty"`
	Zip       string    `json:"zip,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// ShippingAddress joins the non-empty address parts of the profile.
func (u *User) ShippingAddress() string {
	var parts []string
	for _, p := range []string{u.Address, u.City, u.Zip} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func (u *User) Identity() Identity {
	return Identity{UserID: u.ID, Name: u.FullName, Role: u.Role}
}

// Identity is the authenticated caller as resolved from the auth provider.
type Identity struct {
	UserID string
	Name   string
	Role   Role
}

func (id Identity) Authenticated() bool {
	return id.UserID != ""
}
