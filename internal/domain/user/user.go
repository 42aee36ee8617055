package user

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrIDRequired          = errors.New("user: id is required")
	ErrEmailRequired       = errors.New("user: email is required")
	ErrPasswordHashMissing = errors.New("user: password hash is required")
	ErrNameRequired        = errors.New("user: name is required")
	ErrInvalidRole         = errors.New("user: invalid role")
	ErrEmailAlreadyUsed    = errors.New("user: email already used")
	ErrNotFound            = errors.New("user: not found")
)

type ID string

type Role string

const (
	// RoleMember can list items, rent items, message and review.
	RoleMember Role = "member"
	// RoleAdmin moderates listings (approve/reject).
	RoleAdmin Role = "admin"
)

// KnownRoles lists roles the platform recognizes.
var KnownRoles = []Role{RoleMember, RoleAdmin}

// Verification holds the identity checks a profile has passed. Trust tiers
// are derived from these flags plus rental history; see the trust package.
type Verification struct {
	Email     bool
	Phone     bool
	Community bool
}

type User struct {
	ID           ID
	Email        string
	Name         string
	Phone        string
	AvatarURL    string
	PasswordHash string
	Roles        []Role
	Verified     Verification
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository interface {
	ByID(ctx context.Context, id ID) (*User, error)
	ByEmail(ctx context.Context, email string) (*User, error)
	Save(ctx context.Context, user *User) error
}

type CreateParams struct {
	ID           ID
	Email        string
	Name         string
	Phone        string
	PasswordHash string
	Roles        []Role
	CreatedAt    time.Time
}

func NewUser(params CreateParams) (*User, error) {
	id := strings.TrimSpace(string(params.ID))
	if id == "" {
		return nil, ErrIDRequired
	}
	email := normalizeEmail(params.Email)
	if email == "" {
		return nil, ErrEmailRequired
	}
	if strings.TrimSpace(params.PasswordHash) == "" {
		return nil, ErrPasswordHashMissing
	}
	name := strings.TrimSpace(params.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	now := params.CreatedAt
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()

	roles, err := normalizeRoles(params.Roles)
	if err != nil {
		return nil, err
	}
	if len(roles) == 0 {
		roles = []Role{RoleMember}
	}

	return &User{
		ID:           ID(id),
		Email:        email,
		Name:         name,
		Phone:        strings.TrimSpace(params.Phone),
		PasswordHash: params.PasswordHash,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (u *User) HasRole(role Role) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GrantRole adds a role if the user does not hold it yet.
func (u *User) GrantRole(role Role, now time.Time) {
	if u.HasRole(role) {
		return
	}
	u.Roles = append(u.Roles, role)
	u.UpdatedAt = now.UTC()
}

// MarkEmailVerified flips the email verification flag.
func (u *User) MarkEmailVerified(now time.Time) {
	u.Verified.Email = true
	u.UpdatedAt = now.UTC()
}

// MarkPhoneVerified flips the phone verification flag.
func (u *User) MarkPhoneVerified(now time.Time) {
	u.Verified.Phone = true
	u.UpdatedAt = now.UTC()
}

// MarkCommunityVerified records a community invite verification.
func (u *User) MarkCommunityVerified(now time.Time) {
	u.Verified.Community = true
	u.UpdatedAt = now.UTC()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func normalizeRoles(roles []Role) ([]Role, error) {
	out := make([]Role, 0, len(roles))
	seen := make(map[Role]struct{}, len(roles))
	for _, role := range roles {
		role = Role(strings.ToLower(strings.TrimSpace(string(role))))
		if role == "" {
			continue
		}
		valid := false
		for _, known := range KnownRoles {
			if role == known {
				valid = true
				break
			}
		}
		if !valid {
			return nil, ErrInvalidRole
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	return out, nil
}
