package domain

import "time"

// Role distinguishes administrative accounts from regular shoppers.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Account is the domain model for a registered shopper or admin.
// PasswordHash never crosses the trust boundary; every external
// representation goes through Public().
type Account struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Role         Role
	IsBanned     bool
	IsVerified   bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicAccount is the single projection of an Account that may be
// serialized to clients. Constructed only by Account.Public, so the
// password hash cannot leak through an ad-hoc field list.
type PublicAccount struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	Role        Role       `json:"role"`
	IsBanned    bool       `json:"isBanned"`
	IsVerified  bool       `json:"isVerified"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Public returns the externally visible view of the account.
func (a *Account) Public() PublicAccount {
	return PublicAccount{
		ID:          a.ID,
		Email:       a.Email,
		Name:        a.Name,
		Role:        a.Role,
		IsBanned:    a.IsBanned,
		IsVerified:  a.IsVerified,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
		UpdatedAt:   a.UpdatedAt,
	}
}
