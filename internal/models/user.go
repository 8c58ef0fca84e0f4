package models

import "time"

// Role is the coarse authorization category of a user.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UserProfile is the account returned by GET api/users/me/.
// Profiles are created server side; the client only reads them and
// updates username and email.
type UserProfile struct {
	ID       int64     `json:"id" yaml:"id"`
	Username string    `json:"username" yaml:"username"`
	Email    string    `json:"email" yaml:"email"`
	Role     Role      `json:"roles" yaml:"role"`
	Active   bool      `json:"is_active" yaml:"active"`
	JoinedAt time.Time `json:"date_joined" yaml:"joined_at"`
}

// IsAdmin returns true if the profile carries the admin role.
func (p *UserProfile) IsAdmin() bool {
	return p != nil && p.Role == RoleAdmin
}

// Credentials are the username and password sent to the login endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the body of POST api/users/register/.
type Registration struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

// TokenPair is the login response.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// ProfileUpdate is a partial profile update; empty fields are omitted.
type ProfileUpdate struct {
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

// AdminUser is a user as managed from the admin screens.
type AdminUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password,omitempty"`
	Role     Role   `json:"roles"`
}
