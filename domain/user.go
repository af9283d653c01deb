package domain

import (
	"context"
	"time"
)

const (
	// RoleUser is the default role of a registered user.
	RoleUser = "user"
	// RoleAdmin marks a user whose actions override ownership checks.
	RoleAdmin = "admin"
)

// User represents a registered account. The User doubles as the acting
// principal of a request: handlers resolve it once from the session cookie
// and pass it down explicitly, a nil *User means the request is anonymous.
type User struct {
	ID       int    `json:"id"`
	Username string `json:"username" gorm:"uniqueIndex"`
	Name     string `json:"name"`
	Email    string `json:"email" gorm:"uniqueIndex"`
	Avatar   string `json:"avatar"`
	Bio      string `json:"bio"`
	Role     string `json:"role" gorm:"default:user"`

	Password     string `json:"password,omitempty" gorm:"-"`
	PasswordHash string `json:"-"`
	Remember     string `json:"-" gorm:"-"`
	RememberHash string `json:"-"`

	IsVerified bool   `json:"is_verified"`
	VerifyCode string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsAdmin reports whether the user carries the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// StripPrivate clears everything that is not part of a user's public
// profile. Authors embedded in loop and comment payloads, and profiles
// viewed by strangers, only expose username, name, avatar and bio.
func (u *User) StripPrivate() {
	if u == nil {
		return
	}
	u.Email = ""
	u.Role = ""
	u.IsVerified = false
}

// UserUpdate holds a partial profile update. Nil fields are left untouched.
type UserUpdate struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Email    *string `json:"email"`
	Avatar   *string `json:"avatar"`
	Bio      *string `json:"bio"`
}

// UserService is a set of methods to manipulate and work with the User model.
// Mutating methods that act on another user's record take the acting user so
// the ownership-or-admin rule can be applied before anything is written.
type UserService interface {
	ByID(id int) (*User, error)
	ByEmail(email string) (*User, error)
	ByRemember(token string) (*User, error)
	All(actor *User) ([]User, error)
	Authenticate(email, password string) (*User, error)
	Create(ctx context.Context, user *User) error
	Update(ctx context.Context, user *User) error
	UpdateProfile(ctx context.Context, actor *User, id int, upd *UserUpdate) (*User, error)
	Delete(ctx context.Context, actor *User, id int) error
	Verify(ctx context.Context, email, code string) error
}
