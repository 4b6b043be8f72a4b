package auth

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the user model
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`
	ID            uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email         string     `bun:"email,notnull,unique" json:"email"`
	FirstName     string     `bun:"first_name,notnull" json:"first_name"`
	LastName      string     `bun:"last_name,notnull" json:"last_name"`
	PasswordHash  string     `bun:"password_hash" json:"-"`
	IsStaff       bool       `bun:"is_staff,notnull,default:false" json:"is_staff"`
	LastLogin     *time.Time `bun:"last_login,nullzero" json:"last_login"`
	RefreshToken  string     `bun:"refresh_token,notnull,default:''" json:"-"`
	CreatedAt     *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt     *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// TokenPair is the credential pair returned by every login and refresh.
type TokenPair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

// UserView is the public projection of a User.
type UserView struct {
	Email     string     `json:"email"`
	FirstName string     `json:"first_name"`
	LastName  string     `json:"last_name"`
	LastLogin *time.Time `json:"last_login"`
	IsStaff   bool       `json:"is_staff"`
}

// LoginResult is the user's public fields merged with a fresh token pair.
type LoginResult struct {
	UserView
	TokenPair
}

// NewUserView projects u for display.
func NewUserView(u *User) UserView {
	if u == nil {
		return UserView{}
	}
	return UserView{
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		LastLogin: u.LastLogin,
		IsStaff:   u.IsStaff,
	}
}

// NewLoginResult merges the view of u with pair.
func NewLoginResult(u *User, pair TokenPair) *LoginResult {
	return &LoginResult{
		UserView:  NewUserView(u),
		TokenPair: pair,
	}
}
