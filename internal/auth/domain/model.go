package domain

import (
	"context"
	"errors"
	"time"
)

const (
	RoleOwner  = "OWNER"
	RoleAdmin  = "ADMIN"
	RoleMember = "MEMBER"
)

type User struct {
	ID           int64     `gorm:"primaryKey" json:"id,string"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	DisplayName  string    `json:"display_name"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

type Member struct {
	OrgID     int64     `gorm:"primaryKey" json:"org_id,string"`
	UserID    int64     `gorm:"primaryKey" json:"user_id,string"`
	Role      string    `gorm:"not null" json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func (Member) TableName() string { return "organization_members" }

type Session struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    int64     `gorm:"index;not null" json:"user_id,string"`
	OrgID     int64     `gorm:"not null" json:"org_id,string"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

func (Session) TableName() string { return "sessions" }

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailTaken         = errors.New("email_already_registered")
	ErrWeakPassword       = errors.New("password_too_short")
	ErrSessionNotFound    = errors.New("session_not_found")
	ErrSessionExpired     = errors.New("session_expired")
)

type SignupInput struct {
	Email            string `json:"email" binding:"required,email"`
	Password         string `json:"password" binding:"required"`
	DisplayName      string `json:"display_name"`
	OrganizationName string `json:"organization_name" binding:"required"`
}

type SigninInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// Identity is the resolved view of a live session.
type Identity struct {
	SessionID string `json:"-"`
	UserID    int64  `json:"user_id,string"`
	OrgID     int64  `json:"org_id,string"`
	Role      string `json:"role"`
	Email     string `json:"email"`
}

type Service interface {
	Signup(ctx context.Context, in SignupInput) (*Identity, error)
	Signin(ctx context.Context, in SigninInput) (*Identity, error)
	Signout(ctx context.Context, sessionID string) error
	Resolve(ctx context.Context, sessionID string) (*Identity, error)
}

type Repository interface {
	InsertUser(ctx context.Context, u *User) error
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id int64) (*User, error)
	InsertMember(ctx context.Context, m *Member) error
	FindMember(ctx context.Context, orgID, userID int64) (*Member, error)
	FindPrimaryMember(ctx context.Context, userID int64) (*Member, error)
	InsertSession(ctx context.Context, s *Session) error
	FindSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
}
