package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"

	"github.com/smallbiznis/billable/pkg/db"
)

type Client struct {
	ID        int64             `gorm:"primaryKey" json:"id,string"`
	OrgID     int64             `gorm:"index;not null" json:"org_id,string"`
	Name      string            `gorm:"not null" json:"name"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	Company   string            `json:"company"`
	Address   string            `json:"address"`
	Notes     string            `json:"notes"`
	Metadata  datatypes.JSONMap `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (Client) TableName() string { return "clients" }

var (
	ErrNotFound     = errors.New("client_not_found")
	ErrInvalidName  = errors.New("client_name_required")
	ErrInvalidEmail = errors.New("client_email_invalid")
)

type UpsertInput struct {
	Name     string         `json:"name" binding:"required"`
	Email    string         `json:"email"`
	Phone    string         `json:"phone"`
	Company  string         `json:"company"`
	Address  string         `json:"address"`
	Notes    string         `json:"notes"`
	Metadata map[string]any `json:"metadata"`
}

type ListFilter struct {
	db.Pagination
	Search string `form:"q"`
}

type Service interface {
	Create(ctx context.Context, orgID int64, in UpsertInput) (*Client, error)
	Get(ctx context.Context, orgID, id int64) (*Client, error)
	List(ctx context.Context, orgID int64, f ListFilter) ([]Client, int64, error)
	Update(ctx context.Context, orgID, id int64, in UpsertInput) (*Client, error)
	Delete(ctx context.Context, orgID, id int64) error
}

type Repository interface {
	Insert(ctx context.Context, c *Client) error
	FindByID(ctx context.Context, orgID, id int64) (*Client, error)
	FindByOrg(ctx context.Context, orgID int64, f ListFilter) ([]Client, int64, error)
	Update(ctx context.Context, c *Client) error
	Delete(ctx context.Context, orgID, id int64) error
}
