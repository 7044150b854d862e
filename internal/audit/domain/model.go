package domain

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

type Log struct {
	ID           int64             `gorm:"primaryKey" json:"id,string"`
	OrgID        int64             `gorm:"index;not null" json:"org_id,string"`
	ActorID      int64             `json:"actor_id,string"`
	Action       string            `gorm:"not null" json:"action"`
	ResourceType string            `gorm:"not null" json:"resource_type"`
	ResourceID   int64             `json:"resource_id,string"`
	Detail       datatypes.JSONMap `json:"detail,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

func (Log) TableName() string { return "audit_logs" }

type Entry struct {
	OrgID        int64
	ActorID      int64
	Action       string
	ResourceType string
	ResourceID   int64
	Detail       map[string]any
}

// Recorder appends audit entries. Recording is best effort; callers must
// not fail a business operation because the audit write failed.
type Recorder interface {
	Record(ctx context.Context, e Entry)
	List(ctx context.Context, orgID int64, limit int) ([]Log, error)
}
