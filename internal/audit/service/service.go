package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/billable/internal/audit/domain"
	"github.com/smallbiznis/billable/internal/clock"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
}

type recorder struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
}

func New(p Params) domain.Recorder {
	return &recorder{
		db:    p.DB,
		log:   p.Log.Named("audit.recorder"),
		genID: p.GenID,
		clock: p.Clock,
	}
}

func (r *recorder) Record(ctx context.Context, e domain.Entry) {
	row := domain.Log{
		ID:           r.genID.Generate().Int64(),
		OrgID:        e.OrgID,
		ActorID:      e.ActorID,
		Action:       e.Action,
		ResourceType: e.ResourceType,
		ResourceID:   e.ResourceID,
		Detail:       e.Detail,
		CreatedAt:    r.clock.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		r.log.Warn("audit write failed",
			zap.String("action", e.Action),
			zap.Int64("org_id", e.OrgID),
			zap.Error(err),
		)
	}
}

func (r *recorder) List(ctx context.Context, orgID int64, limit int) ([]domain.Log, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []domain.Log
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM audit_logs WHERE org_id = ? ORDER BY created_at DESC LIMIT ?`, orgID, limit).
		Scan(&logs).Error
	return logs, err
}
