package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/smallbiznis/billable/internal/auth/domain"
	"github.com/smallbiznis/billable/pkg/db"
)

type repository struct {
	db *gorm.DB
}

func Provide(gdb *gorm.DB) domain.Repository {
	return &repository{db: gdb}
}

func (r *repository) InsertUser(ctx context.Context, u *domain.User) error {
	err := db.Translate(r.db.WithContext(ctx).Create(u).Error)
	if errors.Is(err, db.ErrDuplicate) {
		return domain.ErrEmailTaken
	}
	return err
}

func (r *repository) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM users WHERE email = ?`, email).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, db.Translate(err)
	}
	return &u, nil
}

func (r *repository) FindUserByID(ctx context.Context, id int64) (*domain.User, error) {
	var u domain.User
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM users WHERE id = ?`, id).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, db.Translate(err)
	}
	return &u, nil
}

func (r *repository) InsertMember(ctx context.Context, m *domain.Member) error {
	return db.Translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *repository) FindMember(ctx context.Context, orgID, userID int64) (*domain.Member, error) {
	var m domain.Member
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM organization_members WHERE org_id = ? AND user_id = ?`, orgID, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, db.Translate(err)
	}
	return &m, nil
}

func (r *repository) FindPrimaryMember(ctx context.Context, userID int64) (*domain.Member, error) {
	var m domain.Member
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM organization_members WHERE user_id = ? ORDER BY created_at LIMIT 1`, userID).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, db.Translate(err)
	}
	return &m, nil
}

func (r *repository) InsertSession(ctx context.Context, s *domain.Session) error {
	return db.Translate(r.db.WithContext(ctx).Create(s).Error)
}

func (r *repository) FindSession(ctx context.Context, id string) (*domain.Session, error) {
	var s domain.Session
	err := r.db.WithContext(ctx).
		Raw(`SELECT * FROM sessions WHERE id = ?`, id).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, db.Translate(err)
	}
	return &s, nil
}

func (r *repository) DeleteSession(ctx context.Context, id string) error {
	return db.Translate(r.db.WithContext(ctx).
		Exec(`DELETE FROM sessions WHERE id = ?`, id).Error)
}
