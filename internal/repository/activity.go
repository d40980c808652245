package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fileshare/internal/model"
)

const defaultActivityLimit = 100

type ActivityRepository interface {
	Create(ctx context.Context, activity *model.UserActivity) error
	CreateMany(ctx context.Context, activities []*model.UserActivity, marks ...Mark) error
	List(ctx context.Context, filter model.ActivityFilter, search string) ([]*model.ActivityEntry, error)
}

type activityRepository struct {
	db *sqlx.DB
}

func NewActivityRepository(db *sqlx.DB) ActivityRepository {
	return &activityRepository{db: db}
}

const insertActivity = `INSERT INTO user_activities (id, user_id, activity_type, file_id, ip_address, created_at, metadata)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (r *activityRepository) Create(ctx context.Context, a *model.UserActivity) error {
	_, err := r.db.ExecContext(ctx, insertActivity,
		a.ID, a.UserID, a.ActivityType, a.FileID, a.IPAddress, a.CreatedAt, a.Metadata)
	return err
}

// Mark stamps rows as notified inside the transaction that records the
// matching notification activities.
type Mark func(ctx context.Context, tx sqlx.ExtContext) error

// AccessNotified marks downloads as reported to their share owner.
func AccessNotified(ids []string, at time.Time) Mark {
	return markNotified(`UPDATE file_downloads SET access_notified_at = ? WHERE id IN (?)`, ids, at)
}

// ExpiryNotified marks shares whose owner was warned about the expiry.
func ExpiryNotified(ids []string, at time.Time) Mark {
	return markNotified(`UPDATE file_shares SET expiry_notified_at = ? WHERE id IN (?)`, ids, at)
}

func markNotified(query string, ids []string, at time.Time) Mark {
	return func(ctx context.Context, tx sqlx.ExtContext) error {
		if len(ids) == 0 {
			return nil
		}
		q, args, err := sqlx.In(query, at, ids)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(q), args...)
		return err
	}
}

// CreateMany inserts all activities and applies marks in one transaction.
func (r *activityRepository) CreateMany(ctx context.Context, activities []*model.UserActivity, marks ...Mark) error {
	if len(activities) == 0 && len(marks) == 0 {
		return nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for _, a := range activities {
		_, err = tx.ExecContext(ctx, insertActivity,
			a.ID, a.UserID, a.ActivityType, a.FileID, a.IPAddress, a.CreatedAt, a.Metadata)
		if err != nil {
			return fmt.Errorf("failed to insert %s activity: %w", a.ActivityType, err)
		}
	}

	for _, mark := range marks {
		err = mark(ctx, tx)
		if err != nil {
			return fmt.Errorf("failed to mark notified rows: %w", err)
		}
	}

	return tx.Commit()
}

func (r *activityRepository) List(ctx context.Context, filter model.ActivityFilter, search string) ([]*model.ActivityEntry, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if filter.UserID != "" {
		add("a.user_id = $%d", filter.UserID)
	}
	if filter.FileID != "" {
		add("a.file_id = $%d", filter.FileID)
	}
	if filter.Start != nil {
		add("a.created_at >= $%d", filter.Start.UTC())
	}
	if filter.End != nil {
		add("a.created_at <= $%d", filter.End.UTC())
	}
	if strings.TrimSpace(search) != "" {
		args = append(args, likePattern(search))
		n := len(args)
		where = append(where, fmt.Sprintf(`(LOWER(a.activity_type) LIKE $%[1]d
			OR LOWER(COALESCE(f.file_name, '')) LIKE $%[1]d
			OR LOWER(COALESCE(p.username, '')) LIKE $%[1]d
			OR LOWER(COALESCE(p.full_name, '')) LIKE $%[1]d
			OR LOWER(COALESCE(a.ip_address, '')) LIKE $%[1]d)`, n))
	}

	limit := filter.Limit
	if limit <= 0 || limit > defaultActivityLimit {
		limit = defaultActivityLimit
	}

	query := `
		SELECT a.id, a.user_id, a.activity_type, a.file_id, a.ip_address, a.created_at, a.metadata,
		       p.username, p.full_name, f.file_name
		FROM user_activities a
		LEFT JOIN profiles p ON p.id = a.user_id
		LEFT JOIN file_shares f ON f.id = a.file_id`
	if len(where) > 0 {
		query += "\n\t\tWHERE " + strings.Join(where, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf("\n\t\tORDER BY a.created_at DESC\n\t\tLIMIT $%d", len(args))

	var entries []*model.ActivityEntry
	err := r.db.SelectContext(ctx, &entries, query, args...)
	if err != nil {
		return nil, err
	}
	return entries, nil
}
