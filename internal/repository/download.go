package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/templui/fileshare/internal/model"
)

type DownloadRepository interface {
	Create(ctx context.Context, download *model.FileDownload) error
	RecentUnnotified(ctx context.Context, limit int) ([]*model.OwnedDownload, error)
	MarkAccessNotified(ctx context.Context, ids []string, at time.Time) error
	Since(ctx context.Context, since time.Time) ([]*model.FileDownload, error)
}

type downloadRepository struct {
	db *sqlx.DB
}

func NewDownloadRepository(db *sqlx.DB) DownloadRepository {
	return &downloadRepository{db: db}
}

func (r *downloadRepository) Create(ctx context.Context, d *model.FileDownload) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO file_downloads (id, file_share_id, user_id, ip_address, downloaded_at)
		VALUES ($1, $2, $3, $4, $5)
	`, d.ID, d.FileShareID, d.UserID, d.IPAddress, d.DownloadedAt)
	return err
}

// RecentUnnotified returns the newest downloads not yet reported to their share owner.
func (r *downloadRepository) RecentUnnotified(ctx context.Context, limit int) ([]*model.OwnedDownload, error) {
	var downloads []*model.OwnedDownload
	err := r.db.SelectContext(ctx, &downloads, `
		SELECT d.id, d.file_share_id, d.user_id, d.ip_address, d.downloaded_at,
		       f.user_id AS owner_id, f.file_name
		FROM file_downloads d
		JOIN file_shares f ON f.id = d.file_share_id
		WHERE d.access_notified_at IS NULL
		ORDER BY d.downloaded_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	return downloads, nil
}

func (r *downloadRepository) MarkAccessNotified(ctx context.Context, ids []string, at time.Time) error {
	return AccessNotified(ids, at)(ctx, r.db)
}

func (r *downloadRepository) Since(ctx context.Context, since time.Time) ([]*model.FileDownload, error) {
	var downloads []*model.FileDownload
	err := r.db.SelectContext(ctx, &downloads, `
		SELECT id, file_share_id, user_id, ip_address, downloaded_at, access_notified_at
		FROM file_downloads
		WHERE downloaded_at >= $1
		ORDER BY downloaded_at
	`, since)
	if err != nil {
		return nil, err
	}
	return downloads, nil
}
