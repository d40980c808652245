package model

import (
	"time"
)

type FileShare struct {
	ID               string     `db:"id" json:"id"`
	UserID           string     `db:"user_id" json:"user_id"`
	FileName         string     `db:"file_name" json:"file_name"`
	FileSize         int64      `db:"file_size" json:"file_size"`
	FilePath         *string    `db:"file_path" json:"file_path,omitempty"` // Storage key
	FileURL          *string    `db:"file_url" json:"file_url,omitempty"`
	ShareLink        string     `db:"share_link" json:"share_link"`
	MimeType         string     `db:"mime_type" json:"mime_type"`
	Message          string     `db:"message" json:"message,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt        time.Time  `db:"expires_at" json:"expires_at"`
	ExpiryNotifiedAt *time.Time `db:"expiry_notified_at" json:"-"`
}

func (f *FileShare) Expired(now time.Time) bool {
	return !now.Before(f.ExpiresAt)
}

func (f *FileShare) StorageKey() string {
	if f.FilePath == nil {
		return ""
	}
	return *f.FilePath
}

// FlaggedFile is a large share joined with its owner's names.
type FlaggedFile struct {
	FileShare
	OwnerUsername *string `db:"owner_username" json:"owner_username"`
	OwnerFullName *string `db:"owner_full_name" json:"owner_full_name"`
}

// OwnedShare is a share listed for its owner with its download total.
type OwnedShare struct {
	FileShare
	DownloadCount int64 `db:"download_count" json:"download_count"`
}

// ExpiringShare is a share about to expire, scanned by the notification job.
type ExpiringShare struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	FileName  string    `db:"file_name"`
	ExpiresAt time.Time `db:"expires_at"`
}
