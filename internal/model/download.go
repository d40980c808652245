package model

import "time"

type FileDownload struct {
	ID               string     `db:"id" json:"id"`
	FileShareID      string     `db:"file_share_id" json:"file_share_id"`
	UserID           *string    `db:"user_id" json:"user_id"`
	IPAddress        *string    `db:"ip_address" json:"ip_address"`
	DownloadedAt     time.Time  `db:"downloaded_at" json:"downloaded_at"`
	AccessNotifiedAt *time.Time `db:"access_notified_at" json:"-"`
}

// OwnedDownload is a download joined with the owner and name of its share.
type OwnedDownload struct {
	ID           string    `db:"id"`
	FileShareID  string    `db:"file_share_id"`
	UserID       *string   `db:"user_id"`
	IPAddress    *string   `db:"ip_address"`
	DownloadedAt time.Time `db:"downloaded_at"`
	OwnerID      string    `db:"owner_id"`
	FileName     string    `db:"file_name"`
}

// SelfDownload reports whether the owner downloaded their own file.
func (d *OwnedDownload) SelfDownload() bool {
	return d.UserID != nil && *d.UserID == d.OwnerID
}
