package model

import "time"

const (
	NotificationAccess = "notification_access"
	NotificationExpiry = "notification_expiry"
)

// Profile is the public face of a user. Its id equals the user id.
type Profile struct {
	ID                 string    `db:"id" json:"id"`
	Username           *string   `db:"username" json:"username"`
	FullName           *string   `db:"full_name" json:"full_name"`
	AvatarURL          *string   `db:"avatar_url" json:"avatar_url"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	IsAdmin            bool      `db:"is_admin" json:"is_admin"`
	NotificationAccess bool      `db:"notification_access" json:"notification_access"`
	NotificationExpiry bool      `db:"notification_expiry" json:"notification_expiry"`
}

// DisplayName prefers the full name, then the username.
func (p *Profile) DisplayName() string {
	if p == nil {
		return ""
	}
	if p.FullName != nil && *p.FullName != "" {
		return *p.FullName
	}
	if p.Username != nil {
		return *p.Username
	}
	return ""
}

// Wants reports whether the given notification flag is enabled.
func (p *Profile) Wants(field string) bool {
	switch field {
	case NotificationAccess:
		return p.NotificationAccess
	case NotificationExpiry:
		return p.NotificationExpiry
	}
	return false
}

func IsNotificationField(field string) bool {
	return field == NotificationAccess || field == NotificationExpiry
}

// UserStats is a profile with aggregated share totals.
type UserStats struct {
	Profile
	FileCount int64 `db:"file_count" json:"file_count"`
	TotalSize int64 `db:"total_size" json:"total_size"`
}
