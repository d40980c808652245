package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

const (
	ActivityUpload             = "upload"
	ActivityView               = "view"
	ActivityDownload           = "download"
	ActivityDelete             = "delete"
	ActivityAccessNotification = "access_notification"
	ActivityExpiryNotification = "expiry_notification"
	ActivitySignUp             = "sign_up"
	ActivitySignIn             = "sign_in"
	ActivitySignOut            = "sign_out"
)

// Metadata is a JSON object stored in a text column.
type Metadata map[string]any

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (m *Metadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = Metadata{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	out := Metadata{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return err
		}
	}
	*m = out
	return nil
}

type UserActivity struct {
	ID           string    `db:"id" json:"id"`
	UserID       *string   `db:"user_id" json:"user_id"`
	ActivityType string    `db:"activity_type" json:"activity_type"`
	FileID       *string   `db:"file_id" json:"file_id"`
	IPAddress    *string   `db:"ip_address" json:"ip_address"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	Metadata     Metadata  `db:"metadata" json:"metadata"`
}

// ActivityEntry is an activity joined with the actor's profile and file name.
type ActivityEntry struct {
	UserActivity
	Username *string `db:"username" json:"username"`
	FullName *string `db:"full_name" json:"full_name"`
	FileName *string `db:"file_name" json:"file_name"`
}

// ActivityFilter narrows the activity log. Zero values mean no filter.
type ActivityFilter struct {
	UserID string
	FileID string
	Start  *time.Time
	End    *time.Time
	Limit  int
}
