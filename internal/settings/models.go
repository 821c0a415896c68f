package settings

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Profile holds a participant's display and locale preferences.
type Profile struct {
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	FullName    string    `gorm:"size:255" json:"full_name"`
	DisplayName string    `gorm:"size:100" json:"display_name"`
	Phone       string    `gorm:"size:50" json:"phone"`
	Language    string    `gorm:"size:10;default:en" json:"language"`
	Timezone    string    `gorm:"size:50;default:UTC" json:"timezone"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Profile) TableName() string {
	return "settings_profiles"
}

// NotificationPreferences controls which pool events reach a participant
// and over which channels.
type NotificationPreferences struct {
	UserID         uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	EmailEnabled   bool           `gorm:"default:true" json:"email_enabled"`
	RealtimeEvents bool           `gorm:"default:true" json:"realtime_events"`
	Categories     datatypes.JSON `json:"categories"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

func (NotificationPreferences) TableName() string {
	return "settings_notification_preferences"
}

// UpdateProfileRequest is the mutable slice of a profile.
type UpdateProfileRequest struct {
	FullName    string `json:"full_name"`
	DisplayName string `json:"display_name"`
	Phone       string `json:"phone"`
	Language    string `json:"language"`
	Timezone    string `json:"timezone"`
}

// UpdateNotificationsRequest toggles delivery channels.
type UpdateNotificationsRequest struct {
	EmailEnabled   *bool          `json:"email_enabled"`
	RealtimeEvents *bool          `json:"realtime_events"`
	Categories     map[string]any `json:"categories"`
}
