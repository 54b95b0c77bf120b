package entity

import (
	"time"

	"github.com/google/uuid"
)

// LoginLog is append-only; the application never updates or deletes rows.
type LoginLog struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Timestamp      time.Time `gorm:"autoCreateTime;index" json:"timestamp"`
	IPAddress      *string   `gorm:"size:45" json:"ip_address"`
	Successful     bool      `gorm:"default:false" json:"successful"`
	Scope          string    `gorm:"size:20" json:"scope"`
	Browser        *string   `gorm:"size:100" json:"browser"`
	BrowserVersion *string   `gorm:"size:20" json:"browser_version"`
	Device         *string   `gorm:"size:100" json:"device"`
}
