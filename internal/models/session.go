package models

import "time"

// Session is the server-side record behind the authToken cookie. The backend
// token is stored sealed; see session.Sealer.
type Session struct {
	ID          string    `gorm:"primaryKey;size:36" json:"id"`
	UserID      int64     `gorm:"not null;index" json:"user_id"`
	Email       string    `gorm:"size:255" json:"email"`
	Name        string    `gorm:"size:255" json:"name"`
	Role        string    `gorm:"size:20;not null;index" json:"role"`
	TokenSealed []byte    `gorm:"type:blob;not null" json:"-"`
	IP          string    `gorm:"size:45" json:"ip"`
	UserAgent   string    `gorm:"size:512" json:"user_agent"`
	ExpiresAt   time.Time `gorm:"not null;index" json:"expires_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Session) TableName() string {
	return "dashboard_sessions"
}
