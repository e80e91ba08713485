package models

import "time"

// Run records one daemon process start, correlating audit rows and requests
// to a specific server instance and IPC endpoint generation.
type Run struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	StartTime time.Time `gorm:"not null" json:"start_time"`
	PipeName  string    `gorm:"not null" json:"pipe_name"`
}

// HTTPRequest is one row per API call, written by middleware after the
// response completes. There is deliberately no foreign key from
// ElevateTmpRequest.ReqID: the insert race is tolerated and correlation is
// best-effort by id.
type HTTPRequest struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	At         time.Time `gorm:"not null" json:"at"`
	Method     string    `gorm:"not null" json:"method"`
	Path       string    `gorm:"not null" json:"path"`
	StatusCode int       `gorm:"not null" json:"status_code"`
}

// ElevateTmpRequest is a time-boxed session elevation grant.
type ElevateTmpRequest struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	// ReqID is the HTTP request id that created the grant. No FK by design.
	ReqID     uint      `gorm:"index" json:"req_id"`
	UserID    uint      `gorm:"index;not null" json:"-"`
	User      User      `gorm:"constraint:OnDelete:CASCADE" json:"user"`
	Seconds   int       `gorm:"not null" json:"seconds"`
	ExpiresAt time.Time `gorm:"index;not null" json:"expires_at"`
	Revoked   bool      `gorm:"default:false" json:"revoked"`
}

// SchemaVersion tracks the installed schema generation. The daemon refuses
// to start against a version it does not understand.
type SchemaVersion struct {
	ID      uint `gorm:"primarykey" json:"-"`
	Version int  `gorm:"not null" json:"version"`
}
