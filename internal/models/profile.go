package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ElevationKind is the policy outcome category for a launch request.
type ElevationKind string

const (
	ElevationAutoApprove    ElevationKind = "AutoApprove"
	ElevationConfirm        ElevationKind = "Confirm"
	ElevationReasonApproval ElevationKind = "ReasonApproval"
	ElevationDeny           ElevationKind = "Deny"
)

// Valid reports whether the kind is one of the four policy outcomes.
func (k ElevationKind) Valid() bool {
	switch k {
	case ElevationAutoApprove, ElevationConfirm, ElevationReasonApproval, ElevationDeny:
		return true
	}
	return false
}

// ElevationMethod selects how an approved launch acquires privileges.
type ElevationMethod string

const (
	MethodLocalAdmin     ElevationMethod = "LocalAdmin"
	MethodVirtualAccount ElevationMethod = "VirtualAccount"
)

// RuleStrings stores the profile rule documents as a JSON text column.
type RuleStrings []string

func (r RuleStrings) Value() (driver.Value, error) {
	if r == nil {
		r = RuleStrings{}
	}
	b, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (r *RuleStrings) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*r = RuleStrings{}
		return nil
	case []byte:
		return json.Unmarshal(v, r)
	case string:
		return json.Unmarshal([]byte(v), r)
	default:
		return fmt.Errorf("unsupported rules column type %T", value)
	}
}

// Profile specifies which type of elevation is done for the users it is
// assigned to. External identity is the UUID; the numeric ID never leaves
// the database layer.
type Profile struct {
	ID        uint      `gorm:"primarykey" json:"-"`
	UUID      string    `gorm:"uniqueIndex;not null" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `json:"description"`

	ElevationMethod      ElevationMethod `gorm:"default:LocalAdmin" json:"elevation_method"`
	DefaultElevationKind ElevationKind   `gorm:"not null" json:"default_elevation_kind"`

	// TargetMustBeSigned is a hard override: an unsigned or invalidly signed
	// target is denied no matter what the rules say.
	TargetMustBeSigned  bool `json:"target_must_be_signed"`
	PromptSecureDesktop bool `json:"prompt_secure_desktop"`

	// Rules holds versioned JSON rule documents, evaluated in order.
	Rules RuleStrings `gorm:"type:text" json:"rules"`
}

// BeforeCreate generates a UUID for new profiles.
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.UUID == "" {
		p.UUID = uuid.New().String()
	}
	return nil
}
