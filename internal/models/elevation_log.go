package models

// SignatureStatus mirrors the authenticode verdict recorded for a target
// executable.
type SignatureStatus string

const (
	SignatureValid                  SignatureStatus = "Valid"
	SignatureIncompatible           SignatureStatus = "Incompatible"
	SignatureNotSigned              SignatureStatus = "NotSigned"
	SignatureHashMismatch           SignatureStatus = "HashMismatch"
	SignatureNotSupportedFileFormat SignatureStatus = "NotSupportedFileFormat"
	SignatureNotTrusted             SignatureStatus = "NotTrusted"
)

// FailureKind distinguishes why a denied elevation was denied, for operator
// diagnosis. It never changes the outcome, only the audit trail.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailurePolicyDeny  FailureKind = "PolicyDeny"
	FailureUserDeny    FailureKind = "UserDeny"
	FailureSignature   FailureKind = "SignatureInvalid"
	FailureBrokerSpawn FailureKind = "BrokerSpawnFailed"
	FailureBrokerTime  FailureKind = "BrokerTimeout"
	FailureNoProfile   FailureKind = "NoProfile"
	FailureMalformed   FailureKind = "MalformedRequest"
)

// JitElevationLog is one append-only audit row per decided elevation attempt.
// Rows are never mutated or deleted by the daemon; the auto-incrementing ID
// doubles as the stable pagination cursor.
type JitElevationLog struct {
	ID      uint `gorm:"primarykey" json:"id"`
	Success bool `json:"success"`

	// TimestampMicros is the decision time in microseconds since the Unix
	// epoch. Microsecond precision is part of the storage contract.
	TimestampMicros int64 `gorm:"index;not null" json:"timestamp_micros"`

	AskerPath              string `json:"asker_path"`
	TargetPath             string `gorm:"index" json:"target_path"`
	TargetCommandLine      string `json:"target_command_line"`
	TargetWorkingDirectory string `json:"target_working_directory"`
	TargetSha1             string `json:"target_sha1"`
	TargetSha256           string `json:"target_sha256"`

	SignatureStatus SignatureStatus `json:"signature_status"`
	SignatureIssuer string          `json:"signature_issuer,omitempty"`

	UserID *uint `gorm:"index" json:"-"`
	User   *User `json:"user,omitempty"`

	// Reason is the free-text justification captured by a ReasonApproval
	// consent prompt.
	Reason string `json:"reason,omitempty"`

	FailureKind FailureKind `json:"failure_kind,omitempty"`
}
