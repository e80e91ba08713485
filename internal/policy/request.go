// Package policy holds the elevation request model, the versioned rule
// grammar and the evaluator that turns a launch request plus a profile into
// an elevation decision.
package policy

import (
	"errors"
	"time"

	"github.com/Wikid82/warden/internal/models"
)

// ErrMalformedRequest rejects requests missing required identity material.
// A request that cannot be fully identified is never silently approved.
var ErrMalformedRequest = errors.New("malformed elevation request")

// Hash carries both digests recorded for an executable.
type Hash struct {
	Sha1   string `json:"sha1"`
	Sha256 string `json:"sha256"`
}

// Signature is the signing verdict and issuer for an executable.
type Signature struct {
	Status models.SignatureStatus `json:"status"`
	Issuer string                 `json:"issuer,omitempty"`
}

// Application identifies one executable involved in an elevation request,
// either the asker or the launch target.
type Application struct {
	Path             string    `json:"path"`
	CommandLine      []string  `json:"command_line"`
	WorkingDirectory string    `json:"working_directory"`
	Hash             Hash      `json:"hash"`
	Signature        Signature `json:"signature"`
}

// ElevationRequest exists only in memory during evaluation; only its outcome
// is persisted.
type ElevationRequest struct {
	Asker                Application `json:"asker"`
	Target               Application `json:"target"`
	User                 models.User `json:"user"`
	UnixTimestampSeconds int64       `json:"unix_timestamp_seconds"`
}

// NewElevationRequest stamps a request with the current time.
func NewElevationRequest(asker, target Application, user models.User) ElevationRequest {
	return ElevationRequest{
		Asker:                asker,
		Target:               target,
		User:                 user,
		UnixTimestampSeconds: time.Now().Unix(),
	}
}

// Validate checks the request carries the identity material policy decisions
// depend on.
func (r *ElevationRequest) Validate() error {
	if r.Target.Path == "" {
		return ErrMalformedRequest
	}
	if r.Target.Hash.Sha1 == "" || r.Target.Hash.Sha256 == "" {
		return ErrMalformedRequest
	}
	if r.Target.Signature.Status == "" {
		return ErrMalformedRequest
	}
	return nil
}
