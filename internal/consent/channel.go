// Package consent implements the consent broker: it prompts the interactive
// user through an isolated helper process and reads a single decision byte
// back over a one-shot anonymous pipe. Everything ambiguous resolves to a
// denial.
package consent

import (
	"context"
	"errors"

	"github.com/Wikid82/warden/internal/models"
)

// Wire protocol: the helper writes exactly one byte before closing its end.
const (
	DecisionByteDeny    byte = 0x00
	DecisionByteApprove byte = 0x01
)

// ErrNoDecision is returned when the pipe closes without a decision byte.
var ErrNoDecision = errors.New("consent channel closed without a decision")

// Prompt describes what the consent helper shows the user.
type Prompt struct {
	// Kind is Confirm or ReasonApproval; ReasonApproval prompts collect a
	// justification alongside the approval.
	Kind models.ElevationKind `json:"kind"`

	TargetPath        string   `json:"target_path"`
	TargetCommandLine []string `json:"target_command_line"`
	AccountName       string   `json:"account_name"`
	DomainName        string   `json:"domain_name"`

	// SecureDesktop asks the helper to present on the secure desktop when
	// the platform supports it.
	SecureDesktop bool `json:"secure_desktop"`
}

// Reply is what came back over the channel.
type Reply struct {
	Byte   byte
	Reason string
}

// DecisionChannel is the abstract one-decision-byte channel between the
// broker and the consent UI. The concrete transport (inherited pipe handle,
// named pipe, local socket) stays behind this interface.
type DecisionChannel interface {
	// Open provisions the transport and starts the consent UI.
	Open(prompt Prompt) error
	// ReadDecision blocks until a decision byte arrives, the channel closes,
	// or the context ends.
	ReadDecision(ctx context.Context) (Reply, error)
	// Close releases the transport and any UI-side resources. Safe to call
	// in every state.
	Close() error
}
