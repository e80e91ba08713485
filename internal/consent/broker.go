package consent

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/models"
)

// State is the broker position for one consent exchange.
type State int

const (
	StateIdle State = iota
	StateSpawning
	StateAwaitingDecision
	StateDecided
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateSpawning:
		return "Spawning"
	case StateAwaitingDecision:
		return "AwaitingDecision"
	case StateDecided:
		return "Decided"
	case StateClosed:
		return "Closed"
	}
	return "Unknown"
}

// Result is the broker's final word on one consent exchange. FailureKind
// distinguishes "user declined" from "system could not prompt" in the audit
// trail; the requester only ever sees approved or not.
type Result struct {
	Approved    bool
	Reason      string
	FailureKind models.FailureKind
}

// Broker runs consent exchanges. One prompt is in flight per session at a
// time; later requests for the same session queue. Each request gets its own
// channel, so decisions cannot cross-deliver.
type Broker struct {
	// NewChannel provisions the transport for one exchange.
	NewChannel func() DecisionChannel

	// Timeout bounds how long a prompt may stay unanswered.
	Timeout time.Duration

	// Trace, when set, observes state transitions. Used by tests.
	Trace func(State)

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// NewBroker builds a broker spawning channels via newChannel.
func NewBroker(newChannel func() DecisionChannel, timeout time.Duration) *Broker {
	return &Broker{
		NewChannel: newChannel,
		Timeout:    timeout,
		sessions:   make(map[string]*sync.Mutex),
	}
}

func (b *Broker) sessionLock(session string) *sync.Mutex {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessions == nil {
		b.sessions = make(map[string]*sync.Mutex)
	}
	mu, ok := b.sessions[session]
	if !ok {
		mu = &sync.Mutex{}
		b.sessions[session] = mu
	}
	return mu
}

func (b *Broker) transition(s State) {
	if b.Trace != nil {
		b.Trace(s)
	}
}

// Request runs one full consent exchange and always returns a usable result.
// Every failure path is a denial: spawn failure, timeout, junk bytes, a pipe
// closed without data, or the requester going away. The channel is released
// unconditionally.
func (b *Broker) Request(ctx context.Context, session string, prompt Prompt) Result {
	lock := b.sessionLock(session)
	lock.Lock()
	defer lock.Unlock()

	log := logger.WithFields(map[string]interface{}{
		"session": session,
		"target":  prompt.TargetPath,
		"kind":    string(prompt.Kind),
	})

	b.transition(StateIdle)
	b.transition(StateSpawning)

	ch := b.NewChannel()
	defer func() {
		_ = ch.Close()
		b.transition(StateClosed)
	}()

	if err := ch.Open(prompt); err != nil {
		log.WithField("error", err.Error()).Warn("consent helper failed to spawn")
		b.transition(StateDecided)
		return Result{FailureKind: models.FailureBrokerSpawn}
	}

	b.transition(StateAwaitingDecision)

	readCtx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	reply, err := ch.ReadDecision(readCtx)
	b.transition(StateDecided)

	switch {
	case err == nil && reply.Byte == DecisionByteApprove:
		log.Info("user approved elevation")
		return Result{Approved: true, Reason: reply.Reason}
	case err == nil && reply.Byte == DecisionByteDeny:
		log.Info("user denied elevation")
		return Result{FailureKind: models.FailureUserDeny}
	case err == nil:
		// Anything other than the two protocol bytes is a denial.
		log.WithField("byte", reply.Byte).Warn("unexpected consent byte, denying")
		return Result{FailureKind: models.FailureUserDeny}
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("consent prompt timed out")
		return Result{FailureKind: models.FailureBrokerTime}
	case errors.Is(err, context.Canceled):
		// The requester went away before a decision was reached.
		log.Warn("requester cancelled before consent decision")
		return Result{FailureKind: models.FailureBrokerTime}
	default:
		// Pipe closed without a byte: window closed, helper crashed.
		log.Info("consent channel closed without decision, denying")
		return Result{FailureKind: models.FailureUserDeny}
	}
}
