package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Wikid82/warden/internal/consent"
	"github.com/Wikid82/warden/internal/launcher"
	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/metrics"
	"github.com/Wikid82/warden/internal/models"
	"github.com/Wikid82/warden/internal/policy"
)

var (
	ErrMalformedLaunch = errors.New("malformed launch request")
	ErrLaunchDenied    = errors.New("elevation denied")
)

// SignatureFunc resolves the signing verdict of an executable. The default
// reports NotSigned, so signed-target policies fail closed on platforms
// without authenticode verification.
type SignatureFunc func(path string) policy.Signature

func defaultSignature(string) policy.Signature {
	return policy.Signature{Status: models.SignatureNotSigned}
}

// LaunchRequest is the API payload for an elevated launch.
type LaunchRequest struct {
	User             models.User `json:"-"`
	Session          string      `json:"-"`
	AskerPath        string      `json:"asker_path"`
	TargetPath       string      `json:"target_path" binding:"required"`
	CommandLine      []string    `json:"command_line"`
	WorkingDirectory string      `json:"working_directory"`
}

// LaunchOutcome is the decided result of a launch request.
type LaunchOutcome struct {
	Approved bool                   `json:"approved"`
	Kind     models.ElevationKind   `json:"kind"`
	LogID    uint                   `json:"log_id"`
	Process  *launcher.LaunchResult `json:"process,omitempty"`
}

// ElevationService composes the evaluator, the consent broker, the audit log
// and the launcher into the /launch operation.
type ElevationService struct {
	policies  *PolicyService
	audit     *AuditService
	broker    *consent.Broker
	notifier  *NotificationService
	launcher  launcher.Launcher
	evaluator policy.Evaluator

	// Signature is swappable for tests and platforms with real verification.
	Signature SignatureFunc
}

func NewElevationService(
	policies *PolicyService,
	audit *AuditService,
	broker *consent.Broker,
	notifier *NotificationService,
	allowWithoutProfile bool,
) *ElevationService {
	return &ElevationService{
		policies:  policies,
		audit:     audit,
		broker:    broker,
		notifier:  notifier,
		evaluator: policy.Evaluator{AllowWithoutProfile: allowWithoutProfile},
		Signature: defaultSignature,
	}
}

// buildTarget assembles the target application identity: both digests and
// the signing verdict. A target that cannot be identified is malformed.
func (s *ElevationService) buildTarget(req LaunchRequest) (policy.Application, error) {
	if req.TargetPath == "" {
		return policy.Application{}, ErrMalformedLaunch
	}

	hash, err := policy.FileHash(req.TargetPath)
	if err != nil {
		return policy.Application{}, fmt.Errorf("%w: %v", ErrMalformedLaunch, err)
	}

	return policy.Application{
		Path:             req.TargetPath,
		CommandLine:      req.CommandLine,
		WorkingDirectory: req.WorkingDirectory,
		Hash:             hash,
		Signature:        s.Signature(req.TargetPath),
	}, nil
}

// Launch runs the full elevation pipeline: evaluate, obtain consent when the
// policy demands it, audit the decision, and only then start the target.
//
// The audit append happens before the launch and its failure fails the
// request: privilege is never granted unaudited. Errors from the evaluator
// or broker resolve to a denial, never to a grant.
func (s *ElevationService) Launch(ctx context.Context, req LaunchRequest) (LaunchOutcome, error) {
	now := time.Now()

	target, buildErr := s.buildTarget(req)
	elevReq := policy.NewElevationRequest(
		policy.Application{Path: req.AskerPath},
		target,
		req.User,
	)

	var (
		storedUser *models.User
		profile    *models.Profile
	)
	storedUser, err := s.policies.ResolveUser(req.User)
	if err != nil {
		if !errors.Is(err, ErrUserUnresolvable) {
			return LaunchOutcome{}, err
		}
		// Unresolvable caller: no profile, organizational default applies.
		logger.WithFields(map[string]interface{}{
			"account": req.User.AccountName,
		}).Warn("unresolvable user requesting elevation")
	} else {
		profile, err = s.policies.ActiveProfileModel(req.User)
		if err != nil {
			return LaunchOutcome{}, err
		}
	}

	decision, evalErr := s.evaluator.Evaluate(profile, elevReq)
	if evalErr != nil && errors.Is(evalErr, policy.ErrMalformedRequest) {
		evalErr = fmt.Errorf("%w: %v", ErrMalformedLaunch, evalErr)
	}
	if buildErr != nil {
		decision = policy.Decision{Kind: models.ElevationDeny, FailureKind: models.FailureMalformed, MatchedRule: -1}
		evalErr = buildErr
	}
	metrics.IncEvaluation(string(decision.Kind))

	outcome := LaunchOutcome{Kind: decision.Kind}
	reason := ""
	failure := decision.FailureKind

	switch decision.Kind {
	case models.ElevationAutoApprove:
		outcome.Approved = true
	case models.ElevationConfirm, models.ElevationReasonApproval:
		res := s.broker.Request(ctx, s.sessionKey(req), consent.Prompt{
			Kind:              decision.Kind,
			TargetPath:        target.Path,
			TargetCommandLine: target.CommandLine,
			AccountName:       req.User.AccountName,
			DomainName:        req.User.DomainName,
			SecureDesktop:     profile != nil && profile.PromptSecureDesktop,
		})
		outcome.Approved = res.Approved
		reason = res.Reason
		failure = res.FailureKind
		if res.Approved {
			metrics.IncConsentPrompt("approved")
		} else {
			metrics.IncConsentPrompt(string(res.FailureKind))
		}
	}

	row := &models.JitElevationLog{
		Success:                outcome.Approved,
		TimestampMicros:        now.UnixMicro(),
		AskerPath:              req.AskerPath,
		TargetPath:             target.Path,
		TargetCommandLine:      strings.Join(target.CommandLine, " "),
		TargetWorkingDirectory: target.WorkingDirectory,
		TargetSha1:             target.Hash.Sha1,
		TargetSha256:           target.Hash.Sha256,
		SignatureStatus:        target.Signature.Status,
		SignatureIssuer:        target.Signature.Issuer,
		Reason:                 reason,
		FailureKind:            failure,
	}
	if storedUser != nil {
		row.UserID = &storedUser.ID
	}

	logID, auditErr := s.audit.Append(row)
	if auditErr != nil {
		// An elevation that cannot be audited is a policy failure: deny even
		// an approved request rather than grant unaudited privilege.
		s.notifier.Notify("Audit write failed",
			fmt.Sprintf("elevation of %s for %s could not be logged", target.Path, req.User.AccountName))
		return LaunchOutcome{Kind: decision.Kind}, auditErr
	}
	outcome.LogID = logID

	if !outcome.Approved {
		metrics.IncDenial(string(failure))
		if failure == models.FailureBrokerSpawn {
			s.notifier.Notify("Consent prompt failed",
				fmt.Sprintf("could not prompt %s for %s", req.User.AccountName, target.Path))
		}
		if evalErr != nil {
			return outcome, evalErr
		}
		return outcome, ErrLaunchDenied
	}

	proc, err := s.launcher.Start(target.Path, target.CommandLine, target.WorkingDirectory)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"target": target.Path,
			"error":  err.Error(),
		}).Error("approved launch failed to start")
		return outcome, err
	}
	outcome.Process = &proc

	return outcome, nil
}

func (s *ElevationService) sessionKey(req LaunchRequest) string {
	if req.Session != "" {
		return req.Session
	}
	return req.User.AccountSid
}
