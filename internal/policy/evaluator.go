package policy

import (
	"github.com/Wikid82/warden/internal/logger"
	"github.com/Wikid82/warden/internal/models"
)

// Decision is the evaluator outcome for one elevation request.
type Decision struct {
	Kind models.ElevationKind

	// FailureKind is set when Kind is Deny, so the audit trail can tell a
	// policy denial from a signature override or a missing profile.
	FailureKind models.FailureKind

	// MatchedRule is the index of the winning rule, or -1 when the profile
	// default applied.
	MatchedRule int
}

func deny(kind models.FailureKind) Decision {
	return Decision{Kind: models.ElevationDeny, FailureKind: kind, MatchedRule: -1}
}

// Evaluator resolves elevation requests against profiles.
type Evaluator struct {
	// AllowWithoutProfile relaxes the organizational default for users with
	// no active profile. The default is deny.
	AllowWithoutProfile bool
}

// Evaluate returns the elevation kind for the request under the given
// profile. A nil profile means the user has no active profile.
//
// The signature requirement is a hard override: when the profile demands a
// signed target and the signature is not Valid, the result is Deny no matter
// what the rules say. A malformed request is an error, never an approval.
func (e Evaluator) Evaluate(profile *models.Profile, req ElevationRequest) (Decision, error) {
	if err := req.Validate(); err != nil {
		return deny(models.FailureMalformed), err
	}

	if profile == nil {
		if e.AllowWithoutProfile {
			return Decision{Kind: models.ElevationAutoApprove, MatchedRule: -1}, nil
		}
		return deny(models.FailureNoProfile), nil
	}

	if profile.TargetMustBeSigned && req.Target.Signature.Status != models.SignatureValid {
		return deny(models.FailureSignature), nil
	}

	for i, raw := range profile.Rules {
		rule, err := ParseRule(raw)
		if err != nil {
			// Unknown or damaged rules never match. Saving such a rule is
			// rejected up front, so this only happens to data written by a
			// newer build.
			logger.WithFields(map[string]interface{}{
				"profile": profile.UUID,
				"rule":    i,
				"error":   err.Error(),
			}).Warn("skipping unevaluable rule")
			continue
		}
		if rule.Matches(req.Target) {
			d := Decision{Kind: rule.Kind, MatchedRule: i}
			if d.Kind == models.ElevationDeny {
				d.FailureKind = models.FailurePolicyDeny
			}
			return d, nil
		}
	}

	d := Decision{Kind: profile.DefaultElevationKind, MatchedRule: -1}
	if d.Kind == models.ElevationDeny {
		d.FailureKind = models.FailurePolicyDeny
	}
	return d, nil
}
