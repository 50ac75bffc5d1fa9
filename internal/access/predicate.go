package access

import (
	"reflect"

	"github.com/authgate/authgate/internal/identity"
)

// Predicate is a pure boolean check over a principal and an optional target
// descriptor. Predicates never mutate their inputs and have no side effects;
// composition (AND/OR, ordering) is the engine's job.
type Predicate func(p *identity.Principal, target *TargetDescriptor) bool

// IsOwner is true iff the target's owner id equals the principal's id.
// A missing target or empty owner id never matches.
func IsOwner(p *identity.Principal, target *TargetDescriptor) bool {
	if target == nil || target.OwnerID == "" {
		return false
	}
	return target.OwnerID == p.ID
}

// IsActive is true iff the account is not administratively disabled.
func IsActive(p *identity.Principal, _ *TargetDescriptor) bool {
	return p.Active
}

// IsEmailVerified is true iff the principal's email address is verified.
func IsEmailVerified(p *identity.Principal, _ *TargetDescriptor) bool {
	return p.EmailVerified
}

// HasAnyRole returns a predicate that is true iff the principal holds at
// least one of the given roles.
func HasAnyRole(roles ...string) Predicate {
	return func(p *identity.Principal, _ *TargetDescriptor) bool {
		for _, role := range roles {
			if p.HasRole(role) {
				return true
			}
		}
		return false
	}
}

// HasCustomClaim returns a predicate that is true iff the claim is present
// and its value equals expected. Equality is exact; no type coercion. The
// engine distinguishes a missing claim from a mismatched one via ClaimStatus.
func HasCustomClaim(name string, expected any) Predicate {
	return func(p *identity.Principal, _ *TargetDescriptor) bool {
		return ClaimStatus(p, name, expected) == ClaimMatch
	}
}

// ClaimResult is the three-way outcome of a custom-claim check.
type ClaimResult int

const (
	ClaimMatch ClaimResult = iota
	ClaimAbsent
	ClaimValueMismatch
)

// ClaimStatus checks a custom claim and reports whether it matched, was
// absent, or was present with a different value. The two non-match outcomes
// map to distinct denial reasons.
func ClaimStatus(p *identity.Principal, name string, expected any) ClaimResult {
	value, ok := p.Claim(name)
	if !ok {
		return ClaimAbsent
	}
	if !reflect.DeepEqual(value, expected) {
		return ClaimValueMismatch
	}
	return ClaimMatch
}

// betaTesterRole short-circuits feature flag checks for internal testers.
const betaTesterRole = "beta_tester"

// featureFlagsClaim is the custom claim holding per-user flag overrides.
const featureFlagsClaim = "feature_flags"

// FeatureEnabled returns a predicate that is true iff the flag is enabled
// for the principal: either via the beta_tester role or via a truthy entry
// in the feature_flags custom claim. Absence of any signal means disabled;
// this is never an error.
func FeatureEnabled(flag string) Predicate {
	return func(p *identity.Principal, _ *TargetDescriptor) bool {
		return featureEnabled(p, flag)
	}
}

// featureEnabled also accepts a nil principal so anonymous callers can probe
// flags: they always see the flag disabled rather than an error.
func featureEnabled(p *identity.Principal, flag string) bool {
	if p == nil {
		return false
	}

	if p.HasRole(betaTesterRole) {
		return true
	}

	flags, ok := p.Claim(featureFlagsClaim)
	if !ok {
		return false
	}

	switch m := flags.(type) {
	case map[string]any:
		return isTruthy(m[flag])
	case map[string]bool:
		return m[flag]
	default:
		return false
	}
}

// isTruthy mirrors the loose truthiness of flag values as stored by the
// identity provider (JSON decoding yields bool, string or float64).
func isTruthy(v any) bool {
	switch value := v.(type) {
	case bool:
		return value
	case string:
		return value != "" && value != "false" && value != "0"
	case int:
		return value != 0
	case int64:
		return value != 0
	case float64:
		return value != 0
	default:
		return false
	}
}
