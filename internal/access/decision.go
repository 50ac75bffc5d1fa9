package access

// ReasonCode is the closed set of denial reasons. A denial never leaks more
// detail than its reason code implies.
type ReasonCode string

const (
	ReasonAccountDisabled      ReasonCode = "account_disabled"
	ReasonEmailNotVerified     ReasonCode = "email_not_verified"
	ReasonInsufficientRole     ReasonCode = "insufficient_role"
	ReasonClaimMissing         ReasonCode = "claim_missing"
	ReasonClaimMismatch        ReasonCode = "claim_mismatch"
	ReasonResourceAccessDenied ReasonCode = "resource_access_denied"
	ReasonFeatureDisabled      ReasonCode = "feature_disabled"
)

// AuditEventType maps a denial reason onto its audit event type.
func (r ReasonCode) AuditEventType() string {
	switch r {
	case ReasonAccountDisabled:
		return "disabled_user_access_attempt"
	case ReasonEmailNotVerified:
		return "unverified_user_access_attempt"
	case ReasonInsufficientRole:
		return "insufficient_permissions"
	case ReasonClaimMissing:
		return "missing_custom_claim"
	case ReasonClaimMismatch:
		return "invalid_custom_claim"
	case ReasonResourceAccessDenied:
		return "unauthorized_resource_access"
	case ReasonFeatureDisabled:
		return "feature_flag_denied"
	default:
		return "access_denied"
	}
}

// Decision is the outcome of one guard evaluation. It is produced
// synchronously, consumed immediately and not retained.
type Decision struct {
	// Allowed reports whether access was granted.
	Allowed bool

	// Reason carries the denial reason when Allowed is false; empty
	// otherwise.
	Reason ReasonCode

	// PrincipalID is echoed for audit correlation.
	PrincipalID string

	// Guard is the name of the guard that produced this decision.
	Guard string
}

func allowed(guard, principalID string) Decision {
	return Decision{Allowed: true, PrincipalID: principalID, Guard: guard}
}

func denied(guard, principalID string, reason ReasonCode) Decision {
	return Decision{Allowed: false, Reason: reason, PrincipalID: principalID, Guard: guard}
}
