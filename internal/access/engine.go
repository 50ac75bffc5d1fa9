package access

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/identity"
	"github.com/authgate/authgate/internal/telemetry"
)

// Engine evaluates named guards against a principal and optional target.
// Evaluation itself is pure; the only side effects are the audit record on
// denial and sensitive-grant paths, and metric increments. Safe for
// unbounded concurrent use.
type Engine struct {
	sink audit.Sink
}

// NewEngine creates an engine that records security events to sink.
func NewEngine(sink audit.Sink) *Engine {
	if sink == nil {
		sink = audit.NopSink{}
	}
	return &Engine{sink: sink}
}

// EvaluateName resolves the guard name and evaluates it. An unknown name
// returns ErrUnknownGuard; every well-formed evaluation returns a Decision,
// never an error.
func (e *Engine) EvaluateName(ctx context.Context, name string, p *identity.Principal, target *TargetDescriptor) (Decision, error) {
	guard, err := ParseGuard(name)
	if err != nil {
		return Decision{}, err
	}
	return e.Evaluate(ctx, guard, p, target), nil
}

// Evaluate runs the guard's predicate chain in its fixed order,
// short-circuiting on the first failure. Every composite guard checks
// active-user first: a disabled account must never pass a finer-grained
// check, whatever roles or claims it holds. A nil principal fails closed as
// a disabled account, except under feature-gated guards, which report the
// feature disabled so anonymous callers degrade silently.
func (e *Engine) Evaluate(ctx context.Context, guard Guard, p *identity.Principal, target *TargetDescriptor) Decision {
	decision := e.evaluate(ctx, guard, p, target)

	metrics := telemetry.GetMetrics()
	metrics.DecisionsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("guard", decision.Guard)))

	if !decision.Allowed {
		metrics.DenialsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("guard", decision.Guard),
			attribute.String("reason", string(decision.Reason)),
		))
		e.sink.Record(ctx, audit.NewEvent(decision.Reason.AuditEventType(), decision.PrincipalID, map[string]any{
			"guard": decision.Guard,
		}))
	}

	return decision
}

func (e *Engine) evaluate(ctx context.Context, guard Guard, p *identity.Principal, target *TargetDescriptor) Decision {
	name := guard.Name()

	if p == nil {
		if guard.kind == guardFeatureGated {
			return denied(name, "", ReasonFeatureDisabled)
		}
		return denied(name, "", ReasonAccountDisabled)
	}
	if !IsActive(p, target) {
		return denied(name, p.ID, ReasonAccountDisabled)
	}

	switch guard.kind {
	case guardActiveUser:
		return allowed(name, p.ID)

	case guardVerifiedUser:
		if !IsEmailVerified(p, target) {
			return denied(name, p.ID, ReasonEmailNotVerified)
		}
		return allowed(name, p.ID)

	case guardRoleGated:
		if !HasAnyRole(guard.roles...)(p, target) {
			return denied(name, p.ID, ReasonInsufficientRole)
		}
		return allowed(name, p.ID)

	case guardClaimGated:
		switch ClaimStatus(p, guard.claimName, guard.claimValue) {
		case ClaimAbsent:
			return denied(name, p.ID, ReasonClaimMissing)
		case ClaimValueMismatch:
			return denied(name, p.ID, ReasonClaimMismatch)
		}
		return allowed(name, p.ID)

	case guardResourceAccess:
		return e.evaluateResourceAccess(ctx, guard, p, target)

	case guardFeatureGated:
		if !featureEnabled(p, guard.flag) {
			return denied(name, p.ID, ReasonFeatureDisabled)
		}
		return allowed(name, p.ID)

	default:
		// Unreachable for guards built via constructors or ParseGuard.
		return denied(name, p.ID, ReasonResourceAccessDenied)
	}
}

// evaluateResourceAccess checks ownership first, then the admin path, then
// the moderator path. Grants through a role path rather than ownership are
// audited as privileged access.
func (e *Engine) evaluateResourceAccess(ctx context.Context, guard Guard, p *identity.Principal, target *TargetDescriptor) Decision {
	name := guard.Name()
	cfg := guard.resource

	if cfg.OwnerAllowed && IsOwner(p, target) {
		return allowed(name, p.ID)
	}

	if cfg.AdminAllowed && p.HasRole("admin") {
		e.recordPrivilegedGrant(ctx, name, p.ID, "admin", target)
		return allowed(name, p.ID)
	}

	if cfg.ModeratorAllowed && p.HasRole("moderator") {
		e.recordPrivilegedGrant(ctx, name, p.ID, "moderator", target)
		return allowed(name, p.ID)
	}

	return denied(name, p.ID, ReasonResourceAccessDenied)
}

func (e *Engine) recordPrivilegedGrant(ctx context.Context, guard, principalID, role string, target *TargetDescriptor) {
	detail := map[string]any{
		"guard": guard,
		"role":  role,
	}
	if target != nil && target.OwnerID != "" {
		detail["resource_owner"] = target.OwnerID
	}

	e.sink.Record(ctx, audit.NewEvent("privileged_resource_access", principalID, detail))
}
