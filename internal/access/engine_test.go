package access

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/audit"
	"github.com/authgate/authgate/internal/identity"
)

func activePrincipal(id string, roles ...string) *identity.Principal {
	return &identity.Principal{
		ID:            id,
		Roles:         roles,
		Active:        true,
		EmailVerified: true,
	}
}

func TestEvaluate_DisabledOverridesEverything(t *testing.T) {
	engine := NewEngine(nil)
	ctx := context.Background()

	disabled := &identity.Principal{
		ID:            "user-1",
		Roles:         []string{"admin", "moderator", "beta_tester"},
		Active:        false,
		EmailVerified: true,
		CustomClaims:  map[string]any{"department": "engineering"},
	}

	guards := []Guard{
		ActiveUser(),
		VerifiedUser(),
		AdminOnly(),
		ModeratorOrAdmin(),
		RoleGated("admin"),
		ClaimGated("department", "engineering"),
		ResourceAccess(),
		FeatureGated("beta_dashboard"),
	}

	for _, guard := range guards {
		t.Run(guard.Name(), func(t *testing.T) {
			decision := engine.Evaluate(ctx, guard, disabled, &TargetDescriptor{OwnerID: "user-1"})
			require.False(t, decision.Allowed)
			require.Equal(t, ReasonAccountDisabled, decision.Reason)
		})
	}
}

func TestEvaluate_NilPrincipalDenied(t *testing.T) {
	engine := NewEngine(nil)

	decision := engine.Evaluate(context.Background(), ActiveUser(), nil, nil)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonAccountDisabled, decision.Reason)
	require.Empty(t, decision.PrincipalID)

	// Feature gates degrade for anonymous callers instead of demanding
	// credentials.
	decision = engine.Evaluate(context.Background(), FeatureGated("beta"), nil, nil)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonFeatureDisabled, decision.Reason)
	require.Empty(t, decision.PrincipalID)
}

func TestEvaluate_VerifiedUser(t *testing.T) {
	engine := NewEngine(nil)
	ctx := context.Background()

	unverified := activePrincipal("user-1")
	unverified.EmailVerified = false

	decision := engine.Evaluate(ctx, VerifiedUser(), unverified, nil)
	require.False(t, decision.Allowed)
	require.Equal(t, ReasonEmailNotVerified, decision.Reason)

	decision = engine.Evaluate(ctx, VerifiedUser(), activePrincipal("user-1"), nil)
	require.True(t, decision.Allowed)
	require.Empty(t, decision.Reason)
}

func TestEvaluate_RoleGated(t *testing.T) {
	engine := NewEngine(nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		guard   Guard
		roles   []string
		allowed bool
	}{
		{name: "admin passes admin-only", guard: AdminOnly(), roles: []string{"admin"}, allowed: true},
		{name: "moderator fails admin-only", guard: AdminOnly(), roles: []string{"moderator"}, allowed: false},
		{name: "moderator passes moderator-or-admin", guard: ModeratorOrAdmin(), roles: []string{"moderator"}, allowed: true},
		{name: "admin passes moderator-or-admin", guard: ModeratorOrAdmin(), roles: []string{"admin"}, allowed: true},
		{name: "plain user fails moderator-or-admin", guard: ModeratorOrAdmin(), roles: []string{"user"}, allowed: false},
		{name: "any of several roles suffices", guard: RoleGated("editor", "reviewer"), roles: []string{"reviewer"}, allowed: true},
		{name: "no roles at all", guard: RoleGated("editor"), roles: nil, allowed: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := engine.Evaluate(ctx, tt.guard, activePrincipal("user-1", tt.roles...), nil)
			require.Equal(t, tt.allowed, decision.Allowed)
			if !tt.allowed {
				require.Equal(t, ReasonInsufficientRole, decision.Reason)
			}
		})
	}
}

func TestEvaluate_ClaimGated(t *testing.T) {
	engine := NewEngine(nil)
	ctx := context.Background()

	principal := activePrincipal("user-1")
	principal.CustomClaims = map[string]any{"department": "engineering"}

	t.Run("match", func(t *testing.T) {
		decision := engine.Evaluate(ctx, ClaimGated("department", "engineering"), principal, nil)
		require.True(t, decision.Allowed)
	})

	t.Run("missing claim", func(t *testing.T) {
		decision := engine.Evaluate(ctx, ClaimGated("region", "eu"), principal, nil)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonClaimMissing, decision.Reason)
	})

	t.Run("mismatched value", func(t *testing.T) {
		decision := engine.Evaluate(ctx, ClaimGated("department", "sales"), principal, nil)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonClaimMismatch, decision.Reason)
	})
}

func TestEvaluate_ResourceAccess(t *testing.T) {
	engine := NewEngine(nil)
	ctx := context.Background()
	target := &TargetDescriptor{OwnerID: "owner-1"}

	t.Run("owner allowed regardless of roles", func(t *testing.T) {
		decision := engine.Evaluate(ctx, ResourceAccess(), activePrincipal("owner-1"), target)
		require.True(t, decision.Allowed)
	})

	t.Run("admin allowed for foreign resource", func(t *testing.T) {
		decision := engine.Evaluate(ctx, ResourceAccess(), activePrincipal("user-2", "admin"), target)
		require.True(t, decision.Allowed)
	})

	t.Run("moderator denied under default flags", func(t *testing.T) {
		decision := engine.Evaluate(ctx, ResourceAccess(), activePrincipal("user-2", "moderator"), target)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonResourceAccessDenied, decision.Reason)
	})

	t.Run("moderator allowed when enabled", func(t *testing.T) {
		guard := ResourceAccessWith(ResourceAccessConfig{OwnerAllowed: true, AdminAllowed: true, ModeratorAllowed: true})
		decision := engine.Evaluate(ctx, guard, activePrincipal("user-2", "moderator"), target)
		require.True(t, decision.Allowed)
	})

	t.Run("plain user denied", func(t *testing.T) {
		decision := engine.Evaluate(ctx, ResourceAccess(), activePrincipal("user-2"), target)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonResourceAccessDenied, decision.Reason)
	})

	t.Run("nil target denies the owner path", func(t *testing.T) {
		decision := engine.Evaluate(ctx, ResourceAccess(), activePrincipal("owner-1"), nil)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonResourceAccessDenied, decision.Reason)
	})
}

func TestEvaluate_FeatureGated(t *testing.T) {
	engine := NewEngine(nil)
	ctx := context.Background()

	t.Run("beta tester role", func(t *testing.T) {
		decision := engine.Evaluate(ctx, FeatureGated("beta_dashboard"), activePrincipal("user-1", "beta_tester"), nil)
		require.True(t, decision.Allowed)
	})

	t.Run("claim override", func(t *testing.T) {
		principal := activePrincipal("user-1")
		principal.CustomClaims = map[string]any{"feature_flags": map[string]any{"beta_dashboard": true}}
		decision := engine.Evaluate(ctx, FeatureGated("beta_dashboard"), principal, nil)
		require.True(t, decision.Allowed)
	})

	t.Run("no signal means disabled", func(t *testing.T) {
		decision := engine.Evaluate(ctx, FeatureGated("beta_dashboard"), activePrincipal("user-1"), nil)
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonFeatureDisabled, decision.Reason)
	})
}

func TestEvaluate_DenialsAreAudited(t *testing.T) {
	sink := audit.NewMemorySink()
	engine := NewEngine(sink)
	ctx := context.Background()

	tests := []struct {
		name      string
		guard     Guard
		principal *identity.Principal
		eventType string
	}{
		{
			name:      "disabled account",
			guard:     ActiveUser(),
			principal: &identity.Principal{ID: "user-1", Active: false},
			eventType: "disabled_user_access_attempt",
		},
		{
			name:      "unverified email",
			guard:     VerifiedUser(),
			principal: &identity.Principal{ID: "user-1", Active: true},
			eventType: "unverified_user_access_attempt",
		},
		{
			name:      "insufficient role",
			guard:     AdminOnly(),
			principal: activePrincipal("user-1"),
			eventType: "insufficient_permissions",
		},
		{
			name:      "missing claim",
			guard:     ClaimGated("department", "engineering"),
			principal: activePrincipal("user-1"),
			eventType: "missing_custom_claim",
		},
		{
			name:      "resource access denied",
			guard:     ResourceAccess(),
			principal: activePrincipal("user-1"),
			eventType: "unauthorized_resource_access",
		},
		{
			name:      "feature disabled",
			guard:     FeatureGated("beta_dashboard"),
			principal: activePrincipal("user-1"),
			eventType: "feature_flag_denied",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink.Reset()

			decision := engine.Evaluate(ctx, tt.guard, tt.principal, nil)
			require.False(t, decision.Allowed)

			events := sink.EventsOfType(tt.eventType)
			require.Len(t, events, 1)
			require.Equal(t, tt.principal.ID, events[0].PrincipalID)
			require.Equal(t, tt.guard.Name(), events[0].Detail["guard"])
		})
	}
}

func TestEvaluate_PrivilegedGrantIsAudited(t *testing.T) {
	sink := audit.NewMemorySink()
	engine := NewEngine(sink)
	ctx := context.Background()
	target := &TargetDescriptor{OwnerID: "owner-1"}

	t.Run("admin path records grant", func(t *testing.T) {
		sink.Reset()

		decision := engine.Evaluate(ctx, ResourceAccess(), activePrincipal("admin-1", "admin"), target)
		require.True(t, decision.Allowed)

		events := sink.EventsOfType("privileged_resource_access")
		require.Len(t, events, 1)
		require.Equal(t, "admin-1", events[0].PrincipalID)
		require.Equal(t, "admin", events[0].Detail["role"])
		require.Equal(t, "owner-1", events[0].Detail["resource_owner"])
	})

	t.Run("owner path records nothing", func(t *testing.T) {
		sink.Reset()

		decision := engine.Evaluate(ctx, ResourceAccess(), activePrincipal("owner-1", "admin"), target)
		require.True(t, decision.Allowed)
		require.Empty(t, sink.Events())
	})
}

func TestEvaluate_AuditFailureDoesNotAlterDecision(t *testing.T) {
	sink := audit.NewMemorySink()
	sink.Fail = true
	engine := NewEngine(sink)
	ctx := context.Background()

	denied := engine.Evaluate(ctx, AdminOnly(), activePrincipal("user-1"), nil)
	require.False(t, denied.Allowed)
	require.Equal(t, ReasonInsufficientRole, denied.Reason)

	granted := engine.Evaluate(ctx, ResourceAccess(), activePrincipal("admin-1", "admin"), &TargetDescriptor{OwnerID: "owner-1"})
	require.True(t, granted.Allowed)
}

func TestEvaluateName(t *testing.T) {
	engine := NewEngine(nil)
	ctx := context.Background()

	t.Run("known guard", func(t *testing.T) {
		decision, err := engine.EvaluateName(ctx, "active-user", activePrincipal("user-1"), nil)
		require.NoError(t, err)
		require.True(t, decision.Allowed)
	})

	t.Run("unknown guard is an error, not a denial", func(t *testing.T) {
		_, err := engine.EvaluateName(ctx, "superuser", activePrincipal("user-1"), nil)
		require.ErrorIs(t, err, ErrUnknownGuard)
	})
}

// End-to-end walkthroughs of typical request flows.
func TestEvaluate_Scenarios(t *testing.T) {
	sink := audit.NewMemorySink()
	engine := NewEngine(sink)
	ctx := context.Background()

	t.Run("verified user reads own private item", func(t *testing.T) {
		sink.Reset()
		caller := activePrincipal("user-1")

		decision := engine.Evaluate(ctx, ResourceAccess(), caller, &TargetDescriptor{OwnerID: "user-1", Visibility: VisibilityPrivate})
		require.True(t, decision.Allowed)
		require.Empty(t, sink.Events())
	})

	t.Run("moderator deletes foreign item with del flags", func(t *testing.T) {
		sink.Reset()
		caller := activePrincipal("mod-1", "moderator")
		guard := ResourceAccessWith(ResourceAccessConfig{OwnerAllowed: true, AdminAllowed: true, ModeratorAllowed: true})

		decision := engine.Evaluate(ctx, guard, caller, &TargetDescriptor{OwnerID: "user-1"})
		require.True(t, decision.Allowed)
		require.Len(t, sink.EventsOfType("privileged_resource_access"), 1)
	})

	t.Run("disabled admin loses every path", func(t *testing.T) {
		sink.Reset()
		caller := &identity.Principal{ID: "admin-1", Roles: []string{"admin"}, Active: false, EmailVerified: true}

		decision := engine.Evaluate(ctx, ResourceAccess(), caller, &TargetDescriptor{OwnerID: "admin-1"})
		require.False(t, decision.Allowed)
		require.Equal(t, ReasonAccountDisabled, decision.Reason)
		require.Len(t, sink.EventsOfType("disabled_user_access_attempt"), 1)
	})
}
