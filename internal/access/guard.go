package access

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownGuard indicates a caller asked for a guard name the engine does
// not define. This is a wiring bug, not a runtime access decision, so it is
// returned as an error rather than a denial.
var ErrUnknownGuard = errors.New("unknown guard")

type guardKind int

const (
	guardActiveUser guardKind = iota
	guardVerifiedUser
	guardRoleGated
	guardClaimGated
	guardResourceAccess
	guardFeatureGated
)

// Guard is one named, fixed combination of predicates. The set of kinds is
// closed; values are built via the constructors below or parsed from their
// string names with ParseGuard.
type Guard struct {
	kind  guardKind
	alias string

	roles      []string
	claimName  string
	claimValue any
	flag       string
	resource   ResourceAccessConfig
}

// ResourceAccessConfig controls which non-owner paths may pass the
// resource-access guard.
type ResourceAccessConfig struct {
	OwnerAllowed     bool
	AdminAllowed     bool
	ModeratorAllowed bool
}

// ActiveUser requires an account that is not administratively disabled.
func ActiveUser() Guard {
	return Guard{kind: guardActiveUser}
}

// VerifiedUser requires an active account with a verified email address.
func VerifiedUser() Guard {
	return Guard{kind: guardVerifiedUser}
}

// RoleGated requires an active account holding at least one of the roles.
func RoleGated(roles ...string) Guard {
	return Guard{kind: guardRoleGated, roles: roles}
}

// AdminOnly requires the admin role.
func AdminOnly() Guard {
	return Guard{kind: guardRoleGated, roles: []string{"admin"}, alias: "admin-only"}
}

// ModeratorOrAdmin requires the admin or moderator role.
func ModeratorOrAdmin() Guard {
	return Guard{kind: guardRoleGated, roles: []string{"admin", "moderator"}, alias: "moderator-or-admin"}
}

// ClaimGated requires an active account whose custom claim name equals
// value exactly.
func ClaimGated(name string, value any) Guard {
	return Guard{kind: guardClaimGated, claimName: name, claimValue: value}
}

// ResourceAccess is the default ownership guard: the owner or an admin may
// access, moderators may not.
func ResourceAccess() Guard {
	return ResourceAccessWith(ResourceAccessConfig{OwnerAllowed: true, AdminAllowed: true})
}

// ResourceAccessWith builds an ownership guard with explicit path flags.
func ResourceAccessWith(cfg ResourceAccessConfig) Guard {
	return Guard{kind: guardResourceAccess, resource: cfg}
}

// FeatureGated requires an active account for which the feature flag is
// enabled.
func FeatureGated(flag string) Guard {
	return Guard{kind: guardFeatureGated, flag: flag}
}

// Name returns the string identifier callers use to select this guard.
func (g Guard) Name() string {
	if g.alias != "" {
		return g.alias
	}

	switch g.kind {
	case guardActiveUser:
		return "active-user"
	case guardVerifiedUser:
		return "verified-user"
	case guardRoleGated:
		return "role-gated:" + strings.Join(g.roles, ",")
	case guardClaimGated:
		return fmt.Sprintf("claim-gated:%s:%v", g.claimName, g.claimValue)
	case guardResourceAccess:
		return "resource-access"
	case guardFeatureGated:
		return "feature-gated:" + g.flag
	default:
		return "unknown"
	}
}

// ParseGuard resolves a guard name to its Guard value. Parameterised names
// use the grammar role-gated:<r1,r2>, claim-gated:<name>:<value> (value
// compared as a string) and feature-gated:<flag>. resource-access parses to
// the default flags; non-default flag combinations are only available via
// ResourceAccessWith. Unknown names return ErrUnknownGuard.
func ParseGuard(name string) (Guard, error) {
	switch name {
	case "active-user":
		return ActiveUser(), nil
	case "verified-user":
		return VerifiedUser(), nil
	case "admin-only":
		return AdminOnly(), nil
	case "moderator-or-admin":
		return ModeratorOrAdmin(), nil
	case "resource-access":
		return ResourceAccess(), nil
	}

	switch {
	case strings.HasPrefix(name, "role-gated:"):
		spec := strings.TrimPrefix(name, "role-gated:")
		if spec == "" {
			return Guard{}, fmt.Errorf("%w: %q has no roles", ErrUnknownGuard, name)
		}
		return RoleGated(strings.Split(spec, ",")...), nil

	case strings.HasPrefix(name, "claim-gated:"):
		spec := strings.TrimPrefix(name, "claim-gated:")
		claimName, claimValue, ok := strings.Cut(spec, ":")
		if !ok || claimName == "" {
			return Guard{}, fmt.Errorf("%w: %q is missing claim name or value", ErrUnknownGuard, name)
		}
		return ClaimGated(claimName, claimValue), nil

	case strings.HasPrefix(name, "feature-gated:"):
		flag := strings.TrimPrefix(name, "feature-gated:")
		if flag == "" {
			return Guard{}, fmt.Errorf("%w: %q has no flag", ErrUnknownGuard, name)
		}
		return FeatureGated(flag), nil
	}

	return Guard{}, fmt.Errorf("%w: %q", ErrUnknownGuard, name)
}
