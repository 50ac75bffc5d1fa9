// Package resource holds the per-resource-type guard adapters: pure
// projections from fetched records to the TargetDescriptor the access
// engine needs. This is the only package where resource-specific field
// names appear; adapters must not perform data-store calls of their own.
package resource

import (
	"github.com/authgate/authgate/internal/access"
	"github.com/authgate/authgate/internal/store"
)

// DescribeItem projects an item onto its ownership/visibility descriptor.
func DescribeItem(item *store.Item) *access.TargetDescriptor {
	return &access.TargetDescriptor{
		OwnerID:    item.OwnerID,
		Visibility: access.Visibility(item.Visibility),
	}
}

// DescribeProfile projects a profile onto a descriptor owned by the profile
// subject. Profiles are always private.
func DescribeProfile(profile *store.ProfileRecord) *access.TargetDescriptor {
	return &access.TargetDescriptor{
		OwnerID:    profile.SubjectID,
		Visibility: access.VisibilityPrivate,
	}
}
