package access

// Visibility is the coarse read-scope of a resource.
type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// TargetDescriptor is the minimal projection of a resource that
// ownership-sensitive guards need. Adapters in the resource package build
// one per access check; it is never persisted.
type TargetDescriptor struct {
	// OwnerID identifies the owning principal. Empty when ownership does
	// not apply.
	OwnerID string

	// Visibility is optional and only consulted by resource-type adapters.
	Visibility Visibility
}
