package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleOwner    = "owner"    // full control, including manual dials
	RoleOperator = "operator" // day-to-day call monitoring and manual dials
	RoleViewer   = "viewer"   // read-only dashboard access
)

func IsOwner(role string) bool { return role == RoleOwner }
