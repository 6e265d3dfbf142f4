package models

// Lifecycle is the soft-delete state shared by attribute sets and variants.
// It is persisted as the isActive flag.
type Lifecycle string

const (
	LifecycleActive   Lifecycle = "active"
	LifecycleInactive Lifecycle = "inactive"
)

// IsValid reports whether l is a known lifecycle state.
func (l Lifecycle) IsValid() bool {
	return l == LifecycleActive || l == LifecycleInactive
}

// IsActive maps the lifecycle onto the persisted flag.
func (l Lifecycle) IsActive() bool {
	return l == LifecycleActive
}

// LifecycleOf converts the persisted flag back into a lifecycle state.
func LifecycleOf(isActive bool) Lifecycle {
	if isActive {
		return LifecycleActive
	}
	return LifecycleInactive
}
