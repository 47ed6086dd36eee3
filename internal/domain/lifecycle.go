package domain

type LifecycleState string

const (
	StateActive   LifecycleState = "active"
	StateDeleted  LifecycleState = "deleted"
	StateRestored LifecycleState = "restored"
)

// Lifecycle is the soft-delete state of a waste item together with the
// provenance of the transition that produced it. By and At are empty for
// StateActive.
type Lifecycle struct {
	State LifecycleState `json:"state" enum:"active,deleted,restored"`
	By    string         `json:"by,omitempty"`
	At    string         `json:"at,omitempty"`
}

// Lifecycle derives the tagged state from the stored flag and provenance.
func (w WasteItem) Lifecycle() Lifecycle {
	if w.Deleted {
		return Lifecycle{State: StateDeleted, By: deref(w.DeletedBy), At: deref(w.DeletedAt)}
	}
	if w.RestoredAt != nil {
		return Lifecycle{State: StateRestored, By: deref(w.RestoredBy), At: *w.RestoredAt}
	}
	return Lifecycle{State: StateActive}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
