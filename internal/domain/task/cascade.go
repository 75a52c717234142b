package task

// cascadeKind classifies the dependent propagation a status change triggers.
type cascadeKind int

const (
	cascadeNone cascadeKind = iota
	cascadeUnblock
	cascadeReblock
)

func cascadeFor(from, to Status) cascadeKind {
	switch {
	case from == to:
		return cascadeNone
	case to == StatusDone:
		return cascadeUnblock
	case from == StatusDone:
		return cascadeReblock
	default:
		return cascadeNone
	}
}

// activeStatuses are the statuses a reopened blocker pushes back to blocked.
var activeStatuses = []Status{StatusNotStarted, StatusInProgress, StatusReview}

func isActive(s Status) bool {
	for _, a := range activeStatuses {
		if s == a {
			return true
		}
	}
	return false
}

// UnblockCandidates returns the blocked dependents with no incomplete
// blockers left.
func UnblockCandidates(deps []Dependent) []string {
	var ids []string
	for _, d := range deps {
		if d.Status == StatusBlocked && len(d.IncompleteBlockers) == 0 {
			ids = append(ids, d.ID)
		}
	}
	return ids
}

// ReblockCandidates returns the dependents still in an active status.
// Blocked, done and abandoned dependents are left alone.
func ReblockCandidates(deps []Dependent) []string {
	var ids []string
	for _, d := range deps {
		if isActive(d.Status) {
			ids = append(ids, d.ID)
		}
	}
	return ids
}
