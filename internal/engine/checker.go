package engine

import (
	"fmt"

	"tourneysync/internal/domain"
)

// DefaultTeamCapacity is the observed roster limit: one captain plus up to
// four invited players. Pending invitees cost no capacity until accepted.
const DefaultTeamCapacity = 5

// Checker validates team mutations before they are optimistically applied
// or sent. A violation short-circuits locally with a named code; it never
// reaches the network.
type Checker struct {
	Capacity int
}

func NewChecker(capacity int) *Checker {
	if capacity <= 0 {
		capacity = DefaultTeamCapacity
	}
	return &Checker{Capacity: capacity}
}

// CanInvite permits inviting (or approving a joiner) only for the captain
// of a roster with spare active capacity.
func (c *Checker) CanInvite(roster domain.TeamRoster, actorID int64) *domain.InvariantViolation {
	if roster.RoleOf(actorID) != domain.RoleCaptain {
		return domain.NewInvariantViolation(domain.ViolationNotCaptain, "only the captain can manage the roster")
	}
	if roster.ActiveCount() >= c.Capacity {
		return domain.NewInvariantViolation(domain.ViolationTeamFull,
			fmt.Sprintf("team already has %d of %d active members", roster.ActiveCount(), c.Capacity))
	}
	return nil
}

// CanKick permits removal of another, non-captain roster entry by the
// captain. The captain can never kick themselves.
func (c *Checker) CanKick(roster domain.TeamRoster, actorID, targetID int64) *domain.InvariantViolation {
	if roster.RoleOf(actorID) != domain.RoleCaptain {
		return domain.NewInvariantViolation(domain.ViolationNotCaptain, "only the captain can kick members")
	}
	targetRole := roster.RoleOf(targetID)
	if targetID == actorID || targetRole == domain.RoleCaptain {
		return domain.NewInvariantViolation(domain.ViolationKickCaptain, "the captain cannot be kicked; disband the team instead")
	}
	if targetRole == domain.RoleNone {
		return domain.NewInvariantViolation(domain.ViolationNotMember, "target is not on the roster")
	}
	return nil
}

// CanDisband permits disbanding only when the captain is the sole active
// member; other members must be removed first.
func (c *Checker) CanDisband(roster domain.TeamRoster, actorID int64) *domain.InvariantViolation {
	if roster.RoleOf(actorID) != domain.RoleCaptain {
		return domain.NewInvariantViolation(domain.ViolationNotCaptain, "only the captain can disband the team")
	}
	if n := roster.ActiveCount(); n > 1 {
		return domain.NewInvariantViolation(domain.ViolationTeamNotEmpty,
			fmt.Sprintf("team still has %d active members; remove them first", n))
	}
	return nil
}

// CanLeave permits leaving for members and pending joiners. The captain
// never leaves; their only exit is disbanding.
func (c *Checker) CanLeave(roster domain.TeamRoster, actorID int64) *domain.InvariantViolation {
	switch roster.RoleOf(actorID) {
	case domain.RoleCaptain:
		return domain.NewInvariantViolation(domain.ViolationCaptainLeave, "the captain cannot leave; disband the team instead")
	case domain.RoleNone:
		return domain.NewInvariantViolation(domain.ViolationNotMember, "not on the roster")
	default:
		return nil
	}
}
