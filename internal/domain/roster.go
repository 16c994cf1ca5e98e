package domain

// TeamRole is the derived membership relation between a user and a team.
type TeamRole string

const (
	RoleCaptain TeamRole = "captain"
	RoleMember  TeamRole = "member"
	RolePending TeamRole = "pending"
	RoleNone    TeamRole = "none"
)

// teamRank orders membership states along the join lifecycle.
func teamRank(r TeamRole) int {
	switch r {
	case RoleCaptain:
		return 3
	case RoleMember:
		return 2
	case RolePending:
		return 1
	default:
		return 0
	}
}

// RoleAdvanced reports whether got is at least as far along the join
// lifecycle as want.
func RoleAdvanced(got, want TeamRole) bool {
	return teamRank(got) >= teamRank(want)
}

// RosterEntry is one membership edge on a team.
type RosterEntry struct {
	UserID    int64
	Role      TeamRole
	RequestID string
}

// TeamRoster is the ordered set of membership edges for one team.
//
// Invariants (enforced pre-flight by the checker, reflected here):
// at most one captain edge; captain+member count never exceeds the team
// capacity; pending edges cost no capacity until accepted.
type TeamRoster struct {
	Team    Team
	Entries []RosterEntry
}

// RoleOf returns the membership relation for a user, RoleNone if absent.
func (r TeamRoster) RoleOf(userID int64) TeamRole {
	for _, e := range r.Entries {
		if e.UserID == userID {
			return e.Role
		}
	}
	return RoleNone
}

// ActiveCount counts edges that occupy capacity: the captain and accepted
// members. Pending invitees and joiners are excluded.
func (r TeamRoster) ActiveCount() int {
	n := 0
	for _, e := range r.Entries {
		if e.Role == RoleCaptain || e.Role == RoleMember {
			n++
		}
	}
	return n
}

// PendingCount counts edges awaiting acceptance or approval.
func (r TeamRoster) PendingCount() int {
	n := 0
	for _, e := range r.Entries {
		if e.Role == RolePending {
			n++
		}
	}
	return n
}

// CaptainCount counts captain edges. Valid rosters have exactly one.
func (r TeamRoster) CaptainCount() int {
	n := 0
	for _, e := range r.Entries {
		if e.Role == RoleCaptain {
			n++
		}
	}
	return n
}

// ActiveMembers returns the capacity-occupying entries, captain first,
// preserving roster order otherwise.
func (r TeamRoster) ActiveMembers() []RosterEntry {
	out := make([]RosterEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		if e.Role == RoleCaptain {
			out = append(out, e)
		}
	}
	for _, e := range r.Entries {
		if e.Role == RoleMember {
			out = append(out, e)
		}
	}
	return out
}

// PendingMembers returns the entries awaiting acceptance, in roster order.
func (r TeamRoster) PendingMembers() []RosterEntry {
	out := make([]RosterEntry, 0, len(r.Entries))
	for _, e := range r.Entries {
		if e.Role == RolePending {
			out = append(out, e)
		}
	}
	return out
}
