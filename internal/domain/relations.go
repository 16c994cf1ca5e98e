package domain

import "time"

// RelationState is the single derived social relation between the local
// actor and a target user. Exactly one value is authoritative per pair at
// any instant; the optimistic layer may run ahead of it temporarily.
type RelationState string

const (
	RelationFriend          RelationState = "friend"
	RelationPendingFromMe   RelationState = "pending_from_me"
	RelationPendingFromThem RelationState = "pending_from_them"
	RelationNone            RelationState = "none"
)

// relationRank orders social states along the request lifecycle so
// reconciliation can tell "advanced past the prediction" from "regressed".
func relationRank(s RelationState) int {
	switch s {
	case RelationFriend:
		return 2
	case RelationPendingFromMe, RelationPendingFromThem:
		return 1
	default:
		return 0
	}
}

// RelationAdvanced reports whether got is at least as far along the
// social-request lifecycle as want.
func RelationAdvanced(got, want RelationState) bool {
	return relationRank(got) >= relationRank(want)
}

// FriendRequest is a pending social edge. Sender and Recipient identify the
// direction; RequestID is the handle used to act on it.
type FriendRequest struct {
	RequestID   string
	SenderID    int64
	RecipientID int64
	SenderName  string
	CreatedAt   time.Time
}

// Snapshot is one authoritative fetch of every collection the relationship
// index derives from. It replaces the previous snapshot wholesale.
type Snapshot struct {
	ActorID       int64
	Friends       []Entity
	Requests      []FriendRequest
	Rosters       []TeamRoster
	Notifications []Notification
	FetchedAt     time.Time
}

// RosterFor returns the roster for a team id, if present in the snapshot.
func (s Snapshot) RosterFor(teamID int64) (TeamRoster, bool) {
	for _, r := range s.Rosters {
		if r.Team.ID == teamID {
			return r, true
		}
	}
	return TeamRoster{}, false
}
