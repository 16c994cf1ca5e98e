package engine

import (
	"sync"

	"tourneysync/internal/domain"
)

// Index derives the single relationship state per target from the last
// authoritative snapshot plus the optimistic overlay. Lookups never touch
// the network; they serve cached state even while a refresh is in flight.
type Index struct {
	ledger *Ledger

	mu   sync.RWMutex
	snap domain.Snapshot
}

func NewIndex(ledger *Ledger) *Index {
	return &Index{ledger: ledger}
}

// ApplySnapshot replaces the authoritative layer wholesale.
func (x *Index) ApplySnapshot(s domain.Snapshot) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.snap = s
}

// Current returns the last applied authoritative snapshot.
func (x *Index) Current() domain.Snapshot {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.snap
}

// StatusOf derives the social relation between the actor and a target.
// An unexpired optimistic prediction wins; otherwise the state comes from
// the snapshot. Self lookups always yield none.
func (x *Index) StatusOf(actorID, targetID int64) domain.RelationState {
	if targetID == 0 || actorID == targetID {
		return domain.RelationNone
	}
	if m, ok := x.ledger.Lookup(Key{Scope: ScopeSocial, UserID: targetID}); ok {
		return domain.RelationState(m.Predicted)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	return socialFromSnapshot(x.snap, actorID, targetID)
}

// TeamStatusOf derives the membership relation between any user and a
// team, overlay first. Unknown teams yield none.
func (x *Index) TeamStatusOf(teamID, userID int64) domain.TeamRole {
	if teamID == 0 || userID == 0 {
		return domain.RoleNone
	}
	if m, ok := x.ledger.Lookup(Key{Scope: ScopeTeam, TeamID: teamID, UserID: userID}); ok {
		return domain.TeamRole(m.Predicted)
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	return teamFromSnapshot(x.snap, teamID, userID)
}

// Authoritative reports the snapshot-only state for a ledger key, ignoring
// the optimistic overlay. The ledger reconciles against this.
func (x *Index) Authoritative(key Key) string {
	x.mu.RLock()
	defer x.mu.RUnlock()
	if key.Scope == ScopeSocial {
		return string(socialFromSnapshot(x.snap, x.snap.ActorID, key.UserID))
	}
	return string(teamFromSnapshot(x.snap, key.TeamID, key.UserID))
}

// socialFromSnapshot applies the precedence rules: an accepted friendship
// dominates any stale pending entry for the same pair, then pending
// direction is decided by the sender field.
func socialFromSnapshot(snap domain.Snapshot, actorID, targetID int64) domain.RelationState {
	if actorID == targetID {
		return domain.RelationNone
	}
	for _, f := range snap.Friends {
		if f.ID == targetID {
			return domain.RelationFriend
		}
	}
	for _, r := range snap.Requests {
		switch {
		case r.SenderID == targetID && (r.RecipientID == 0 || r.RecipientID == actorID):
			return domain.RelationPendingFromThem
		case r.SenderID == actorID && r.RecipientID == targetID:
			return domain.RelationPendingFromMe
		}
	}
	return domain.RelationNone
}

func teamFromSnapshot(snap domain.Snapshot, teamID, userID int64) domain.TeamRole {
	roster, ok := snap.RosterFor(teamID)
	if !ok {
		return domain.RoleNone
	}
	return roster.RoleOf(userID)
}
