package engine

import (
	"sync"

	"tourneysync/internal/domain"
)

// Scope selects the relation domain a mutation predicts in.
type Scope string

const (
	ScopeSocial Scope = "social"
	ScopeTeam   Scope = "team"
)

// Key identifies one actor/target pair within a relation domain. TeamID is
// zero for social keys.
type Key struct {
	Scope  Scope
	TeamID int64
	UserID int64
}

// Op names the remote write a mutation was issued with, so an unresolved
// entry can be retried without keeping a closure alive.
type Op string

const (
	OpSendFriendRequest   Op = "send_friend_request"
	OpAcceptFriendRequest Op = "accept_friend_request"
	OpRemoveFriend        Op = "remove_friend"
	OpJoinTeam            Op = "join_team"
	OpApproveJoin         Op = "approve_join"
	OpInvite              Op = "invite"
	OpKick                Op = "kick"
	OpLeaveTeam           Op = "leave_team"
)

// Mutation is a predicted future edge, applied on top of the last
// authoritative snapshot until a refresh confirms or supersedes it.
type Mutation struct {
	Key        Key
	Op         Op
	Prior      string // authoritative state when the mutation was issued
	Predicted  string
	Seq        uint64
	Generation uint64 // reconcile generation the entry was recorded in
	Retried    bool
}

// Ledger holds the pending optimistic mutations, at most one per key.
// A newer record for the same key supersedes the older one (newer sequence
// numbers outrank older ones within the optimistic layer).
type Ledger struct {
	mu         sync.Mutex
	seq        uint64
	generation uint64
	entries    map[Key]Mutation
}

func NewLedger() *Ledger {
	return &Ledger{entries: make(map[Key]Mutation)}
}

// Record appends a prediction with a fresh sequence number. Re-recording an
// identical prediction for a key that already has one pending is reported
// as a duplicate and changes nothing, which makes duplicate issuance of the
// same mutation harmless.
func (l *Ledger) Record(key Key, op Op, prior, predicted string) (Mutation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.entries[key]; ok && existing.Predicted == predicted {
		return existing, false
	}

	l.seq++
	m := Mutation{
		Key:        key,
		Op:         op,
		Prior:      prior,
		Predicted:  predicted,
		Seq:        l.seq,
		Generation: l.generation,
	}
	l.entries[key] = m
	return m, true
}

// Lookup returns the pending prediction for key, if any.
func (l *Ledger) Lookup(key Key) (Mutation, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.entries[key]
	return m, ok
}

// Drop removes the entry for key, reverting its prediction.
func (l *Ledger) Drop(key Key) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.entries, key)
}

func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

// Clear drops every entry. Called on session loss.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = make(map[Key]Mutation)
}

// Outcome is the result of reconciling the ledger against an authoritative
// snapshot.
type Outcome struct {
	Confirmed  []Mutation // authoritative state caught up or moved past the prediction
	Superseded []Mutation // authoritative state diverged; it wins, prediction reverted
	Retry      []Mutation // unresolved for a full cycle; re-issue the write once
	Unknown    []Mutation // unresolved after the retry; dropped with a surfaced signal
}

// Reconcile walks every pending mutation against the authoritative state
// reported by lookup and advances the reconcile generation.
//
// Resolution rules: a prediction the snapshot reflects (or has advanced
// past, for forward predictions) is confirmed and dropped. A snapshot that
// diverged from both the prior and the predicted state wins outright — the
// prediction is dropped. A snapshot still showing the prior state leaves
// the entry pending; after one full generation it is scheduled for a single
// retry, and after another it is dropped as unknown so the caller can
// surface a "state unknown, refresh" signal instead of staying stuck.
func (l *Ledger) Reconcile(lookup func(Key) string) Outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out Outcome
	for key, m := range l.entries {
		auth := lookup(key)
		switch {
		case auth == m.Predicted:
			out.Confirmed = append(out.Confirmed, m)
			delete(l.entries, key)
		case auth != m.Prior:
			if forwardPrediction(key, m) && stateAdvanced(key, auth, m.Predicted) {
				out.Confirmed = append(out.Confirmed, m)
			} else {
				out.Superseded = append(out.Superseded, m)
			}
			delete(l.entries, key)
		case m.Generation >= l.generation:
			// Recorded during the cycle that produced this snapshot;
			// give it a full generation before touching it.
		case !m.Retried:
			m.Retried = true
			l.entries[key] = m
			out.Retry = append(out.Retry, m)
		default:
			out.Unknown = append(out.Unknown, m)
			delete(l.entries, key)
		}
	}
	l.generation++
	return out
}

func forwardPrediction(k Key, m Mutation) bool {
	return stateAdvanced(k, m.Predicted, m.Prior) && m.Predicted != m.Prior
}

func stateAdvanced(k Key, got, want string) bool {
	if k.Scope == ScopeSocial {
		return domain.RelationAdvanced(domain.RelationState(got), domain.RelationState(want))
	}
	return domain.RoleAdvanced(domain.TeamRole(got), domain.TeamRole(want))
}
