// Package engine reconciles the locally derived relationship state with the
// authoritative tournament API. Reads are always served from cache; writes
// are applied optimistically and settled on the next refresh.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"tourneysync/internal/directory"
	"tourneysync/internal/domain"
)

// SocialAPI is the slice of the remote API the engine needs for the social
// graph. *api.Client satisfies it.
type SocialAPI interface {
	ListUsers(ctx context.Context) ([]domain.Entity, error)
	ListFriends(ctx context.Context) ([]domain.Entity, error)
	ListFriendRequests(ctx context.Context) ([]domain.FriendRequest, error)
	SendFriendRequest(ctx context.Context, targetID int64) error
	AcceptFriendRequest(ctx context.Context, requesterID int64) error
	RemoveFriend(ctx context.Context, targetID int64) error
}

// TeamAPI is the slice of the remote API the engine needs for rosters.
type TeamAPI interface {
	ListTeams(ctx context.Context) ([]domain.TeamRoster, error)
	JoinTeam(ctx context.Context, teamID int64) error
	ApproveJoinRequest(ctx context.Context, teamID, userID int64) error
	InviteToTeam(ctx context.Context, teamID, userID int64) error
	KickMember(ctx context.Context, teamID, userID int64) error
	LeaveTeam(ctx context.Context, teamID int64) error
}

// FeedAPI is the slice of the remote API the engine needs for the
// notification feed.
type FeedAPI interface {
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
}

type Options struct {
	ActorID int64
	Social  SocialAPI
	Teams   TeamAPI
	Feed    FeedAPI

	Logger          *slog.Logger
	RefreshInterval time.Duration
	RefreshTimeout  time.Duration
	MutationDelay   time.Duration
	TeamCapacity    int
	Now             func() time.Time
}

type Engine struct {
	actorID int64
	social  SocialAPI
	teams   TeamAPI
	feed    FeedAPI
	logger  *slog.Logger
	now     func() time.Time

	directory *directory.Directory
	ledger    *Ledger
	index     *Index
	checker   *Checker
	hub       *Hub
	sched     *Scheduler

	expireOnce sync.Once
}

func New(opts Options) (*Engine, error) {
	if opts.ActorID == 0 {
		return nil, errors.New("engine: actor id required")
	}
	if opts.Social == nil || opts.Teams == nil || opts.Feed == nil {
		return nil, errors.New("engine: social, teams, and feed APIs required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ledger := NewLedger()
	e := &Engine{
		actorID:   opts.ActorID,
		social:    opts.Social,
		teams:     opts.Teams,
		feed:      opts.Feed,
		logger:    opts.Logger,
		now:       opts.Now,
		directory: directory.New(),
		ledger:    ledger,
		index:     NewIndex(ledger),
		checker:   NewChecker(opts.TeamCapacity),
		hub:       NewHub(),
	}
	e.sched = NewScheduler(e.refresh, opts.RefreshInterval, opts.RefreshTimeout, opts.MutationDelay, opts.Logger)
	return e, nil
}

// Run refreshes immediately and then keeps the cache current until ctx is
// cancelled or the session expires.
func (e *Engine) Run(ctx context.Context) {
	e.sched.Run(ctx)
}

// RefreshNow forces one refresh, joining any refresh already in flight.
func (e *Engine) RefreshNow(ctx context.Context) error {
	return e.sched.RefreshNow(ctx)
}

// Subscribe registers a state-change listener.
func (e *Engine) Subscribe() (<-chan Event, func()) {
	return e.hub.Subscribe()
}

// Close ends all subscriptions. The engine stays usable for direct reads.
func (e *Engine) Close() {
	e.hub.Close()
}

// StatusOf reports the derived social relation with a target, optimistic
// overlay included.
func (e *Engine) StatusOf(targetID int64) domain.RelationState {
	return e.index.StatusOf(e.actorID, targetID)
}

// TeamStatusOf reports the derived membership relation between a user and a
// team, optimistic overlay included.
func (e *Engine) TeamStatusOf(teamID, userID int64) domain.TeamRole {
	return e.index.TeamStatusOf(teamID, userID)
}

// Roster returns the cached roster for a team.
func (e *Engine) Roster(teamID int64) (domain.TeamRoster, bool) {
	return e.index.Current().RosterFor(teamID)
}

// Teams returns every cached roster.
func (e *Engine) Teams() []domain.TeamRoster {
	return e.index.Current().Rosters
}

// Friends returns the cached accepted friends.
func (e *Engine) Friends() []domain.Entity {
	return e.index.Current().Friends
}

// FriendRequests returns the cached pending requests, both directions.
func (e *Engine) FriendRequests() []domain.FriendRequest {
	return e.index.Current().Requests
}

// Users returns every known user except the actor, ordered by id.
func (e *Engine) Users() []domain.Entity {
	return e.directory.List(e.actorID)
}

// Lookup resolves a user id, falling back to a placeholder for ids the
// directory has never seen.
func (e *Engine) Lookup(userID int64) domain.Entity {
	return e.directory.Get(userID)
}

// Notifications returns the cached feed, unread first, newest first.
func (e *Engine) Notifications() []domain.Notification {
	src := e.index.Current().Notifications
	out := make([]domain.Notification, len(src))
	copy(out, src)
	domain.SortNotifications(out)
	return out
}

// UnreadCount reports how many cached notifications are unread.
func (e *Engine) UnreadCount() int {
	n := 0
	for _, v := range e.index.Current().Notifications {
		if !v.Read {
			n++
		}
	}
	return n
}

// Pending reports how many optimistic mutations are awaiting settlement.
func (e *Engine) Pending() int {
	return e.ledger.Len()
}

func (e *Engine) CanInvite(teamID int64) error {
	return violationErr(e.checker.CanInvite(e.rosterOrEmpty(teamID), e.actorID))
}

func (e *Engine) CanKick(teamID, targetID int64) error {
	return violationErr(e.checker.CanKick(e.rosterOrEmpty(teamID), e.actorID, targetID))
}

func (e *Engine) CanDisband(teamID int64) error {
	return violationErr(e.checker.CanDisband(e.rosterOrEmpty(teamID), e.actorID))
}

func (e *Engine) CanLeave(teamID int64) error {
	return violationErr(e.checker.CanLeave(e.rosterOrEmpty(teamID), e.actorID))
}

// SendFriendRequest optimistically opens a pending edge toward the target.
// If the target already has a request pending toward the actor the two are
// merged by accepting it instead.
func (e *Engine) SendFriendRequest(ctx context.Context, targetID int64) error {
	if targetID == e.actorID {
		return domain.NewInvariantViolation(domain.ViolationSelfRelation, "cannot befriend yourself")
	}
	switch e.StatusOf(targetID) {
	case domain.RelationFriend, domain.RelationPendingFromMe:
		return nil
	case domain.RelationPendingFromThem:
		return e.AcceptFriendRequest(ctx, targetID)
	}
	key := Key{Scope: ScopeSocial, UserID: targetID}
	return e.mutate(ctx, key, OpSendFriendRequest, string(domain.RelationPendingFromMe), func(ctx context.Context) error {
		return e.social.SendFriendRequest(ctx, targetID)
	})
}

// AcceptFriendRequest promotes a request from the target into a friendship.
func (e *Engine) AcceptFriendRequest(ctx context.Context, requesterID int64) error {
	if requesterID == e.actorID {
		return domain.NewInvariantViolation(domain.ViolationSelfRelation, "cannot befriend yourself")
	}
	switch e.StatusOf(requesterID) {
	case domain.RelationFriend:
		return nil
	case domain.RelationPendingFromThem:
	default:
		return domain.NewInvariantViolation(domain.ViolationNoRequest, "no pending request from that user")
	}
	key := Key{Scope: ScopeSocial, UserID: requesterID}
	return e.mutate(ctx, key, OpAcceptFriendRequest, string(domain.RelationFriend), func(ctx context.Context) error {
		return e.social.AcceptFriendRequest(ctx, requesterID)
	})
}

// RemoveFriend clears the social edge with the target: an accepted
// friendship is removed, a pending request in either direction is withdrawn
// or declined.
func (e *Engine) RemoveFriend(ctx context.Context, targetID int64) error {
	if e.StatusOf(targetID) == domain.RelationNone {
		return nil
	}
	key := Key{Scope: ScopeSocial, UserID: targetID}
	return e.mutate(ctx, key, OpRemoveFriend, string(domain.RelationNone), func(ctx context.Context) error {
		return e.social.RemoveFriend(ctx, targetID)
	})
}

// JoinTeam requests membership in a team. A plain join becomes pending
// until the captain approves; joining a team the actor was invited to
// accepts the invite and becomes active membership.
func (e *Engine) JoinTeam(ctx context.Context, teamID int64) error {
	predicted := domain.RolePending
	switch e.TeamStatusOf(teamID, e.actorID) {
	case domain.RoleCaptain, domain.RoleMember:
		return nil
	case domain.RolePending:
		predicted = domain.RoleMember
	}
	key := Key{Scope: ScopeTeam, TeamID: teamID, UserID: e.actorID}
	return e.mutate(ctx, key, OpJoinTeam, string(predicted), func(ctx context.Context) error {
		return e.teams.JoinTeam(ctx, teamID)
	})
}

// ApproveJoinRequest lets the captain promote a pending joiner to member.
func (e *Engine) ApproveJoinRequest(ctx context.Context, teamID, userID int64) error {
	roster := e.rosterOrEmpty(teamID)
	if v := e.checker.CanInvite(roster, e.actorID); v != nil {
		return v
	}
	if e.TeamStatusOf(teamID, userID) != domain.RolePending {
		return domain.NewInvariantViolation(domain.ViolationNoRequest, "no pending join request from that user")
	}
	key := Key{Scope: ScopeTeam, TeamID: teamID, UserID: userID}
	return e.mutate(ctx, key, OpApproveJoin, string(domain.RoleMember), func(ctx context.Context) error {
		return e.teams.ApproveJoinRequest(ctx, teamID, userID)
	})
}

// InviteResult is the per-target outcome of a batch invite.
type InviteResult struct {
	UserID int64
	Err    error
}

// InviteMembers invites a batch of users to a team. Invites are issued
// concurrently and settle independently; one refusal does not fail the
// rest. The returned error covers batch-level preconditions only.
func (e *Engine) InviteMembers(ctx context.Context, teamID int64, userIDs []int64) ([]InviteResult, error) {
	roster := e.rosterOrEmpty(teamID)
	if v := e.checker.CanInvite(roster, e.actorID); v != nil {
		return nil, v
	}

	results := make([]InviteResult, len(userIDs))
	var wg sync.WaitGroup
	for i, id := range userIDs {
		results[i].UserID = id
		if id == e.actorID {
			results[i].Err = domain.NewInvariantViolation(domain.ViolationSelfRelation, "cannot invite yourself")
			continue
		}
		if e.TeamStatusOf(teamID, id) != domain.RoleNone {
			continue
		}
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			key := Key{Scope: ScopeTeam, TeamID: teamID, UserID: id}
			results[i].Err = e.mutate(ctx, key, OpInvite, string(domain.RolePending), func(ctx context.Context) error {
				return e.teams.InviteToTeam(ctx, teamID, id)
			})
		}(i, id)
	}
	wg.Wait()
	return results, nil
}

// KickMember removes another roster entry. Only the captain may kick, and
// never themselves.
func (e *Engine) KickMember(ctx context.Context, teamID, targetID int64) error {
	if v := e.checker.CanKick(e.rosterOrEmpty(teamID), e.actorID, targetID); v != nil {
		return v
	}
	key := Key{Scope: ScopeTeam, TeamID: teamID, UserID: targetID}
	return e.mutate(ctx, key, OpKick, string(domain.RoleNone), func(ctx context.Context) error {
		return e.teams.KickMember(ctx, teamID, targetID)
	})
}

// LeaveTeam removes the actor from a team they are a member of or have a
// pending entry on. Captains must disband instead.
func (e *Engine) LeaveTeam(ctx context.Context, teamID int64) error {
	if v := e.checker.CanLeave(e.rosterOrEmpty(teamID), e.actorID); v != nil {
		return v
	}
	key := Key{Scope: ScopeTeam, TeamID: teamID, UserID: e.actorID}
	return e.mutate(ctx, key, OpLeaveTeam, string(domain.RoleNone), func(ctx context.Context) error {
		return e.teams.LeaveTeam(ctx, teamID)
	})
}

// DisbandTeam dissolves a team whose only active member is its captain.
// The upstream treats the captain leaving as disbanding.
func (e *Engine) DisbandTeam(ctx context.Context, teamID int64) error {
	if v := e.checker.CanDisband(e.rosterOrEmpty(teamID), e.actorID); v != nil {
		return v
	}
	key := Key{Scope: ScopeTeam, TeamID: teamID, UserID: e.actorID}
	return e.mutate(ctx, key, OpLeaveTeam, string(domain.RoleNone), func(ctx context.Context) error {
		return e.teams.LeaveTeam(ctx, teamID)
	})
}

// MarkNotificationRead flips one feed record to read, locally first.
func (e *Engine) MarkNotificationRead(ctx context.Context, id string) error {
	e.markReadLocal(func(n *domain.Notification) bool { return n.ID == id })
	if err := e.feed.MarkNotificationRead(ctx, id); err != nil {
		if errors.Is(err, domain.ErrAuthExpired) {
			e.expireSession()
		}
		return err
	}
	e.sched.Kick()
	return nil
}

// MarkAllNotificationsRead flips the whole feed to read, locally first.
func (e *Engine) MarkAllNotificationsRead(ctx context.Context) error {
	e.markReadLocal(func(*domain.Notification) bool { return true })
	if err := e.feed.MarkAllNotificationsRead(ctx); err != nil {
		if errors.Is(err, domain.ErrAuthExpired) {
			e.expireSession()
		}
		return err
	}
	e.sched.Kick()
	return nil
}

func (e *Engine) markReadLocal(match func(*domain.Notification) bool) {
	snap := e.index.Current()
	ns := make([]domain.Notification, len(snap.Notifications))
	copy(ns, snap.Notifications)
	for i := range ns {
		if match(&ns[i]) {
			ns[i].Read = true
		}
	}
	snap.Notifications = ns
	e.index.ApplySnapshot(snap)
}

// mutate records a prediction, issues the remote write, and settles the
// entry according to the error taxonomy: an authoritative refusal reverts
// immediately, a transient failure leaves the entry for the retry cycle,
// success schedules a confirming refresh.
func (e *Engine) mutate(ctx context.Context, key Key, op Op, predicted string, call func(context.Context) error) error {
	prior := e.index.Authoritative(key)
	m, fresh := e.ledger.Record(key, op, prior, predicted)
	if !fresh {
		return nil
	}
	e.publishRelation(key, m.Predicted)

	err := call(ctx)
	switch {
	case err == nil:
		e.sched.Kick()
		return nil
	case errors.Is(err, domain.ErrAuthExpired):
		e.expireSession()
		return err
	case errors.Is(err, domain.ErrNetwork):
		e.logger.Warn("mutation delayed by network failure, will retry",
			"op", string(op), "team", key.TeamID, "user", key.UserID, "err", err)
		return err
	default:
		e.ledger.Drop(key)
		e.publishRelation(key, e.index.Authoritative(key))
		return err
	}
}

// refresh is the scheduler callback: fetch every collection, rebuild the
// snapshot, reconcile the ledger, and notify subscribers. A partial fetch
// failure leaves the previous snapshot untouched.
func (e *Engine) refresh(ctx context.Context) error {
	var (
		users   []domain.Entity
		friends []domain.Entity
		reqs    []domain.FriendRequest
		rosters []domain.TeamRoster
		feed    []domain.Notification
	)
	errs := make([]error, 5)

	var wg sync.WaitGroup
	wg.Add(5)
	go func() { defer wg.Done(); users, errs[0] = e.social.ListUsers(ctx) }()
	go func() { defer wg.Done(); friends, errs[1] = e.social.ListFriends(ctx) }()
	go func() { defer wg.Done(); reqs, errs[2] = e.social.ListFriendRequests(ctx) }()
	go func() { defer wg.Done(); rosters, errs[3] = e.teams.ListTeams(ctx) }()
	go func() { defer wg.Done(); feed, errs[4] = e.feed.ListNotifications(ctx) }()
	wg.Wait()

	for _, err := range errs {
		if errors.Is(err, domain.ErrAuthExpired) {
			e.expireSession()
			return domain.ErrAuthExpired
		}
	}
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	e.directory.UpsertBatch(users)
	e.directory.UpsertBatch(friends)
	domain.SortNotifications(feed)

	e.index.ApplySnapshot(domain.Snapshot{
		ActorID:       e.actorID,
		Friends:       friends,
		Requests:      reqs,
		Rosters:       rosters,
		Notifications: feed,
		FetchedAt:     e.now(),
	})

	out := e.ledger.Reconcile(e.index.Authoritative)
	for _, m := range out.Superseded {
		e.publishRelation(m.Key, e.index.Authoritative(m.Key))
	}
	for _, m := range out.Retry {
		e.retryMutation(ctx, m)
	}
	for _, m := range out.Unknown {
		e.logger.Warn("mutation unresolved after retry, dropping",
			"op", string(m.Op), "team", m.Key.TeamID, "user", m.Key.UserID)
		e.hub.Publish(Event{Type: EventStateUnknown, UserID: m.Key.UserID, TeamID: m.Key.TeamID})
	}
	if n := len(out.Confirmed); n > 0 {
		e.logger.Debug("mutations confirmed", "count", n)
	}

	e.hub.Publish(Event{Type: EventSnapshotApplied})
	return nil
}

// retryMutation re-issues the remote write for an entry that survived a
// full reconcile cycle unresolved. This is its only retry.
func (e *Engine) retryMutation(ctx context.Context, m Mutation) {
	var err error
	switch m.Op {
	case OpSendFriendRequest:
		err = e.social.SendFriendRequest(ctx, m.Key.UserID)
	case OpAcceptFriendRequest:
		err = e.social.AcceptFriendRequest(ctx, m.Key.UserID)
	case OpRemoveFriend:
		err = e.social.RemoveFriend(ctx, m.Key.UserID)
	case OpJoinTeam:
		err = e.teams.JoinTeam(ctx, m.Key.TeamID)
	case OpApproveJoin:
		err = e.teams.ApproveJoinRequest(ctx, m.Key.TeamID, m.Key.UserID)
	case OpInvite:
		err = e.teams.InviteToTeam(ctx, m.Key.TeamID, m.Key.UserID)
	case OpKick:
		err = e.teams.KickMember(ctx, m.Key.TeamID, m.Key.UserID)
	case OpLeaveTeam:
		err = e.teams.LeaveTeam(ctx, m.Key.TeamID)
	default:
		return
	}

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAuthExpired):
		e.expireSession()
	case errors.Is(err, domain.ErrNetwork):
		e.logger.Warn("mutation retry failed", "op", string(m.Op), "err", err)
	default:
		e.ledger.Drop(m.Key)
		e.publishRelation(m.Key, e.index.Authoritative(m.Key))
	}
}

// expireSession clears every layer exactly once and tells subscribers the
// session is gone. All cached state is dropped; lookups return empty or
// placeholder values afterwards.
func (e *Engine) expireSession() {
	e.expireOnce.Do(func() {
		e.ledger.Clear()
		e.directory.Clear()
		e.index.ApplySnapshot(domain.Snapshot{ActorID: e.actorID})
		e.logger.Info("session expired, state cleared")
		e.hub.Publish(Event{Type: EventSessionExpired})
	})
}

func (e *Engine) publishRelation(key Key, state string) {
	e.hub.Publish(Event{
		Type:   EventRelationChanged,
		UserID: key.UserID,
		TeamID: key.TeamID,
		State:  state,
	})
}

func (e *Engine) rosterOrEmpty(teamID int64) domain.TeamRoster {
	r, _ := e.index.Current().RosterFor(teamID)
	return r
}

func violationErr(v *domain.InvariantViolation) error {
	if v == nil {
		return nil
	}
	return v
}
