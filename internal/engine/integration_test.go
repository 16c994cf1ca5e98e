package engine_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tourneysync/internal/api"
	"tourneysync/internal/apitest"
	"tourneysync/internal/domain"
	"tourneysync/internal/engine"
	"tourneysync/internal/notify"
)

func newIntegrationEngine(t *testing.T, srv *apitest.Server) *engine.Engine {
	t.Helper()
	client, err := api.NewClient(srv.URL(), "test-token", 2*time.Second)
	require.NoError(t, err)

	eng, err := engine.New(engine.Options{
		ActorID: srv.ActorID,
		Social:  client,
		Teams:   client,
		Feed:    client,
		Logger:  slog.New(slog.DiscardHandler),
	})
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

func TestFriendRequestRoundTrip(t *testing.T) {
	srv := apitest.New(1)
	defer srv.Close()
	srv.AddUser(1, "me")
	srv.AddUser(2, "ban")

	eng := newIntegrationEngine(t, srv)
	ctx := context.Background()
	require.NoError(t, eng.RefreshNow(ctx))

	require.NoError(t, eng.SendFriendRequest(ctx, 2))
	require.Equal(t, domain.RelationPendingFromMe, eng.StatusOf(2))
	require.True(t, srv.HasRequest(1, 2))

	require.NoError(t, eng.RefreshNow(ctx))
	require.Equal(t, domain.RelationPendingFromMe, eng.StatusOf(2))
	require.Zero(t, eng.Pending())
}

func TestAcceptIncomingRequestRoundTrip(t *testing.T) {
	srv := apitest.New(1)
	defer srv.Close()
	srv.AddUser(1, "me")
	srv.AddUser(3, "kir")
	srv.AddRequest(3, 1)

	eng := newIntegrationEngine(t, srv)
	ctx := context.Background()
	require.NoError(t, eng.RefreshNow(ctx))
	require.Equal(t, domain.RelationPendingFromThem, eng.StatusOf(3))

	require.NoError(t, eng.AcceptFriendRequest(ctx, 3))
	require.Equal(t, domain.RelationFriend, eng.StatusOf(3))
	require.True(t, srv.AreFriends(1, 3))

	require.NoError(t, eng.RefreshNow(ctx))
	require.Equal(t, domain.RelationFriend, eng.StatusOf(3))
	require.Zero(t, eng.Pending())
}

func TestTeamLifecycleRoundTrip(t *testing.T) {
	srv := apitest.New(1)
	defer srv.Close()
	for id, name := range map[int64]string{1: "me", 2: "ban", 3: "kir", 4: "tam"} {
		srv.AddUser(id, name)
	}
	srv.AddTeam(9, "nighthawks", 1, 2)

	eng := newIntegrationEngine(t, srv)
	ctx := context.Background()
	require.NoError(t, eng.RefreshNow(ctx))
	require.Equal(t, domain.RoleCaptain, eng.TeamStatusOf(9, 1))
	require.Equal(t, domain.RoleMember, eng.TeamStatusOf(9, 2))

	results, err := eng.InviteMembers(ctx, 9, []int64{3, 4})
	require.NoError(t, err)
	for _, res := range results {
		require.NoError(t, res.Err, "invite %d", res.UserID)
	}
	require.NoError(t, eng.RefreshNow(ctx))
	require.Equal(t, domain.RolePending, eng.TeamStatusOf(9, 3))
	require.Equal(t, domain.RolePending, eng.TeamStatusOf(9, 4))

	// Disband is blocked until the captain is the only active member.
	err = eng.DisbandTeam(ctx, 9)
	require.ErrorIs(t, err, domain.ErrInvariant)

	require.NoError(t, eng.KickMember(ctx, 9, 2))
	require.NoError(t, eng.RefreshNow(ctx))
	require.Equal(t, domain.RoleNone, eng.TeamStatusOf(9, 2))

	require.NoError(t, eng.DisbandTeam(ctx, 9))
	require.False(t, srv.TeamExists(9))
	require.NoError(t, eng.RefreshNow(ctx))
	_, ok := eng.Roster(9)
	require.False(t, ok)
}

func TestServerRefusalSurfacesVerbatim(t *testing.T) {
	srv := apitest.New(1)
	defer srv.Close()
	srv.AddUser(1, "me")
	srv.AddUser(2, "ban")
	srv.Befriend(1, 2)

	eng := newIntegrationEngine(t, srv)
	ctx := context.Background()
	require.NoError(t, eng.RefreshNow(ctx))

	// The friendship vanishes server-side; the cache is now stale and the
	// remove the engine still believes in gets refused.
	srv.Unfriend(1, 2)
	err := eng.RemoveFriend(ctx, 2)
	require.ErrorIs(t, err, domain.ErrServerRejected)

	var rejected *domain.ServerRejectedError
	require.ErrorAs(t, err, &rejected)
	require.Equal(t, "no relationship with that user", rejected.Message)

	require.NoError(t, eng.RefreshNow(ctx))
	require.Equal(t, domain.RelationNone, eng.StatusOf(2))
}

func TestNotificationFeedRoundTrip(t *testing.T) {
	srv := apitest.New(1)
	defer srv.Close()
	srv.AddUser(1, "me")
	older := srv.AddNotification("FriendRequest", 0, 3, time.Now().Add(-time.Hour))
	newer := srv.AddNotification("TeamInvite", 9, 0, time.Now())

	eng := newIntegrationEngine(t, srv)
	ctx := context.Background()
	require.NoError(t, eng.RefreshNow(ctx))

	feed := eng.Notifications()
	require.Len(t, feed, 2)
	require.Equal(t, newer, feed[0].ID)
	require.Equal(t, older, feed[1].ID)
	require.Equal(t, 2, eng.UnreadCount())

	require.NoError(t, eng.MarkNotificationRead(ctx, newer))
	require.Equal(t, 1, eng.UnreadCount())

	require.NoError(t, eng.MarkAllNotificationsRead(ctx))
	require.NoError(t, eng.RefreshNow(ctx))
	require.Zero(t, eng.UnreadCount())
}

func TestJoinRequestAcceptedFromNotification(t *testing.T) {
	srv := apitest.New(1)
	defer srv.Close()
	srv.AddUser(1, "me")
	srv.AddUser(5, "joiner")
	srv.AddTeam(9, "nighthawks", 1)
	srv.AddPending(9, 5)
	srv.AddNotification("TeamJoinRequest", 9, 5, time.Now())

	eng := newIntegrationEngine(t, srv)
	ctx := context.Background()
	require.NoError(t, eng.RefreshNow(ctx))
	require.Equal(t, domain.RolePending, eng.TeamStatusOf(9, 5))

	router := notify.NewRouter(eng, slog.New(slog.DiscardHandler))
	feed := eng.Notifications()
	require.Len(t, feed, 1)
	require.Equal(t, []notify.Action{notify.ActionAccept, notify.ActionDecline}, router.ActionsFor(feed[0]))

	require.NoError(t, router.Accept(ctx, feed[0]))
	require.Equal(t, domain.RoleMember, eng.TeamStatusOf(9, 5))
	require.Zero(t, eng.UnreadCount())

	require.NoError(t, eng.RefreshNow(ctx))
	roster, ok := eng.Roster(9)
	require.True(t, ok)
	require.Equal(t, domain.RoleMember, roster.RoleOf(5))

	// The joiner appears exactly once on the roster.
	count := 0
	for _, entry := range roster.Entries {
		if entry.UserID == 5 {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestAuthExpiryClearsSession(t *testing.T) {
	srv := apitest.New(1)
	defer srv.Close()
	srv.AddUser(1, "me")
	srv.AddUser(2, "ban")
	srv.Befriend(1, 2)

	eng := newIntegrationEngine(t, srv)
	ctx := context.Background()
	require.NoError(t, eng.RefreshNow(ctx))
	require.Len(t, eng.Friends(), 1)

	srv.ExpireAuth()
	err := eng.RefreshNow(ctx)
	require.ErrorIs(t, err, domain.ErrAuthExpired)
	require.Empty(t, eng.Friends())
	require.Empty(t, eng.Users())
	require.Zero(t, eng.Pending())
}

func TestTransientFailureKeepsCache(t *testing.T) {
	srv := apitest.New(1)
	defer srv.Close()
	srv.AddUser(1, "me")
	srv.AddUser(2, "ban")
	srv.Befriend(1, 2)

	eng := newIntegrationEngine(t, srv)
	ctx := context.Background()
	require.NoError(t, eng.RefreshNow(ctx))

	srv.FailNext(5)
	require.Error(t, eng.RefreshNow(ctx))
	require.Equal(t, domain.RelationFriend, eng.StatusOf(2))
}
