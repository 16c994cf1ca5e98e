package domain

import (
	"testing"
	"time"
)

func testRoster() TeamRoster {
	return TeamRoster{
		Team: Team{ID: 7, Name: "Night Owls", CaptainID: 1},
		Entries: []RosterEntry{
			{UserID: 1, Role: RoleCaptain},
			{UserID: 2, Role: RoleMember},
			{UserID: 3, Role: RolePending},
			{UserID: 4, Role: RoleMember},
		},
	}
}

func TestRosterCounts(t *testing.T) {
	r := testRoster()
	if got := r.ActiveCount(); got != 3 {
		t.Fatalf("ActiveCount = %d, want 3", got)
	}
	if got := r.PendingCount(); got != 1 {
		t.Fatalf("PendingCount = %d, want 1", got)
	}
	if got := r.CaptainCount(); got != 1 {
		t.Fatalf("CaptainCount = %d, want 1", got)
	}
}

func TestRosterRoleOf(t *testing.T) {
	r := testRoster()
	cases := []struct {
		userID int64
		want   TeamRole
	}{
		{1, RoleCaptain},
		{2, RoleMember},
		{3, RolePending},
		{99, RoleNone},
	}
	for _, tc := range cases {
		if got := r.RoleOf(tc.userID); got != tc.want {
			t.Fatalf("RoleOf(%d) = %s, want %s", tc.userID, got, tc.want)
		}
	}
}

func TestRosterActiveMembersCaptainFirst(t *testing.T) {
	r := TeamRoster{
		Entries: []RosterEntry{
			{UserID: 2, Role: RoleMember},
			{UserID: 1, Role: RoleCaptain},
			{UserID: 3, Role: RolePending},
		},
	}
	active := r.ActiveMembers()
	if len(active) != 2 {
		t.Fatalf("len(ActiveMembers) = %d, want 2", len(active))
	}
	if active[0].UserID != 1 || active[0].Role != RoleCaptain {
		t.Fatalf("expected captain first, got %+v", active[0])
	}
}

func TestEntityAvatarFallback(t *testing.T) {
	cases := []struct {
		name   string
		avatar string
		want   string
	}{
		{"empty", "", DefaultAvatarURL},
		{"placeholder", "https://i.pravatar.cc/150?u=4", DefaultAvatarURL},
		{"real", "https://cdn.example.com/a/4.png", "https://cdn.example.com/a/4.png"},
	}
	for _, tc := range cases {
		e := Entity{ID: 4, Username: "kim", AvatarURL: tc.avatar}
		if got := e.Avatar(); got != tc.want {
			t.Fatalf("%s: Avatar = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestPlaceholderEntity(t *testing.T) {
	e := PlaceholderEntity(42)
	if e.ID != 42 {
		t.Fatalf("ID = %d, want 42", e.ID)
	}
	if e.Name() != "player-42" {
		t.Fatalf("Name = %q, want player-42", e.Name())
	}
	if e.Avatar() != DefaultAvatarURL {
		t.Fatalf("Avatar = %q, want default", e.Avatar())
	}
}

func TestSortNotificationsUnreadFirstNewestFirst(t *testing.T) {
	base := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	ns := []Notification{
		{ID: "a", Read: true, CreatedAt: base.Add(3 * time.Hour)},
		{ID: "b", Read: false, CreatedAt: base.Add(1 * time.Hour)},
		{ID: "c", Read: false, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "d", Read: true, CreatedAt: base},
	}
	SortNotifications(ns)
	wantOrder := []string{"c", "b", "a", "d"}
	for i, want := range wantOrder {
		if ns[i].ID != want {
			t.Fatalf("position %d = %s, want %s (full: %v)", i, ns[i].ID, want, ns)
		}
	}
}
