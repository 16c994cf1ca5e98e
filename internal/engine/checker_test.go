package engine

import (
	"errors"
	"testing"

	"tourneysync/internal/domain"
)

func rosterWith(captainID int64, members, pending []int64) domain.TeamRoster {
	r := domain.TeamRoster{
		Team:    domain.Team{ID: 9, CaptainID: captainID},
		Entries: []domain.RosterEntry{{UserID: captainID, Role: domain.RoleCaptain}},
	}
	for _, id := range members {
		r.Entries = append(r.Entries, domain.RosterEntry{UserID: id, Role: domain.RoleMember})
	}
	for _, id := range pending {
		r.Entries = append(r.Entries, domain.RosterEntry{UserID: id, Role: domain.RolePending})
	}
	return r
}

func wantViolation(t *testing.T, v *domain.InvariantViolation, code domain.ViolationCode) {
	t.Helper()
	if v == nil {
		t.Fatalf("expected violation %s, got nil", code)
	}
	if v.Code != code {
		t.Fatalf("violation code: got %s, want %s", v.Code, code)
	}
	if !errors.Is(v, domain.ErrInvariant) {
		t.Fatalf("violation does not unwrap to ErrInvariant")
	}
}

func TestCheckerCanInvite(t *testing.T) {
	c := NewChecker(5)

	if v := c.CanInvite(rosterWith(1, []int64{2, 3}, nil), 1); v != nil {
		t.Fatalf("captain with room: %v", v)
	}
	wantViolation(t, c.CanInvite(rosterWith(1, []int64{2, 3}, nil), 2), domain.ViolationNotCaptain)

	full := rosterWith(1, []int64{2, 3, 4, 5}, nil)
	wantViolation(t, c.CanInvite(full, 1), domain.ViolationTeamFull)

	// Pending invitees do not count against capacity.
	almostFull := rosterWith(1, []int64{2, 3, 4}, []int64{6, 7, 8})
	if v := c.CanInvite(almostFull, 1); v != nil {
		t.Fatalf("pending counted against capacity: %v", v)
	}
}

func TestCheckerCanKick(t *testing.T) {
	c := NewChecker(5)
	r := rosterWith(1, []int64{2}, []int64{3})

	if v := c.CanKick(r, 1, 2); v != nil {
		t.Fatalf("kick member: %v", v)
	}
	if v := c.CanKick(r, 1, 3); v != nil {
		t.Fatalf("kick pending: %v", v)
	}
	wantViolation(t, c.CanKick(r, 2, 3), domain.ViolationNotCaptain)
	wantViolation(t, c.CanKick(r, 1, 1), domain.ViolationKickCaptain)
	wantViolation(t, c.CanKick(r, 1, 99), domain.ViolationNotMember)
}

func TestCheckerCanDisband(t *testing.T) {
	c := NewChecker(5)

	if v := c.CanDisband(rosterWith(1, nil, nil), 1); v != nil {
		t.Fatalf("sole captain: %v", v)
	}
	// Pending entries do not block disbanding.
	if v := c.CanDisband(rosterWith(1, nil, []int64{5}), 1); v != nil {
		t.Fatalf("captain with pending only: %v", v)
	}
	wantViolation(t, c.CanDisband(rosterWith(1, []int64{2}, nil), 1), domain.ViolationTeamNotEmpty)
	wantViolation(t, c.CanDisband(rosterWith(1, []int64{2}, nil), 2), domain.ViolationNotCaptain)
}

func TestCheckerCanLeave(t *testing.T) {
	c := NewChecker(5)
	r := rosterWith(1, []int64{2}, []int64{3})

	if v := c.CanLeave(r, 2); v != nil {
		t.Fatalf("member leave: %v", v)
	}
	if v := c.CanLeave(r, 3); v != nil {
		t.Fatalf("pending leave: %v", v)
	}
	wantViolation(t, c.CanLeave(r, 1), domain.ViolationCaptainLeave)
	wantViolation(t, c.CanLeave(r, 99), domain.ViolationNotMember)
}
