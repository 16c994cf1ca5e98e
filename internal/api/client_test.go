package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"tourneysync/internal/domain"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, "tok", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestListTeamsDecodesRoster(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization: got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{
			"id": 9, "name": "nighthawks", "captainId": 1,
			"players": [
				{"userId": 1, "username": "me", "status": "captain"},
				{"userId": 2, "username": "ban", "status": "member"},
				{"userId": 3, "username": "kir", "status": "pending"},
				{"userId": 1, "username": "me", "status": "member"}
			]
		}]`))
	})

	rosters, err := c.ListTeams(context.Background())
	if err != nil {
		t.Fatalf("ListTeams: %v", err)
	}
	if len(rosters) != 1 {
		t.Fatalf("rosters: got %d", len(rosters))
	}
	r := rosters[0]
	if r.Team.CaptainID != 1 || r.Team.Name != "nighthawks" {
		t.Fatalf("team: %+v", r.Team)
	}
	if got := r.RoleOf(2); got != domain.RoleMember {
		t.Fatalf("member role: got %s", got)
	}
	if got := r.RoleOf(3); got != domain.RolePending {
		t.Fatalf("pending role: got %s", got)
	}
	// A stale per-player status never demotes the captain.
	if got := r.Entries[3].Role; got != domain.RoleCaptain {
		t.Fatalf("captain with stale status: got %s", got)
	}
}

func TestUnauthorizedMapsToAuthExpired(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.ListFriends(context.Background())
	if !errors.Is(err, domain.ErrAuthExpired) {
		t.Fatalf("got %v", err)
	}
}

func TestRejectionPreservesServerReason(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"error":{"code":"team_full","message":"team is full"}}`))
	})
	err := c.InviteToTeam(context.Background(), 9, 4)
	if !errors.Is(err, domain.ErrServerRejected) {
		t.Fatalf("got %v", err)
	}
	var rejected *domain.ServerRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("not a ServerRejectedError: %v", err)
	}
	if rejected.Code != "team_full" || rejected.Message != "team is full" {
		t.Fatalf("reason mangled: %+v", rejected)
	}
}

func TestRejectionWithoutEnvelopeKeepsBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("malformed id\n"))
	})
	err := c.SendFriendRequest(context.Background(), 2)
	var rejected *domain.ServerRejectedError
	if !errors.As(err, &rejected) || rejected.Message != "malformed id" {
		t.Fatalf("got %v", err)
	}
}

func TestConnectionFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	c, err := NewClient(srv.URL, "", time.Second)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	srv.Close()

	_, err = c.ListUsers(context.Background())
	if !errors.Is(err, domain.ErrNetwork) {
		t.Fatalf("got %v", err)
	}
	if !IsRetryable(err) {
		t.Fatalf("network error not retryable")
	}
}

func TestWritesCarryClientRef(t *testing.T) {
	seen := make(map[string]bool)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ref := r.Header.Get("X-Client-Ref")
		if ref == "" {
			t.Errorf("missing X-Client-Ref")
		}
		if seen[ref] {
			t.Errorf("client ref reused: %s", ref)
		}
		seen[ref] = true
		w.WriteHeader(http.StatusNoContent)
	})

	for i := 0; i < 3; i++ {
		if err := c.JoinTeam(context.Background(), 9); err != nil {
			t.Fatalf("JoinTeam: %v", err)
		}
	}
}
