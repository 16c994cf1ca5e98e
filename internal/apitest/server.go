// Package apitest is an in-memory stand-in for the authoritative tournament
// API, used to exercise the client and engine end to end. It serves the same
// wire shapes and error envelope as the real service and enforces the same
// roster rules, including the immutable captaincy.
package apitest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

const teamCapacity = 5

type user struct {
	ID          int64
	Username    string
	DisplayName string
	AvatarURL   string
}

type friendRequest struct {
	ID          string
	SenderID    int64
	RecipientID int64
	SentAt      time.Time
}

type player struct {
	UserID int64
	Status string // "member" or "pending"; the captain is implicit
}

type team struct {
	ID        int64
	Name      string
	CaptainID int64
	Players   []player
}

type notification struct {
	ID            string
	Type          string
	Title         string
	Message       string
	RelatedID     int64
	RelatedUserID int64
	Read          bool
	CreatedAt     time.Time
}

// Server is the fake API. All requests act as ActorID; the fake does not
// model multiple authenticated principals.
type Server struct {
	ActorID int64

	mu            sync.Mutex
	users         map[int64]user
	friends       map[int64]map[int64]bool
	requests      map[string]friendRequest
	teams         map[int64]*team
	notifications []notification
	nextID        int
	expired       bool
	failNext      int

	srv *httptest.Server
}

func New(actorID int64) *Server {
	s := &Server{
		ActorID:  actorID,
		users:    make(map[int64]user),
		friends:  make(map[int64]map[int64]bool),
		requests: make(map[string]friendRequest),
		teams:    make(map[int64]*team),
	}
	s.srv = httptest.NewServer(s.router())
	return s
}

func (s *Server) URL() string { return s.srv.URL }

func (s *Server) Close() { s.srv.Close() }

// AddUser seeds a directory entry.
func (s *Server) AddUser(id int64, username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = user{ID: id, Username: username}
}

// Befriend seeds an accepted friendship between two users.
func (s *Server) Befriend(a, b int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.link(a, b)
}

// Unfriend drops an accepted friendship behind the client's back, leaving
// any cached state stale.
func (s *Server) Unfriend(a, b int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.friends[a], b)
	delete(s.friends[b], a)
}

// AddRequest seeds a pending friend request and returns its id.
func (s *Server) AddRequest(senderID, recipientID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addRequestLocked(senderID, recipientID)
}

// AddTeam seeds a team. Members beyond the captain get status member.
func (s *Server) AddTeam(id int64, name string, captainID int64, memberIDs ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &team{ID: id, Name: name, CaptainID: captainID}
	for _, m := range memberIDs {
		t.Players = append(t.Players, player{UserID: m, Status: "member"})
	}
	s.teams[id] = t
}

// AddPending seeds a pending roster entry (an outstanding invite or join
// request).
func (s *Server) AddPending(teamID, userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.teams[teamID]; ok {
		t.Players = append(t.Players, player{UserID: userID, Status: "pending"})
	}
}

// AddNotification seeds a feed record and returns its id.
func (s *Server) AddNotification(typ string, relatedID, relatedUserID int64, createdAt time.Time) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	id := "n" + strconv.Itoa(s.nextID)
	s.notifications = append(s.notifications, notification{
		ID:            id,
		Type:          typ,
		RelatedID:     relatedID,
		RelatedUserID: relatedUserID,
		CreatedAt:     createdAt,
	})
	return id
}

// ExpireAuth makes every subsequent request fail with 401.
func (s *Server) ExpireAuth() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.expired = true
}

// FailNext makes the next n requests fail with 503 before the session and
// routing checks run.
func (s *Server) FailNext(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = n
}

// HasRequest reports whether a pending friend request exists between the
// pair, in either direction.
func (s *Server) HasRequest(a, b int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.requests {
		if (r.SenderID == a && r.RecipientID == b) || (r.SenderID == b && r.RecipientID == a) {
			return true
		}
	}
	return false
}

// AreFriends reports whether the pair has an accepted friendship.
func (s *Server) AreFriends(a, b int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.friends[a][b]
}

// TeamExists reports whether the team is still registered.
func (s *Server) TeamExists(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.teams[id]
	return ok
}

func (s *Server) link(a, b int64) {
	if s.friends[a] == nil {
		s.friends[a] = make(map[int64]bool)
	}
	if s.friends[b] == nil {
		s.friends[b] = make(map[int64]bool)
	}
	s.friends[a][b] = true
	s.friends[b][a] = true
}

func (s *Server) addRequestLocked(senderID, recipientID int64) string {
	s.nextID++
	id := "r" + strconv.Itoa(s.nextID)
	s.requests[id] = friendRequest{
		ID:          id,
		SenderID:    senderID,
		RecipientID: recipientID,
		SentAt:      time.Now(),
	}
	return id
}

func (s *Server) router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users", s.handleUsers)
	mux.HandleFunc("GET /friends", s.handleFriends)
	mux.HandleFunc("GET /friends/requests", s.handleFriendRequests)
	mux.HandleFunc("POST /friends/invite/{id}", s.handleFriendInvite)
	mux.HandleFunc("POST /friends/accept/{id}", s.handleFriendAccept)
	mux.HandleFunc("DELETE /friends/remove/{id}", s.handleFriendRemove)
	mux.HandleFunc("GET /teams", s.handleTeams)
	mux.HandleFunc("POST /teams/{id}/join", s.handleTeamJoin)
	mux.HandleFunc("POST /teams/{id}/approve/{uid}", s.handleTeamApprove)
	mux.HandleFunc("POST /teams/{id}/invite/{uid}", s.handleTeamInvite)
	mux.HandleFunc("DELETE /teams/{id}/kick/{uid}", s.handleTeamKick)
	mux.HandleFunc("DELETE /teams/{id}/leave", s.handleTeamLeave)
	mux.HandleFunc("GET /notifications", s.handleNotifications)
	mux.HandleFunc("POST /notifications/readAll", s.handleReadAll)
	mux.HandleFunc("POST /notifications/{id}/read", s.handleRead)
	return s.gate(mux)
}

func (s *Server) gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		if s.failNext > 0 {
			s.failNext--
			s.mu.Unlock()
			writeError(w, http.StatusServiceUnavailable, "unavailable", "temporarily unavailable")
			return
		}
		expired := s.expired
		s.mu.Unlock()
		if expired {
			writeError(w, http.StatusUnauthorized, "unauthorized", "session expired")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, userJSON(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0)
	for id := range s.friends[s.ActorID] {
		out = append(out, userJSON(s.users[id]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFriendRequests(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0)
	for _, fr := range s.requests {
		if fr.SenderID != s.ActorID && fr.RecipientID != s.ActorID {
			continue
		}
		out = append(out, map[string]any{
			"requestId":   fr.ID,
			"senderId":    fr.SenderID,
			"recipientId": fr.RecipientID,
			"senderName":  s.users[fr.SenderID].Username,
			"sentAt":      fr.SentAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleFriendInvite(w http.ResponseWriter, r *http.Request) {
	targetID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if targetID == s.ActorID {
		writeError(w, http.StatusBadRequest, "self_request", "cannot befriend yourself")
		return
	}
	if _, ok := s.users[targetID]; !ok {
		writeError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	if s.friends[s.ActorID][targetID] {
		writeError(w, http.StatusConflict, "friendship_exists", "already friends")
		return
	}
	for _, fr := range s.requests {
		if (fr.SenderID == s.ActorID && fr.RecipientID == targetID) ||
			(fr.SenderID == targetID && fr.RecipientID == s.ActorID) {
			writeError(w, http.StatusConflict, "request_exists", "request already pending")
			return
		}
	}
	s.addRequestLocked(s.ActorID, targetID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFriendAccept(w http.ResponseWriter, r *http.Request) {
	requesterID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, fr := range s.requests {
		if fr.SenderID == requesterID && fr.RecipientID == s.ActorID {
			delete(s.requests, id)
			s.link(s.ActorID, requesterID)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "no pending request from that user")
}

func (s *Server) handleFriendRemove(w http.ResponseWriter, r *http.Request) {
	targetID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := false
	if s.friends[s.ActorID][targetID] {
		delete(s.friends[s.ActorID], targetID)
		delete(s.friends[targetID], s.ActorID)
		removed = true
	}
	for id, fr := range s.requests {
		if (fr.SenderID == s.ActorID && fr.RecipientID == targetID) ||
			(fr.SenderID == targetID && fr.RecipientID == s.ActorID) {
			delete(s.requests, id)
			removed = true
		}
	}
	if !removed {
		writeError(w, http.StatusNotFound, "not_found", "no relationship with that user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.teams))
	for _, t := range s.teams {
		players := []map[string]any{{
			"userId":   t.CaptainID,
			"username": s.users[t.CaptainID].Username,
			"status":   "captain",
		}}
		for _, p := range t.Players {
			players = append(players, map[string]any{
				"userId":   p.UserID,
				"username": s.users[p.UserID].Username,
				"status":   p.Status,
			})
		}
		out = append(out, map[string]any{
			"id":        t.ID,
			"name":      t.Name,
			"captainId": t.CaptainID,
			"players":   players,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTeamJoin(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "team not found")
		return
	}
	if t.CaptainID == s.ActorID {
		writeError(w, http.StatusConflict, "already_member", "already on the team")
		return
	}
	for i, p := range t.Players {
		if p.UserID != s.ActorID {
			continue
		}
		if p.Status == "member" {
			writeError(w, http.StatusConflict, "already_member", "already on the team")
			return
		}
		// Joining while invited accepts the invite.
		if t.activeCount() >= teamCapacity {
			writeError(w, http.StatusConflict, "team_full", "team is full")
			return
		}
		t.Players[i].Status = "member"
		w.WriteHeader(http.StatusNoContent)
		return
	}
	t.Players = append(t.Players, player{UserID: s.ActorID, Status: "pending"})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTeamApprove(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "uid")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "team not found")
		return
	}
	if t.CaptainID != s.ActorID {
		writeError(w, http.StatusForbidden, "forbidden", "only the captain can approve")
		return
	}
	if t.activeCount() >= teamCapacity {
		writeError(w, http.StatusConflict, "team_full", "team is full")
		return
	}
	for i, p := range t.Players {
		if p.UserID == userID && p.Status == "pending" {
			t.Players[i].Status = "member"
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "no pending join request")
}

func (s *Server) handleTeamInvite(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "uid")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "team not found")
		return
	}
	if t.CaptainID != s.ActorID {
		writeError(w, http.StatusForbidden, "forbidden", "only the captain can invite")
		return
	}
	if _, ok := s.users[userID]; !ok {
		writeError(w, http.StatusNotFound, "not_found", "user not found")
		return
	}
	if userID == t.CaptainID {
		writeError(w, http.StatusConflict, "already_member", "already on the team")
		return
	}
	if t.activeCount() >= teamCapacity {
		writeError(w, http.StatusConflict, "team_full", "team is full")
		return
	}
	for _, p := range t.Players {
		if p.UserID == userID {
			writeError(w, http.StatusConflict, "already_member", "already on the roster")
			return
		}
	}
	t.Players = append(t.Players, player{UserID: userID, Status: "pending"})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTeamKick(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "uid")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "team not found")
		return
	}
	if t.CaptainID != s.ActorID {
		writeError(w, http.StatusForbidden, "forbidden", "only the captain can kick")
		return
	}
	if userID == t.CaptainID {
		writeError(w, http.StatusConflict, "captain_immutable", "the captain cannot be kicked")
		return
	}
	for i, p := range t.Players {
		if p.UserID == userID {
			t.Players = append(t.Players[:i], t.Players[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "not on the roster")
}

func (s *Server) handleTeamLeave(w http.ResponseWriter, r *http.Request) {
	teamID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[teamID]
	if !ok {
		writeError(w, http.StatusNotFound, "not_found", "team not found")
		return
	}
	if t.CaptainID == s.ActorID {
		// The captain leaving disbands the team, but only once everyone
		// else is gone.
		if t.activeCount() > 1 {
			writeError(w, http.StatusConflict, "team_not_empty", "remove members before disbanding")
			return
		}
		delete(s.teams, teamID)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	for i, p := range t.Players {
		if p.UserID == s.ActorID {
			t.Players = append(t.Players[:i], t.Players[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "not on the roster")
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]map[string]any, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, map[string]any{
			"notificationId":   n.ID,
			"notificationType": n.Type,
			"title":            n.Title,
			"message":          n.Message,
			"relatedId":        n.RelatedID,
			"relatedUserId":    n.RelatedUserID,
			"isRead":           n.Read,
			"createdAt":        n.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].Read = true
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeError(w, http.StatusNotFound, "not_found", "notification not found")
}

func (s *Server) handleReadAll(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		s.notifications[i].Read = true
	}
	w.WriteHeader(http.StatusNoContent)
}

func (t *team) activeCount() int {
	n := 1 // captain
	for _, p := range t.Players {
		if p.Status == "member" {
			n++
		}
	}
	return n
}

func userJSON(u user) map[string]any {
	return map[string]any{
		"userId":   u.ID,
		"username": u.Username,
	}
}

func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "validation_error", fmt.Sprintf("invalid %s", name))
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}
