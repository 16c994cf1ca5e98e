package domain

import (
	"sort"
	"time"
)

// NotificationType tags a notification record. Unknown upstream types are
// folded into NotificationInformational by the router.
type NotificationType string

const (
	NotificationFriendRequest   NotificationType = "FriendRequest"
	NotificationTeamInvite      NotificationType = "TeamInvite"
	NotificationTeamJoinRequest NotificationType = "TeamJoinRequest"
	NotificationInformational   NotificationType = "Informational"
)

// Notification is an event record from the authoritative feed. Records are
// append-only from the client's perspective; the client only marks them
// read, never deletes them.
type Notification struct {
	ID        string
	Type      NotificationType
	Title     string
	Message   string
	TeamID    int64 // related team, 0 when not team-scoped
	UserID    int64 // related user (e.g. the join requester), 0 when absent
	Read      bool
	CreatedAt time.Time
}

// SortNotifications orders unread before read, newest first within each
// group. Sorting is stable so equal timestamps keep feed order.
func SortNotifications(ns []Notification) {
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].Read != ns[j].Read {
			return !ns[i].Read
		}
		return ns[i].CreatedAt.After(ns[j].CreatedAt)
	})
}
