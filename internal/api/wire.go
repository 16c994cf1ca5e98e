package api

import (
	"strings"
	"time"

	"tourneysync/internal/domain"
)

// Wire records mirror the upstream JSON shapes. Conversion to domain types
// happens here and nowhere else.

type userRecord struct {
	UserID      int64  `json:"userId"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
}

func (r userRecord) entity() domain.Entity {
	return domain.Entity{
		ID:          r.UserID,
		Username:    r.Username,
		DisplayName: r.DisplayName,
		AvatarURL:   r.AvatarURL,
	}
}

type requestRecord struct {
	RequestID   string    `json:"requestId"`
	SenderID    int64     `json:"senderId"`
	RecipientID int64     `json:"recipientId"`
	SenderName  string    `json:"senderName,omitempty"`
	SentAt      time.Time `json:"sentAt"`
}

type playerRecord struct {
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Status    string `json:"status"`
	RequestID string `json:"requestId,omitempty"`
}

type teamRecord struct {
	ID          int64          `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Logo        string         `json:"logo,omitempty"`
	CaptainID   int64          `json:"captainId"`
	Players     []playerRecord `json:"players"`
}

func (r teamRecord) roster() domain.TeamRoster {
	roster := domain.TeamRoster{
		Team: domain.Team{
			ID:          r.ID,
			Name:        r.Name,
			Description: r.Description,
			LogoURL:     r.Logo,
			CaptainID:   r.CaptainID,
		},
		Entries: make([]domain.RosterEntry, 0, len(r.Players)),
	}
	for _, p := range r.Players {
		roster.Entries = append(roster.Entries, domain.RosterEntry{
			UserID:    p.UserID,
			Role:      playerRole(p, r.CaptainID),
			RequestID: p.RequestID,
		})
	}
	return roster
}

// playerRole derives the membership relation from the wire status. The
// captain id on the team record dominates a stale per-player status.
func playerRole(p playerRecord, captainID int64) domain.TeamRole {
	if p.UserID == captainID {
		return domain.RoleCaptain
	}
	switch strings.ToLower(p.Status) {
	case "captain":
		return domain.RoleCaptain
	case "member":
		return domain.RoleMember
	case "pending":
		return domain.RolePending
	default:
		return domain.RoleNone
	}
}

type notificationRecord struct {
	NotificationID   string    `json:"notificationId"`
	NotificationType string    `json:"notificationType"`
	Title            string    `json:"title,omitempty"`
	Message          string    `json:"message,omitempty"`
	RelatedID        int64     `json:"relatedId,omitempty"`
	RelatedUserID    int64     `json:"relatedUserId,omitempty"`
	IsRead           bool      `json:"isRead"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (r notificationRecord) notification() domain.Notification {
	return domain.Notification{
		ID:        r.NotificationID,
		Type:      notificationType(r.NotificationType),
		Title:     r.Title,
		Message:   r.Message,
		TeamID:    r.RelatedID,
		UserID:    r.RelatedUserID,
		Read:      r.IsRead,
		CreatedAt: r.CreatedAt,
	}
}

func notificationType(raw string) domain.NotificationType {
	switch raw {
	case string(domain.NotificationFriendRequest):
		return domain.NotificationFriendRequest
	case string(domain.NotificationTeamInvite):
		return domain.NotificationTeamInvite
	case string(domain.NotificationTeamJoinRequest):
		return domain.NotificationTeamJoinRequest
	default:
		return domain.NotificationInformational
	}
}
