// Package notify turns raw notification records into actionable items and
// dispatches the actions back through the reconciliation engine.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"tourneysync/internal/domain"
)

// Action is what a notification offers the user.
type Action string

const (
	ActionAccept   Action = "accept"
	ActionDecline  Action = "decline"
	ActionMarkRead Action = "mark_read"
)

// Engine is the slice of the reconciliation engine the router dispatches
// through. *engine.Engine satisfies it.
type Engine interface {
	JoinTeam(ctx context.Context, teamID int64) error
	ApproveJoinRequest(ctx context.Context, teamID, userID int64) error
	AcceptFriendRequest(ctx context.Context, requesterID int64) error
	MarkNotificationRead(ctx context.Context, id string) error
	MarkAllNotificationsRead(ctx context.Context) error
}

type Router struct {
	engine Engine
	logger *slog.Logger
}

func NewRouter(engine Engine, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{engine: engine, logger: logger}
}

// ActionsFor returns the actions a record offers. Read records offer none;
// unread actionable types offer accept plus a dismissal, everything else
// offers mark-read only.
func (r *Router) ActionsFor(n domain.Notification) []Action {
	if n.Read {
		return nil
	}
	switch n.Type {
	case domain.NotificationTeamInvite, domain.NotificationTeamJoinRequest:
		return []Action{ActionAccept, ActionDecline}
	case domain.NotificationFriendRequest:
		return []Action{ActionAccept, ActionMarkRead}
	default:
		return []Action{ActionMarkRead}
	}
}

// Accept performs the positive action for a record and marks it read once
// the action succeeded. The record stays unread on failure so the user can
// retry.
func (r *Router) Accept(ctx context.Context, n domain.Notification) error {
	var err error
	switch n.Type {
	case domain.NotificationTeamInvite:
		if n.TeamID == 0 {
			return fmt.Errorf("team invite %s has no team reference", n.ID)
		}
		err = r.engine.JoinTeam(ctx, n.TeamID)
	case domain.NotificationTeamJoinRequest:
		if n.TeamID == 0 || n.UserID == 0 {
			return fmt.Errorf("join request %s is missing team or user reference", n.ID)
		}
		err = r.engine.ApproveJoinRequest(ctx, n.TeamID, n.UserID)
	case domain.NotificationFriendRequest:
		if n.UserID == 0 {
			return fmt.Errorf("friend request %s has no sender reference", n.ID)
		}
		err = r.engine.AcceptFriendRequest(ctx, n.UserID)
	default:
		return fmt.Errorf("notification %s of type %s is not acceptable", n.ID, n.Type)
	}
	if err != nil {
		return err
	}
	if err := r.engine.MarkNotificationRead(ctx, n.ID); err != nil {
		r.logger.Warn("accepted notification could not be marked read", "id", n.ID, "err", err)
	}
	return nil
}

// Decline dismisses a record. Declining only marks the record read; the
// underlying invite or request stays untouched on the authoritative side
// and lapses there.
func (r *Router) Decline(ctx context.Context, n domain.Notification) error {
	return r.engine.MarkNotificationRead(ctx, n.ID)
}

// MarkRead dismisses a single record without acting on it.
func (r *Router) MarkRead(ctx context.Context, n domain.Notification) error {
	return r.engine.MarkNotificationRead(ctx, n.ID)
}

// MarkAllRead dismisses the whole feed.
func (r *Router) MarkAllRead(ctx context.Context) error {
	return r.engine.MarkAllNotificationsRead(ctx)
}
