// Package api is the HTTP client for the authoritative tournament API.
// It maps transport and status failures into the domain error taxonomy so
// the engine never sees raw HTTP details.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"tourneysync/internal/domain"
)

type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("api base url required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// ListUsers fetches the full entity directory.
func (c *Client) ListUsers(ctx context.Context) ([]domain.Entity, error) {
	var raw []userRecord
	if err := c.get(ctx, "/users", &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Entity, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.entity())
	}
	return out, nil
}

// ListFriends fetches the actor's accepted friend edges.
func (c *Client) ListFriends(ctx context.Context) ([]domain.Entity, error) {
	var raw []userRecord
	if err := c.get(ctx, "/friends", &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Entity, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.entity())
	}
	return out, nil
}

// ListFriendRequests fetches pending requests in both directions.
func (c *Client) ListFriendRequests(ctx context.Context) ([]domain.FriendRequest, error) {
	var raw []requestRecord
	if err := c.get(ctx, "/friends/requests", &raw); err != nil {
		return nil, err
	}
	out := make([]domain.FriendRequest, 0, len(raw))
	for _, r := range raw {
		out = append(out, domain.FriendRequest{
			RequestID:   r.RequestID,
			SenderID:    r.SenderID,
			RecipientID: r.RecipientID,
			SenderName:  r.SenderName,
			CreatedAt:   r.SentAt,
		})
	}
	return out, nil
}

// ListTeams fetches every team with its full roster.
func (c *Client) ListTeams(ctx context.Context) ([]domain.TeamRoster, error) {
	var raw []teamRecord
	if err := c.get(ctx, "/teams", &raw); err != nil {
		return nil, err
	}
	out := make([]domain.TeamRoster, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.roster())
	}
	return out, nil
}

func (c *Client) SendFriendRequest(ctx context.Context, targetID int64) error {
	return c.send(ctx, http.MethodPost, fmt.Sprintf("/friends/invite/%d", targetID))
}

func (c *Client) AcceptFriendRequest(ctx context.Context, requesterID int64) error {
	return c.send(ctx, http.MethodPost, fmt.Sprintf("/friends/accept/%d", requesterID))
}

// RemoveFriend removes an accepted friendship or declines a pending
// request; the upstream uses one endpoint for both.
func (c *Client) RemoveFriend(ctx context.Context, targetID int64) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/friends/remove/%d", targetID))
}

func (c *Client) JoinTeam(ctx context.Context, teamID int64) error {
	return c.send(ctx, http.MethodPost, fmt.Sprintf("/teams/%d/join", teamID))
}

func (c *Client) ApproveJoinRequest(ctx context.Context, teamID, userID int64) error {
	return c.send(ctx, http.MethodPost, fmt.Sprintf("/teams/%d/approve/%d", teamID, userID))
}

func (c *Client) InviteToTeam(ctx context.Context, teamID, userID int64) error {
	return c.send(ctx, http.MethodPost, fmt.Sprintf("/teams/%d/invite/%d", teamID, userID))
}

func (c *Client) KickMember(ctx context.Context, teamID, userID int64) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/teams/%d/kick/%d", teamID, userID))
}

// LeaveTeam removes the actor from a team. When the actor is the sole
// remaining captain the upstream treats this as disbanding the team.
func (c *Client) LeaveTeam(ctx context.Context, teamID int64) error {
	return c.send(ctx, http.MethodDelete, fmt.Sprintf("/teams/%d/leave", teamID))
}

func (c *Client) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	var raw []notificationRecord
	if err := c.get(ctx, "/notifications", &raw); err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.notification())
	}
	return out, nil
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.send(ctx, http.MethodPost, "/notifications/"+id+"/read")
}

func (c *Client) MarkAllNotificationsRead(ctx context.Context) error {
	return c.send(ctx, http.MethodPost, "/notifications/readAll")
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.NewNetworkError("GET "+path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}

	dec := json.NewDecoder(resp.Body)
	if err := dec.Decode(dst); err != nil {
		return domain.NewNetworkError("GET "+path, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// send issues a write. Every write carries a fresh client reference so the
// authoritative side can de-duplicate redelivered mutations.
func (c *Client) send(ctx context.Context, method, path string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	c.setHeaders(req)
	req.Header.Set("X-Client-Ref", uuid.NewString())

	resp, err := c.client.Do(req)
	if err != nil {
		return domain.NewNetworkError(method+" "+path, err)
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// statusError maps a non-2xx response into the domain taxonomy. The
// server-provided reason is preserved verbatim when present.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		return domain.ErrAuthExpired
	}

	raw, _ := io.ReadAll(resp.Body)
	rejected := &domain.ServerRejectedError{Status: resp.StatusCode}
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Code != "" {
		rejected.Code = env.Error.Code
		rejected.Message = env.Error.Message
	} else if len(raw) > 0 {
		rejected.Message = strings.TrimSpace(string(raw))
	}
	return rejected
}

// IsRetryable reports whether an error is worth a single retry: transient
// network failures only. Authoritative refusals never are.
func IsRetryable(err error) bool {
	return errors.Is(err, domain.ErrNetwork)
}
