package domain

import (
	"fmt"
	"strings"
)

// DefaultAvatarURL is served for entities without a usable avatar.
const DefaultAvatarURL = "/assets/default-avatar.jpg"

// placeholderAvatarHost marks avatars the upstream generates as throwaway
// stand-ins; they are treated the same as an absent avatar.
const placeholderAvatarHost = "i.pravatar.cc"

// Entity is an immutable snapshot of a remote user. A newer fetch replaces
// the whole record; fields are never patched individually.
type Entity struct {
	ID          int64
	Username    string
	DisplayName string
	AvatarURL   string
}

// Name returns the display name, falling back to the username.
func (e Entity) Name() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Username
}

// Avatar returns a renderable avatar reference, substituting the default
// for absent or known-placeholder values.
func (e Entity) Avatar() string {
	if e.AvatarURL == "" || strings.Contains(e.AvatarURL, placeholderAvatarHost) {
		return DefaultAvatarURL
	}
	return e.AvatarURL
}

// PlaceholderEntity stands in for an id the directory has never seen.
// Callers degrade to it instead of failing on unknown ids.
func PlaceholderEntity(id int64) Entity {
	return Entity{
		ID:       id,
		Username: fmt.Sprintf("player-%d", id),
	}
}

// Team is an immutable snapshot of a team's identity. Membership lives on
// the TeamRoster, not here.
type Team struct {
	ID          int64
	Name        string
	Description string
	LogoURL     string
	CaptainID   int64
}
