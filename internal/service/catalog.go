package service

import (
	"context"
	"time"

	"github.com/atinyakov/GophChat/internal/models"
)

// DefaultPresenceWindow is how recently a user must have used a token to be
// reported online.
const DefaultPresenceWindow = 5 * time.Minute

// CatalogRepository defines the persistence required by CatalogService.
type CatalogRepository interface {
	CustomEmojis(ctx context.Context, since time.Time) ([]models.Emoji, error)
}

// PresenceRepository lists recently active users.
type PresenceRepository interface {
	ActiveUsers(ctx context.Context, since time.Time) ([]models.User, error)
}

var (
	builtinRoles = []models.Role{
		{ID: "admin", Name: "admin", Scope: "Users", Description: "Administrator", Protected: true},
		{ID: "moderator", Name: "moderator", Scope: "Subscriptions", Description: "Moderator", Protected: true},
		{ID: "user", Name: "user", Scope: "Users", Description: "", Protected: true},
	}

	builtinPermissions = []models.Permission{
		{ID: "create-c", Roles: []string{"admin", "user"}},
		{ID: "create-d", Roles: []string{"admin", "user"}},
		{ID: "delete-message", Roles: []string{"admin", "moderator"}},
		{ID: "edit-message", Roles: []string{"admin", "moderator"}},
		{ID: "mention-all", Roles: []string{"admin", "moderator", "user"}},
		{ID: "view-user-administration", Roles: []string{"admin"}},
	}

	builtinCommands = []models.SlashCommand{
		{Command: "join", Params: "#channel", Description: "Join the given channel"},
		{Command: "leave", Description: "Leave the current channel"},
		{Command: "me", Params: "your message", Description: "Display action text"},
		{Command: "topic", Params: "topic", Description: "Set the topic of the current channel"},
		{Command: "status", Params: "status message", Description: "Set your status message", ClientOnly: true},
	}
)

// CatalogService serves the read-only data a client loads after login.
type CatalogService struct {
	catalog  CatalogRepository
	presence PresenceRepository
	window   time.Duration
	now      func() time.Time
}

// NewCatalogService constructs a CatalogService. window <= 0 selects
// DefaultPresenceWindow.
func NewCatalogService(catalog CatalogRepository, presence PresenceRepository, window time.Duration) *CatalogService {
	if window <= 0 {
		window = DefaultPresenceWindow
	}
	return &CatalogService{catalog: catalog, presence: presence, window: window, now: time.Now}
}

func (s *CatalogService) Permissions(context.Context) ([]models.Permission, error) {
	return builtinPermissions, nil
}

func (s *CatalogService) Roles(context.Context) ([]models.Role, error) {
	return builtinRoles, nil
}

func (s *CatalogService) Commands(context.Context) ([]models.SlashCommand, error) {
	return builtinCommands, nil
}

// Emojis returns the custom emoji changed after since.
func (s *CatalogService) Emojis(ctx context.Context, since time.Time) ([]models.Emoji, error) {
	return s.catalog.CustomEmojis(ctx, since)
}

// Presence reports every user active within the presence window as online.
func (s *CatalogService) Presence(ctx context.Context) ([]models.Presence, error) {
	users, err := s.presence.ActiveUsers(ctx, s.now().Add(-s.window))
	if err != nil {
		return nil, err
	}
	out := make([]models.Presence, 0, len(users))
	for _, u := range users {
		out = append(out, models.Presence{ID: u.ID, Username: u.Username, Status: "online"})
	}
	return out, nil
}
