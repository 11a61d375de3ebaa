package http

import (
	"context"
	"net/http"
	"time"

	"github.com/atinyakov/GophChat/internal/models"
)

// CatalogService defines the read-only data served after login.
type CatalogService interface {
	Permissions(ctx context.Context) ([]models.Permission, error)
	Emojis(ctx context.Context, since time.Time) ([]models.Emoji, error)
	Roles(ctx context.Context) ([]models.Role, error)
	Commands(ctx context.Context) ([]models.SlashCommand, error)
	Presence(ctx context.Context) ([]models.Presence, error)
}

// CatalogHandler serves permissions, custom emoji, roles, slash commands
// and presence.
type CatalogHandler struct {
	CatalogService CatalogService
}

func (h *CatalogHandler) Permissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.CatalogService.Permissions(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, success(map[string]any{
		"update": perms,
		"remove": []models.Permission{},
	}))
}

// Emojis lists custom emoji, optionally only those changed after the
// RFC 3339 time in the updatedSince query parameter.
func (h *CatalogHandler) Emojis(w http.ResponseWriter, r *http.Request) {
	var since time.Time
	if raw := r.URL.Query().Get("updatedSince"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			http.Error(w, "invalid updatedSince", http.StatusBadRequest)
			return
		}
		since = t
	}

	emojis, err := h.CatalogService.Emojis(r.Context(), since)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, success(map[string]any{
		"emojis": map[string]any{
			"update": emojis,
			"remove": []models.Emoji{},
		},
	}))
}

func (h *CatalogHandler) Roles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.CatalogService.Roles(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, success(map[string]any{"roles": roles}))
}

func (h *CatalogHandler) Commands(w http.ResponseWriter, r *http.Request) {
	cmds, err := h.CatalogService.Commands(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, success(map[string]any{
		"commands": cmds,
		"total":    len(cmds),
	}))
}

func (h *CatalogHandler) Presence(w http.ResponseWriter, r *http.Request) {
	users, err := h.CatalogService.Presence(r.Context())
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, success(map[string]any{
		"users": users,
		"full":  true,
	}))
}
