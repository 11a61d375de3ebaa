package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCatalogHandler_EmojisUpdatedSince(t *testing.T) {
	svc := &fakeCatalogService{}
	h := &CatalogHandler{CatalogService: svc}

	rec := httptest.NewRecorder()
	h.Emojis(rec, httptest.NewRequest("GET", "/api/v1/emoji-custom.list?updatedSince=2024-03-01T10:00:00Z", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, svc.since.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))
	assert.Contains(t, rec.Body.String(), `"emojis":{"remove":[],"update":[`)

	rec = httptest.NewRecorder()
	h.Emojis(rec, httptest.NewRequest("GET", "/api/v1/emoji-custom.list?updatedSince=yesterday", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogHandler_Errors(t *testing.T) {
	h := &CatalogHandler{CatalogService: &fakeCatalogService{err: errors.New("db down")}}
	for name, fn := range map[string]http.HandlerFunc{
		"permissions": h.Permissions,
		"emojis":      h.Emojis,
		"roles":       h.Roles,
		"commands":    h.Commands,
		"presence":    h.Presence,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			fn(rec, httptest.NewRequest("GET", "/", nil))
			assert.Equal(t, http.StatusInternalServerError, rec.Code)
		})
	}
}
