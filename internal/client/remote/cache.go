package remote

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	cmap "github.com/orcaman/concurrent-map"
)

// Cache kinds, one per post-login fetch.
const (
	KindPermissions = "permissions"
	KindEmojis      = "emojis"
	KindRoles       = "roles"
	KindCommands    = "commands"
	KindPresence    = "presence"
)

// Cache holds the most recent payload of each fetch per server. It is safe
// for concurrent use.
type Cache struct {
	table cmap.ConcurrentMap
}

type cacheEntry struct {
	payload json.RawMessage
	when    time.Time
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{table: cmap.New()}
}

func cacheKey(server, kind string) string {
	return server + "|" + kind
}

// Put stores payload for server and kind.
func (c *Cache) Put(server, kind string, payload json.RawMessage) {
	c.table.Set(cacheKey(server, kind), &cacheEntry{payload: payload, when: time.Now()})
}

// Get returns the stored payload.
func (c *Cache) Get(server, kind string) (json.RawMessage, bool) {
	v, ok := c.table.Get(cacheKey(server, kind))
	if !ok {
		return nil, false
	}
	return v.(*cacheEntry).payload, true
}

// UpdatedAt returns when server's kind was last stored.
func (c *Cache) UpdatedAt(server, kind string) (time.Time, bool) {
	v, ok := c.table.Get(cacheKey(server, kind))
	if !ok {
		return time.Time{}, false
	}
	return v.(*cacheEntry).when, true
}

// Kinds lists the kinds cached for server, sorted.
func (c *Cache) Kinds(server string) []string {
	prefix := server + "|"
	var kinds []string
	for entry := range c.table.IterBuffered() {
		if strings.HasPrefix(entry.Key, prefix) {
			kinds = append(kinds, strings.TrimPrefix(entry.Key, prefix))
		}
	}
	sort.Strings(kinds)
	return kinds
}

// Drop forgets everything cached for server.
func (c *Cache) Drop(server string) {
	for _, kind := range c.Kinds(server) {
		c.table.Remove(cacheKey(server, kind))
	}
}
