// Package remote talks to the chat server's REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/go-querystring/query"
	cmap "github.com/orcaman/concurrent-map"
	"go.uber.org/zap"

	"github.com/atinyakov/GophChat/internal/logger"
	"github.com/atinyakov/GophChat/internal/models"
)

const (
	apiPrefix = "/api/v1"

	headerUserID    = "X-User-Id"
	headerAuthToken = "X-Auth-Token"

	pushTokenType = "gcm"
	appName       = "chat.gophchat.terminal"

	// maxErrorBody caps how much of a failed reply ends up in StatusError.
	maxErrorBody = 512
)

type authInfo struct {
	userID string
	token  string
}

// Client is the HTTP implementation of the remote auth API. One Client
// serves any number of servers; credentials are remembered per server URL.
type Client struct {
	http      *http.Client
	pushToken string
	auth      cmap.ConcurrentMap
	cache     *Cache
	log       *zap.Logger
}

// New creates a client. pushToken may be empty, in which case push token
// registration is skipped.
func New(httpClient *http.Client, cache *Cache, pushToken string, log *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if cache == nil {
		cache = NewCache()
	}
	return &Client{
		http:      httpClient,
		pushToken: pushToken,
		auth:      cmap.New(),
		cache:     cache,
		log:       logger.OrNop(log),
	}
}

// Cache returns the cache fetch results are written to.
func (c *Client) Cache() *Cache {
	return c.cache
}

type loginRequest struct {
	User     string                   `json:"user,omitempty"`
	Password string                   `json:"password,omitempty"`
	Resume   string                   `json:"resume,omitempty"`
	OAuth    *models.OAuthCredentials `json:"oauth,omitempty"`
}

type loginResponse struct {
	Status string `json:"status"`
	Data   struct {
		UserID    string      `json:"userId"`
		AuthToken string      `json:"authToken"`
		Me        models.User `json:"me"`
	} `json:"data"`
}

// Login authenticates against server. OAuth credentials take precedence
// over a resume token, which takes precedence over user and password.
func (c *Client) Login(ctx context.Context, server string, creds models.Credentials) (models.Session, error) {
	var req loginRequest
	switch {
	case creds.OAuth != nil:
		req.OAuth = creds.OAuth
	case creds.Resume != "":
		req.Resume = creds.Resume
	case creds.User != "" && creds.Password != "":
		req.User, req.Password = creds.User, creds.Password
	default:
		return models.Session{}, errors.New("no credentials given")
	}

	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, server, "/login", nil, req, false, &resp); err != nil {
		return models.Session{}, err
	}
	if resp.Status != "success" || resp.Data.UserID == "" || resp.Data.AuthToken == "" {
		return models.Session{}, fmt.Errorf("unexpected login response status %q", resp.Status)
	}

	c.auth.Set(server, &authInfo{userID: resp.Data.UserID, token: resp.Data.AuthToken})
	c.log.Debug("logged in", zap.String("server", server), zap.String("user_id", resp.Data.UserID))

	return models.Session{
		Server:    server,
		UserID:    resp.Data.UserID,
		AuthToken: resp.Data.AuthToken,
		Username:  resp.Data.Me.Username,
		Language:  resp.Data.Me.Language,
	}, nil
}

// Logout ends the server-side session. The local credentials of server are
// forgotten whatever the outcome.
func (c *Client) Logout(ctx context.Context, server string) error {
	defer func() {
		c.auth.Remove(server)
		c.cache.Drop(server)
	}()
	return c.do(ctx, http.MethodPost, server, "/logout", nil, nil, true, nil)
}

func (c *Client) GetPermissions(ctx context.Context, server string) error {
	return c.fetch(ctx, server, KindPermissions, "/permissions.listAll", nil)
}

type emojiQuery struct {
	UpdatedSince string `url:"updatedSince,omitempty"`
}

// GetCustomEmojis fetches custom emoji changed since the previous fetch.
func (c *Client) GetCustomEmojis(ctx context.Context, server string) error {
	var q emojiQuery
	if since, ok := c.cache.UpdatedAt(server, KindEmojis); ok {
		q.UpdatedSince = since.UTC().Format(time.RFC3339)
	}
	return c.fetch(ctx, server, KindEmojis, "/emoji-custom.list", q)
}

func (c *Client) GetRoles(ctx context.Context, server string) error {
	return c.fetch(ctx, server, KindRoles, "/roles.list", nil)
}

func (c *Client) GetSlashCommands(ctx context.Context, server string) error {
	return c.fetch(ctx, server, KindCommands, "/commands.list", nil)
}

type pushTokenRequest struct {
	Type    string `json:"type"`
	Value   string `json:"value"`
	AppName string `json:"appName"`
}

// RegisterPushToken registers the device push token. Without a token it
// does nothing.
func (c *Client) RegisterPushToken(ctx context.Context, server string) error {
	if c.pushToken == "" {
		return nil
	}
	body := pushTokenRequest{Type: pushTokenType, Value: c.pushToken, AppName: appName}
	return c.do(ctx, http.MethodPost, server, "/push.token", nil, body, true, nil)
}

func (c *Client) GetUserPresence(ctx context.Context, server string) error {
	return c.fetch(ctx, server, KindPresence, "/users.presence", nil)
}

type applyKey struct{}

// WithApply returns a context whose fetches store their results through
// apply. apply runs store unless the caller's work was cancelled and reports
// whether it did; a refused result is dropped.
func WithApply(ctx context.Context, apply func(store func()) bool) context.Context {
	return context.WithValue(ctx, applyKey{}, apply)
}

func applyFrom(ctx context.Context) func(store func()) bool {
	if apply, ok := ctx.Value(applyKey{}).(func(store func()) bool); ok {
		return apply
	}
	return func(store func()) bool {
		if ctx.Err() != nil {
			return false
		}
		store()
		return true
	}
}

// fetch GETs path and stores the raw reply in the cache, unless ctx was
// cancelled in the meantime.
func (c *Client) fetch(ctx context.Context, server, kind, path string, params interface{}) error {
	var payload json.RawMessage
	if err := c.do(ctx, http.MethodGet, server, path, params, nil, true, &payload); err != nil {
		return err
	}
	stored := applyFrom(ctx)(func() { c.cache.Put(server, kind, payload) })
	if !stored {
		if err := ctx.Err(); err != nil {
			return err
		}
		return context.Canceled
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, server, path string, params, body interface{}, authenticated bool, out interface{}) error {
	endpoint := strings.TrimRight(server, "/") + apiPrefix + path
	if params != nil {
		values, err := query.Values(params)
		if err != nil {
			return fmt.Errorf("encode query: %w", err)
		}
		if encoded := values.Encode(); encoded != "" {
			endpoint += "?" + encoded
		}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	if authenticated {
		v, ok := c.auth.Get(server)
		if !ok {
			return fmt.Errorf("%s %s: %w", method, path, ErrNoSession)
		}
		a := v.(*authInfo)
		req.Header.Set(headerUserID, a.userID)
		req.Header.Set(headerAuthToken, a.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Body:   strings.TrimSpace(string(data)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("invalid response from %s: %w", path, err)
	}
	return nil
}
