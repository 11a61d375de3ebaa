// Package models defines the core data structures for users, sessions and
// configured chat servers.
package models

import "time"

// User represents a chat user.
type User struct {
	// ID is the unique identifier for the user.
	ID string `json:"_id"`
	// Username is the login name chosen by the user. It may be empty for
	// accounts created through an external identity provider.
	Username string `json:"username,omitempty"`
	// Email is the address the user registered with.
	Email string `json:"email,omitempty"`
	// Language is the preferred locale tag of the user.
	Language string `json:"language,omitempty"`
	// PasswordHash is the hashed password of the user. Server side only.
	PasswordHash []byte `json:"-"`
}

// Session is the authenticated identity of a user on one server.
type Session struct {
	// Server is the URL of the server the session belongs to.
	Server string `json:"server"`
	// UserID is the server-side identifier of the user.
	UserID string `json:"userId"`
	// AuthToken is the login token returned by the server.
	AuthToken string `json:"authToken"`
	// Username is empty until the user picked one.
	Username string `json:"username,omitempty"`
	// Language is the locale tag reported by the server.
	Language string `json:"language,omitempty"`
	// Active marks the session of the currently selected server.
	Active bool `json:"active"`
	// UpdatedAt is the time of the last write.
	UpdatedAt time.Time `json:"updatedAt"`
}

// OAuthService holds the configuration of one OAuth provider of a server.
type OAuthService struct {
	ClientID   string `json:"clientId" toml:"client_id"`
	Scope      string `json:"scope" toml:"scope"`
	ServerURL  string `json:"serverURL" toml:"server_url"`
	LoginPath  string `json:"loginPath" toml:"login_path"`
	LogoutPath string `json:"logoutPath" toml:"logout_path"`
}

// ServerIdentity is a configured chat server.
type ServerIdentity struct {
	// URL is the unique key of the server.
	URL string `json:"url"`
	// Services maps the provider name to its OAuth configuration.
	Services map[string]OAuthService `json:"services"`
}

// OAuthCredentials are handed out by the server at the end of an OAuth
// redirect flow and exchanged for a session.
type OAuthCredentials struct {
	CredentialToken  string `json:"credentialToken"`
	CredentialSecret string `json:"credentialSecret"`
}

// Credentials is the input of a login attempt. Exactly one of the password
// pair, Resume or OAuth is used, in that order of precedence: OAuth, Resume,
// password.
type Credentials struct {
	User     string            `json:"user,omitempty"`
	Password string            `json:"password,omitempty"`
	Resume   string            `json:"resume,omitempty"`
	OAuth    *OAuthCredentials `json:"oauth,omitempty"`
}
