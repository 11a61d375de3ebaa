package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/oauth2"

	"github.com/atinyakov/GophChat/internal/models"
)

// LogoutEndpoint returns the provider's logout endpoint. An absolute
// LogoutPath is used as is, otherwise it is appended to ServerURL.
func LogoutEndpoint(svc models.OAuthService) string {
	if strings.HasPrefix(svc.LogoutPath, "http") {
		return svc.LogoutPath
	}
	return svc.ServerURL + svc.LogoutPath
}

// RedirectURI is the callback the server registered for provider.
func RedirectURI(server, provider string) string {
	return server + "/_oauth/" + provider
}

// LogoutURL builds the URL that starts the provider logout in a browser.
func LogoutURL(server, provider string, svc models.OAuthService) (string, error) {
	token, err := NewCredentialToken()
	if err != nil {
		return "", err
	}
	redirect := RedirectURI(server, provider)
	state, err := StateBlob{
		LoginStyle:      "popup",
		CredentialToken: token,
		IsCordova:       true,
		RedirectURL:     redirect + "?close",
		Close:           true,
		Action:          ActionLogout,
	}.Encode()
	if err != nil {
		return "", err
	}

	conf := oauth2.Config{
		ClientID:    svc.ClientID,
		RedirectURL: redirect,
		Endpoint:    oauth2.Endpoint{AuthURL: LogoutEndpoint(svc)},
	}
	if svc.Scope != "" {
		conf.Scopes = []string{svc.Scope}
		return conf.AuthCodeURL(state), nil
	}
	// scope is always sent, even when empty
	return conf.AuthCodeURL(state, oauth2.SetAuthURLParam("scope", "")), nil
}

// RedirectMatcher recognises the final redirect of an OAuth login: the URL
// must mention the server together with both credential fields, in any
// order.
type RedirectMatcher struct {
	re *regexp.Regexp
}

// NewRedirectMatcher builds a matcher for server. The server string is
// matched literally.
func NewRedirectMatcher(server string) *RedirectMatcher {
	pattern := "(" + regexp.QuoteMeta(server) + ")|(credentialToken)|(credentialSecret)"
	return &RedirectMatcher{re: regexp.MustCompile(pattern)}
}

// Match reports whether all three parts occur in s.
func (m *RedirectMatcher) Match(s string) bool {
	var seen [3]bool
	for _, loc := range m.re.FindAllStringSubmatchIndex(s, -1) {
		for g := 0; g < 3; g++ {
			if loc[2+2*g] >= 0 {
				seen[g] = true
			}
		}
	}
	return seen[0] && seen[1] && seen[2]
}

// stateFromURL decodes the state query parameter of rawURL.
func stateFromURL(rawURL string) (StateBlob, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return StateBlob{}, &DecodeError{Input: rawURL, Err: err}
	}
	return DecodeState(u.Query().Get("state"))
}

// FragmentCredentials extracts the OAuth credentials the server put as JSON
// into the URL fragment.
func FragmentCredentials(rawURL string) (models.OAuthCredentials, error) {
	var creds models.OAuthCredentials
	i := strings.Index(rawURL, "#")
	if i < 0 {
		return creds, &DecodeError{Input: rawURL, Err: errors.New("no fragment")}
	}
	frag := rawURL[i+1:]
	if unescaped, err := url.PathUnescape(frag); err == nil {
		frag = unescaped
	}
	if err := json.Unmarshal([]byte(frag), &creds); err != nil {
		return creds, &DecodeError{Input: frag, Err: err}
	}
	if creds.CredentialToken == "" || creds.CredentialSecret == "" {
		return creds, &DecodeError{Input: frag, Err: fmt.Errorf("incomplete credentials")}
	}
	return creds, nil
}
