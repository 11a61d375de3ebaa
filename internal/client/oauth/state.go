// Package oauth drives the browser based OAuth logout and re-login flow and
// owns the encoding of the OAuth state parameter.
package oauth

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// State actions.
const (
	ActionLogin  = "login"
	ActionLogout = "logout"
)

const (
	credentialTokenLength = 43
	tokenCharset          = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// StateBlob is the payload of the OAuth state parameter.
type StateBlob struct {
	LoginStyle      string `json:"loginStyle"`
	CredentialToken string `json:"credentialToken"`
	IsCordova       bool   `json:"isCordova"`
	RedirectURL     string `json:"redirectUrl"`
	Close           bool   `json:"close"`
	Action          string `json:"action"`
}

// DecodeError reports a state parameter or URL fragment that could not be
// interpreted.
type DecodeError struct {
	Input string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q: %v", e.Input, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Encode serializes the blob as unpadded base64url JSON. HTML characters are
// left unescaped so the output matches what browsers produce for the same
// object.
func (s StateBlob) Encode() (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	raw := bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// DecodeState parses a state parameter. Padded and unpadded input are both
// accepted. The action must be login or logout.
func DecodeState(raw string) (StateBlob, error) {
	var s StateBlob
	if raw == "" {
		return s, &DecodeError{Input: raw, Err: fmt.Errorf("empty state")}
	}
	data, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		return s, &DecodeError{Input: raw, Err: err}
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, &DecodeError{Input: raw, Err: err}
	}
	if s.Action != ActionLogin && s.Action != ActionLogout {
		return s, &DecodeError{Input: raw, Err: fmt.Errorf("unknown action %q", s.Action)}
	}
	return s, nil
}

// NewCredentialToken returns a random alphanumeric token of the length the
// server expects in a state blob.
func NewCredentialToken() (string, error) {
	max := big.NewInt(int64(len(tokenCharset)))
	var b strings.Builder
	b.Grow(credentialTokenLength)
	for i := 0; i < credentialTokenLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate credential token: %w", err)
		}
		b.WriteByte(tokenCharset[n.Int64()])
	}
	return b.String(), nil
}
