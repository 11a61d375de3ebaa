// Package i18n tracks the display language of the client.
package i18n

import (
	"fmt"
	"sync"

	"golang.org/x/text/language"
)

// Locale holds the active language. The first supported language is the
// fallback.
type Locale struct {
	supported []language.Tag
	matcher   language.Matcher

	mu      sync.RWMutex
	current language.Tag
}

// New creates a Locale for the given BCP 47 tags. With no valid tag the
// client falls back to English.
func New(tags ...string) (*Locale, error) {
	var supported []language.Tag
	for _, t := range tags {
		tag, err := language.Parse(t)
		if err != nil {
			return nil, fmt.Errorf("unsupported language %q: %w", t, err)
		}
		supported = append(supported, tag)
	}
	if len(supported) == 0 {
		supported = []language.Tag{language.English}
	}
	return &Locale{
		supported: supported,
		matcher:   language.NewMatcher(supported),
		current:   supported[0],
	}, nil
}

// SetLocale switches to the supported language closest to tag. Only an
// unparsable tag is an error.
func (l *Locale) SetLocale(tag string) error {
	want, err := language.Parse(tag)
	if err != nil {
		return fmt.Errorf("invalid language %q: %w", tag, err)
	}
	_, idx, _ := l.matcher.Match(want)

	l.mu.Lock()
	l.current = l.supported[idx]
	l.mu.Unlock()
	return nil
}

// Current returns the active language tag.
func (l *Locale) Current() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.current.String()
}
