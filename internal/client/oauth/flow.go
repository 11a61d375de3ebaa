package oauth

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/atinyakov/GophChat/internal/logger"
	"github.com/atinyakov/GophChat/internal/models"
)

// Browser shows a page and reports every URL it navigates to.
type Browser interface {
	Open(ctx context.Context, url string) (<-chan string, error)
	Dismiss() error
}

// Submitter exchanges OAuth credentials for a session.
type Submitter interface {
	LoginOAuth(ctx context.Context, creds models.OAuthCredentials) error
}

// Flow watches a browser running the logout page until the provider either
// confirms the logout or hands back login credentials.
type Flow struct {
	browser Browser
	submit  Submitter
	matcher *RedirectMatcher
	reinit  func()
	log     *zap.Logger
}

// NewFlow creates a flow for server. reinit is called once the provider
// confirmed the logout.
func NewFlow(server string, browser Browser, submit Submitter, reinit func(), log *zap.Logger) *Flow {
	if reinit == nil {
		reinit = func() {}
	}
	return &Flow{
		browser: browser,
		submit:  submit,
		matcher: NewRedirectMatcher(server),
		reinit:  reinit,
		log:     logger.OrNop(log),
	}
}

// Run opens logoutURL and handles navigations until the flow finishes, the
// browser closes its stream or ctx is cancelled.
func (f *Flow) Run(ctx context.Context, logoutURL string) error {
	nav, err := f.browser.Open(ctx, logoutURL)
	if err != nil {
		return err
	}
	for {
		select {
		case <-ctx.Done():
			f.dismiss()
			return ctx.Err()
		case u, ok := <-nav:
			if !ok {
				return nil
			}
			if f.HandleNavigation(ctx, u) {
				return nil
			}
		}
	}
}

// HandleNavigation processes one navigation and reports whether the flow is
// finished. Undecodable URLs are skipped.
func (f *Flow) HandleNavigation(ctx context.Context, rawURL string) bool {
	state, err := stateFromURL(rawURL)
	if err != nil {
		f.log.Debug("ignoring navigation", zap.String("url", rawURL), zap.Error(err))
		return false
	}

	switch state.Action {
	case ActionLogout:
		f.log.Info("provider logout finished")
		f.dismiss()
		f.reinit()
		return true

	case ActionLogin:
		if !f.matcher.Match(rawURL) {
			f.log.Debug("login redirect incomplete", zap.String("url", rawURL))
			return false
		}
		creds, err := FragmentCredentials(rawURL)
		if err != nil {
			f.log.Debug("ignoring navigation", zap.String("url", rawURL), zap.Error(err))
			return false
		}
		if err := f.submit.LoginOAuth(ctx, creds); err != nil {
			f.log.Warn("oauth login failed", zap.Error(err))
		}
		f.dismiss()
		return true
	}
	return false
}

func (f *Flow) dismiss() {
	if err := f.browser.Dismiss(); err != nil && !errors.Is(err, context.Canceled) {
		f.log.Debug("dismiss browser", zap.Error(err))
	}
}
