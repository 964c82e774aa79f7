// SPDX-License-Identifier: MIT

package spotify

import (
	"context"
	"fmt"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/mabrink/busybeat/internal/log"
	"golang.org/x/oauth2"
	spotifyauth "golang.org/x/oauth2/spotify"
)

const authTimeout = 120 * time.Second

var authScopes = []string{
	"user-read-currently-playing",
	"user-read-private",
	"user-read-email",
}

type callbackResult struct {
	code  string
	state string
	err   error
}

// Authenticator runs the PKCE authorization-code flow. The HTTP callback
// handler is mounted once on the daemon's local router and stays up for
// the process lifetime so re-authorization reuses it.
type Authenticator struct {
	cfg oauth2.Config

	mu      sync.Mutex
	pending chan callbackResult // nil when no flow is in progress
}

// NewAuthenticator builds an Authenticator for the given public client ID.
// redirectURL must match the URI registered with the provider.
func NewAuthenticator(clientID, redirectURL string) *Authenticator {
	return &Authenticator{
		cfg: oauth2.Config{
			ClientID:    clientID,
			Endpoint:    spotifyauth.Endpoint,
			RedirectURL: redirectURL,
			Scopes:      authScopes,
		},
	}
}

// CallbackHandler handles the provider redirect. Requests outside a
// running flow get a 404.
func (a *Authenticator) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a.mu.Lock()
		pending := a.pending
		a.mu.Unlock()

		if pending == nil {
			http.Error(w, "no authorization in progress", http.StatusNotFound)
			return
		}

		q := r.URL.Query()
		if errCode := q.Get("error"); errCode != "" {
			pending <- callbackResult{err: fmt.Errorf("authorization rejected: %s (%s)", errCode, q.Get("error_description"))}
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("Authorization failed. You can close this window."))
			return
		}

		pending <- callbackResult{code: q.Get("code"), state: q.Get("state")}
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("Authorization successful. You can close this window."))
	}
}

// Authorize opens the provider consent page and waits for the callback,
// then exchanges the code. It returns a self-refreshing token source.
func (a *Authenticator) Authorize(ctx context.Context) (oauth2.TokenSource, error) {
	logger := log.WithComponent("auth")

	verifier := oauth2.GenerateVerifier()
	state := oauth2.GenerateVerifier() // random URL-safe string doubles as CSRF state

	pending := make(chan callbackResult, 1)
	a.mu.Lock()
	if a.pending != nil {
		a.mu.Unlock()
		return nil, fmt.Errorf("authorization already in progress")
	}
	a.pending = pending
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.pending = nil
		a.mu.Unlock()
	}()

	authURL := a.cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	logger.Info().Str("url", authURL).Msg("opening browser for authorization")
	if err := openBrowser(authURL); err != nil {
		logger.Warn().Err(err).Msg("could not open browser, visit the URL manually")
	}

	timer := time.NewTimer(authTimeout)
	defer timer.Stop()

	var result callbackResult
	select {
	case result = <-pending:
	case <-timer.C:
		return nil, fmt.Errorf("authorization timed out after %s", authTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.err != nil {
		return nil, result.err
	}
	if result.state != state {
		return nil, fmt.Errorf("authorization state mismatch")
	}
	if result.code == "" {
		return nil, fmt.Errorf("authorization callback carried no code")
	}

	token, err := a.cfg.Exchange(ctx, result.code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	logger.Info().Msg("authorization complete")

	return a.cfg.TokenSource(ctx, token), nil
}

// HTTPClient wraps a token source into an authenticated HTTP client.
func HTTPClient(ctx context.Context, ts oauth2.TokenSource) *http.Client {
	return oauth2.NewClient(ctx, ts)
}

func openBrowser(url string) error {
	switch runtime.GOOS {
	case "darwin":
		return exec.Command("open", url).Start()
	case "windows":
		return exec.Command("rundll32", "url.dll,FileProtocolHandler", url).Start()
	default:
		return exec.Command("xdg-open", url).Start()
	}
}
