package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/charmbracelet/log"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-mood-clusters/internal/spotify"
)

// DefaultRedirectURI is the loopback callback used by the terminal login. It
// differs from the web server's port so both can run at once.
const DefaultRedirectURI = "http://127.0.0.1:8889/callback"

const callbackTimeout = 2 * time.Minute

// Login errors.
var (
	ErrMissingCredentials = errors.New("missing Spotify client ID or secret")
	ErrAuthTimeout        = errors.New("authentication timed out waiting for callback")
	ErrStateMismatch      = errors.New("OAuth state mismatch")
	// ErrNotLoopback is returned for a redirect URI this process cannot listen on.
	ErrNotLoopback = errors.New("redirect URI must be an http loopback address")
)

// Options configures an Authenticator.
type Options struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string      // Defaults to DefaultRedirectURI
	Cache        *TokenCache // Defaults to DefaultTokenCache()
	Logger       *log.Logger
	Out          io.Writer // Where the login URL is printed; defaults to stdout
	// SpotifyOptions are passed to the API client, e.g. a base URL.
	SpotifyOptions []spotifyapi.ClientOption
}

// Authenticator turns cached or freshly granted tokens into API clients.
type Authenticator struct {
	auth     *spotifyauth.Authenticator
	cache    *TokenCache
	logger   *log.Logger
	out      io.Writer
	addr     string
	path     string
	spotOpts []spotifyapi.ClientOption
}

// New returns ErrMissingCredentials if either credential is empty.
func New(opts Options) (*Authenticator, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, ErrMissingCredentials
	}
	if opts.RedirectURI == "" {
		opts.RedirectURI = DefaultRedirectURI
	}
	if opts.Cache == nil {
		cache, err := DefaultTokenCache()
		if err != nil {
			return nil, fmt.Errorf("creating token cache: %w", err)
		}
		opts.Cache = cache
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	addr, path, err := callbackAddr(opts.RedirectURI)
	if err != nil {
		return nil, err
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(opts.ClientID),
		spotifyauth.WithClientSecret(opts.ClientSecret),
		spotifyauth.WithRedirectURL(opts.RedirectURI),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
		),
	)

	return &Authenticator{
		auth:     auth,
		cache:    opts.Cache,
		logger:   opts.Logger,
		out:      opts.Out,
		addr:     addr,
		path:     path,
		spotOpts: opts.SpotifyOptions,
	}, nil
}

// callbackAddr splits a loopback redirect URI into a listen address and path.
func callbackAddr(redirectURI string) (addr, path string, err error) {
	u, err := url.Parse(redirectURI)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNotLoopback, err)
	}
	switch host := u.Hostname(); {
	case u.Scheme != "http":
		return "", "", fmt.Errorf("%w: %s", ErrNotLoopback, redirectURI)
	case host != "127.0.0.1" && host != "localhost" && host != "::1":
		return "", "", fmt.Errorf("%w: %s", ErrNotLoopback, redirectURI)
	case u.Port() == "":
		return "", "", fmt.Errorf("%w: %s has no port", ErrNotLoopback, redirectURI)
	}

	path = u.Path
	if path == "" {
		path = "/"
	}
	return u.Host, path, nil
}

// Authenticate returns a client for the cached token when it still works,
// otherwise runs the browser flow and caches the new token.
func (a *Authenticator) Authenticate(ctx context.Context) (*spotify.Client, error) {
	token, err := a.cache.Load()
	if err != nil {
		return nil, fmt.Errorf("loading cached token: %w", err)
	}

	if token != nil {
		client := a.client(ctx, token)
		if _, err := client.UserID(ctx); err == nil {
			if fresh, err := client.Token(); err == nil && fresh.AccessToken != token.AccessToken {
				if err := a.cache.Save(fresh); err != nil {
					a.logger.Warn("caching refreshed token", "err", err)
				}
			}
			return client, nil
		}
		a.logger.Info("cached token rejected, logging in again")
	}

	token, err = a.login(ctx)
	if err != nil {
		return nil, err
	}
	if err := a.cache.Save(token); err != nil {
		a.logger.Warn("caching token", "err", err)
	}
	return a.client(ctx, token), nil
}

func (a *Authenticator) client(ctx context.Context, token *oauth2.Token) *spotify.Client {
	opts := append([]spotifyapi.ClientOption{spotifyapi.WithRetry(true)}, a.spotOpts...)
	return spotify.New(spotifyapi.New(a.auth.Client(ctx, token), opts...))
}

// login serves the callback on the redirect URI until Spotify redirects back.
func (a *Authenticator) login(ctx context.Context) (*oauth2.Token, error) {
	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("generating state: %w", err)
	}

	tokenCh := make(chan *oauth2.Token, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(a.path, func(w http.ResponseWriter, r *http.Request) {
		a.handleCallback(w, r, state, tokenCh, errCh)
	})
	server := &http.Server{
		Addr:              a.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("callback server: %w", err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	fmt.Fprintf(a.out, "\nTo log in, open this URL in your browser:\n%s\n\nWaiting for Spotify...\n", a.auth.AuthURL(state))

	select {
	case token := <-tokenCh:
		return token, nil
	case err := <-errCh:
		return nil, err
	case <-time.After(callbackTimeout):
		return nil, ErrAuthTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (a *Authenticator) handleCallback(w http.ResponseWriter, r *http.Request, expectedState string, tokenCh chan<- *oauth2.Token, errCh chan<- error) {
	if r.URL.Query().Get("state") != expectedState {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		sendErr(errCh, ErrStateMismatch)
		return
	}

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, "Authentication failed: "+errMsg, http.StatusBadRequest)
		sendErr(errCh, fmt.Errorf("spotify auth error: %s", errMsg))
		return
	}

	token, err := a.auth.Token(r.Context(), expectedState, r)
	if err != nil {
		http.Error(w, "Failed to get token", http.StatusInternalServerError)
		sendErr(errCh, fmt.Errorf("exchanging code for token: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, `<!DOCTYPE html>
<html>
<head><title>Logged in</title></head>
<body>
<h1>Logged in to Spotify</h1>
<p>You can close this window and return to the terminal.</p>
</body>
</html>`)

	select {
	case tokenCh <- token:
	default:
	}
}

// sendErr drops the error when one is already pending.
func sendErr(errCh chan<- error, err error) {
	select {
	case errCh <- err:
	default:
	}
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Logout removes the cached token.
func (a *Authenticator) Logout() error {
	return a.cache.Delete()
}
