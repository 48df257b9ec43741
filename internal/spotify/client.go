// Package spotify provides a wrapper around the Spotify Web API.
package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"
)

// Client wraps the Spotify API client with convenience methods.
type Client struct {
	api *spotify.Client
}

// New creates a new Spotify client wrapper.
// The underlying client should already be authenticated.
func New(api *spotify.Client) *Client {
	return &Client{api: api}
}

// NewFromToken creates a client that authenticates every request with the
// given OAuth token. The token is not refreshed.
func NewFromToken(ctx context.Context, token *oauth2.Token, opts ...spotify.ClientOption) *Client {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	return New(spotify.New(httpClient, opts...))
}

// NewFromAccessToken is NewFromToken for a bare bearer token.
func NewFromAccessToken(ctx context.Context, accessToken string, opts ...spotify.ClientOption) *Client {
	return NewFromToken(ctx, &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}, opts...)
}

// Token returns the client's current token, which may have been refreshed.
func (c *Client) Token() (*oauth2.Token, error) {
	return c.api.Token()
}

// CurrentUser returns the current user's Spotify ID and display name.
func (c *Client) CurrentUser(ctx context.Context) (id, name string, err error) {
	user, err := c.api.CurrentUser(ctx)
	if err != nil {
		return "", "", fmt.Errorf("getting current user: %w", err)
	}
	return user.ID, user.DisplayName, nil
}

// UserID returns the current user's Spotify ID.
func (c *Client) UserID(ctx context.Context) (string, error) {
	id, _, err := c.CurrentUser(ctx)
	return id, err
}
