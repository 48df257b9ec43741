package web

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"
	spotifyapi "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-mood-clusters/internal/spotify"
)

// Playlist defaults.
const (
	DefaultPlaylistName        = "My Mood-Based Playlist"
	DefaultPlaylistDescription = "Created with MyPlaylistMaker"
	DefaultPlaylistLimit       = 100
)

const stateCookieName = "oauth_state"

// Handlers contains HTTP handlers for the web application.
type Handlers struct {
	auth          *spotifyauth.Authenticator
	sessions      SessionManager
	songs         SongSource
	logger        *log.Logger
	frontendURI   string
	playlistLimit int
	spotifyOpts   []spotifyapi.ClientOption
}

// Login initiates the Spotify OAuth flow (GET /login, GET /auth/login).
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	// Generate state for CSRF protection
	state, err := generateOAuthState()
	if err != nil {
		http.Error(w, "Failed to generate state", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300, // 5 minutes
	})

	http.Redirect(w, r, h.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// Callback handles the OAuth callback from Spotify (GET /callback) and hands
// the tokens to the frontend.
func (h *Handlers) Callback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil {
		http.Error(w, "Missing state cookie", http.StatusBadRequest)
		return
	}

	state := r.URL.Query().Get("state")
	if state != stateCookie.Value {
		http.Error(w, "State mismatch", http.StatusBadRequest)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})

	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		http.Error(w, fmt.Sprintf("Spotify auth error: %s", errMsg), http.StatusBadRequest)
		return
	}

	token, err := h.auth.Token(r.Context(), state, r)
	if err != nil {
		h.logger.Error("token exchange failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Token exchange failed")
		return
	}

	client := spotify.NewFromToken(r.Context(), token, h.spotifyOpts...)
	userID, userName, err := client.CurrentUser(r.Context())
	if err != nil {
		h.logger.Error("fetching user", "err", err)
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	session, err := h.sessions.Create(r.Context(), token, userID, userName)
	if err != nil {
		h.logger.Error("creating session", "err", err)
		http.Error(w, "Failed to create session", http.StatusInternalServerError)
		return
	}
	h.sessions.SetCookie(w, session)
	h.logger.Info("user logged in", "user", userID)

	http.Redirect(w, r, h.frontendRedirect(token), http.StatusTemporaryRedirect)
}

// frontendRedirect appends the tokens as query parameters to the frontend URI.
func (h *Handlers) frontendRedirect(token *oauth2.Token) string {
	q := url.Values{}
	q.Set("access_token", token.AccessToken)
	q.Set("refresh_token", token.RefreshToken)
	return h.frontendURI + "?" + q.Encode()
}

// Logout clears the session (POST /auth/logout).
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if session := h.sessions.GetFromRequest(r); session != nil {
		h.sessions.Delete(r.Context(), session.ID)
	}
	h.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Songs lists songs (GET /api/songs). Without filters every song is returned;
// with filters up to 100 random matches.
func (h *Handlers) Songs(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	songs, err := h.songs.Songs(r.Context())
	if err != nil {
		h.logger.Error("loading songs", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to load songs")
		return
	}

	writeJSON(w, http.StatusOK, selectSongs(songs, filter, DefaultSongLimit))
}

// Moods counts songs per mood (GET /api/moods).
func (h *Handlers) Moods(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songs.Songs(r.Context())
	if err != nil {
		h.logger.Error("loading songs", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to load songs")
		return
	}
	writeJSON(w, http.StatusOK, countMoods(songs))
}

type createPlaylistRequest struct {
	AccessToken  string   `json:"access_token"`
	TrackURIs    []string `json:"track_uris"`
	PlaylistName string   `json:"playlist_name"`
}

type createPlaylistResponse struct {
	PlaylistID  string `json:"playlist_id"`
	PlaylistURL string `json:"playlist_url"`
	Tracks      int    `json:"tracks"`
}

// CreatePlaylist creates a private playlist from the given tracks
// (POST /api/create-playlist). Only the first playlistLimit tracks are added.
func (h *Handlers) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	token := h.requestToken(r, req.AccessToken)
	if token == nil {
		writeError(w, http.StatusUnauthorized, "Missing access token")
		return
	}
	if len(req.TrackURIs) == 0 {
		writeError(w, http.StatusBadRequest, "Missing track URIs")
		return
	}

	ids := make([]string, 0, len(req.TrackURIs))
	for _, uri := range req.TrackURIs {
		id, err := spotify.ParseTrackID(uri)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ids = append(ids, id)
	}
	if len(ids) > h.playlistLimit {
		ids = ids[:h.playlistLimit]
	}

	name := req.PlaylistName
	if name == "" {
		name = DefaultPlaylistName
	}

	client := spotify.NewFromToken(r.Context(), token, h.spotifyOpts...)
	playlist, err := client.CreatePlaylist(r.Context(), name, DefaultPlaylistDescription, false)
	if err != nil {
		h.logger.Error("creating playlist", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to create playlist")
		return
	}
	if err := client.AddTracksToPlaylist(r.Context(), playlist.ID, ids); err != nil {
		h.logger.Error("adding tracks", "playlist", playlist.ID, "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to create playlist")
		return
	}
	h.logger.Info("created playlist", "playlist", playlist.ID, "tracks", len(ids))

	writeJSON(w, http.StatusOK, createPlaylistResponse{
		PlaylistID:  playlist.ID,
		PlaylistURL: playlist.URL,
		Tracks:      len(ids),
	})
}

// requestToken prefers the token in the body, then the session's.
func (h *Handlers) requestToken(r *http.Request, accessToken string) *oauth2.Token {
	if accessToken != "" {
		return &oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"}
	}
	if session := h.sessions.GetFromRequest(r); session != nil && session.Token != nil {
		return session.Token
	}
	return nil
}

// Health reports liveness (GET /healthz).
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// generateOAuthState creates a random state string for OAuth.
func generateOAuthState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
