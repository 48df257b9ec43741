package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	spotifyapi "github.com/zmb3/spotify/v2"
	"golang.org/x/oauth2"

	"github.com/justestif/go-spotify-mood-clusters/internal/clustering"
	"github.com/justestif/go-spotify-mood-clusters/internal/dataset"
)

func song(id, mood string, cluster int, genre string, dance, tempo float64) dataset.AnnotatedSong {
	return dataset.AnnotatedSong{
		Song: dataset.Song{
			TrackID:      id,
			Name:         "Song " + id,
			Artist:       "Artist " + id,
			Genre:        genre,
			Subgenre:     genre + " sub",
			Danceability: ptr(dance),
			Energy:       ptr(0.5),
			Valence:      ptr(0.5),
			Tempo:        ptr(tempo),
		},
		Cluster: cluster,
		Mood:    mood,
	}
}

func catalogue() StaticSource {
	return StaticSource{
		song("a", clustering.Happy, 1, "pop", 0.8, 120),
		song("b", clustering.Happy, 1, "rock", 0.4, 95),
		song("c", clustering.Sad, 3, "pop", 0.3, 70),
		song("d", clustering.Chill, 0, "latin", 0.65, 100),
		song("e", clustering.Energetic, 2, "edm", 0.9, 140),
		song("f", clustering.Energetic, 2, "Rock", 0.5, 160),
	}
}

func newTestServer(t *testing.T, cfg ServerConfig) *Server {
	t.Helper()
	if cfg.Songs == nil {
		cfg.Songs = catalogue()
	}
	cfg.Logger = log.New(&bytes.Buffer{})
	cfg.ClientID = "client-id"
	cfg.ClientSecret = "client-secret"
	s, err := NewServer(cfg)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	return s
}

func do(t *testing.T, s *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeSongs(t *testing.T, rec *httptest.ResponseRecorder) []songJSON {
	t.Helper()
	var songs []songJSON
	if err := json.NewDecoder(rec.Body).Decode(&songs); err != nil {
		t.Fatalf("decoding songs: %v", err)
	}
	return songs
}

func TestNewServerRequiresSongs(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); !errors.Is(err, ErrNoSongSource) {
		t.Errorf("NewServer() error = %v, want %v", err, ErrNoSongSource)
	}
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(t, ServerConfig{}), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("GET /healthz = %d %s", rec.Code, rec.Body.String())
	}
}

func TestSongsAll(t *testing.T) {
	rec := do(t, newTestServer(t, ServerConfig{}), httptest.NewRequest(http.MethodGet, "/api/songs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/songs status = %d", rec.Code)
	}

	songs := decodeSongs(t, rec)
	if len(songs) != 6 {
		t.Fatalf("GET /api/songs returned %d songs, want 6", len(songs))
	}
	// Unfiltered responses keep catalogue order.
	if songs[0].TrackID != "a" || songs[0].Mood != clustering.Happy || songs[0].Cluster != 1 {
		t.Errorf("first song = %+v", songs[0])
	}
	if songs[0].Tempo == nil || *songs[0].Tempo != 120 {
		t.Errorf("first song tempo = %v, want 120", songs[0].Tempo)
	}
}

func TestSongsFilter(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode int
		wantIDs  []string
	}{
		{"mood name", "mood=Happy", http.StatusOK, []string{"a", "b"}},
		{"mood case insensitive", "mood=energetic", http.StatusOK, []string{"e", "f"}},
		{"cluster index", "mood=3", http.StatusOK, []string{"c"}},
		{"genre", "genre=ROCK", http.StatusOK, []string{"b", "f"}},
		{"danceable", "danceability=danceable", http.StatusOK, []string{"a", "d", "e"}},
		{"not danceable", "danceability=not_danceable", http.StatusOK, []string{"b", "c", "f"}},
		{"tempo range", "min_tempo=90&max_tempo=125", http.StatusOK, []string{"a", "b", "d"}},
		{"combined", "mood=Energetic&genre=edm", http.StatusOK, []string{"e"}},
		{"no matches", "mood=Chill&genre=pop", http.StatusOK, []string{}},
		{"unknown mood", "mood=Angry", http.StatusBadRequest, nil},
		{"negative cluster", "mood=-1", http.StatusBadRequest, nil},
		{"bad danceability", "danceability=very", http.StatusBadRequest, nil},
		{"bad tempo", "min_tempo=fast", http.StatusBadRequest, nil},
	}

	s := newTestServer(t, ServerConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/songs?"+tt.query, nil))
			if rec.Code != tt.wantCode {
				t.Fatalf("GET /api/songs?%s status = %d, want %d (%s)", tt.query, rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode != http.StatusOK {
				return
			}

			got := make(map[string]bool)
			for _, sj := range decodeSongs(t, rec) {
				got[sj.TrackID] = true
			}
			if len(got) != len(tt.wantIDs) {
				t.Errorf("got %v, want %v", got, tt.wantIDs)
			}
			for _, id := range tt.wantIDs {
				if !got[id] {
					t.Errorf("missing song %q in %v", id, got)
				}
			}
		})
	}
}

func TestSongsFilterLimit(t *testing.T) {
	var songs StaticSource
	for i := range 150 {
		songs = append(songs, song(fmt.Sprint(i), clustering.Sad, 3, "pop", 0.5, 100))
	}
	s := newTestServer(t, ServerConfig{Songs: songs})

	rec := do(t, s, httptest.NewRequest(http.MethodGet, "/api/songs?mood=Sad", nil))
	if got := len(decodeSongs(t, rec)); got != DefaultSongLimit {
		t.Errorf("filtered songs = %d, want %d", got, DefaultSongLimit)
	}

	rec = do(t, s, httptest.NewRequest(http.MethodGet, "/api/songs", nil))
	if got := len(decodeSongs(t, rec)); got != 150 {
		t.Errorf("unfiltered songs = %d, want 150", got)
	}
}

type failingSource struct{}

func (failingSource) Songs(context.Context) ([]dataset.AnnotatedSong, error) {
	return nil, errors.New("database unavailable")
}

func TestSongsSourceError(t *testing.T) {
	s := newTestServer(t, ServerConfig{Songs: failingSource{}})
	for _, path := range []string{"/api/songs", "/api/moods"} {
		rec := do(t, s, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("GET %s status = %d, want 500", path, rec.Code)
		}
	}
}

func TestMoods(t *testing.T) {
	rec := do(t, newTestServer(t, ServerConfig{}), httptest.NewRequest(http.MethodGet, "/api/moods", nil))

	var got []moodCount
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("decoding moods: %v", err)
	}
	want := []moodCount{
		{clustering.Chill, 1},
		{clustering.Happy, 2},
		{clustering.Energetic, 2},
		{clustering.Sad, 1},
	}
	if len(got) != len(want) {
		t.Fatalf("GET /api/moods = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("mood %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, ServerConfig{})

	for _, path := range []string{"/login", "/auth/login"} {
		rec := do(t, s, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusTemporaryRedirect {
			t.Fatalf("GET %s status = %d, want %d", path, rec.Code, http.StatusTemporaryRedirect)
		}

		loc, err := url.Parse(rec.Header().Get("Location"))
		if err != nil {
			t.Fatalf("parsing Location: %v", err)
		}
		if loc.Host != "accounts.spotify.com" || loc.Query().Get("client_id") != "client-id" {
			t.Errorf("Location = %s", loc)
		}
		if loc.Query().Get("redirect_uri") != DefaultRedirectURI {
			t.Errorf("redirect_uri = %q, want %q", loc.Query().Get("redirect_uri"), DefaultRedirectURI)
		}

		var state string
		for _, c := range rec.Result().Cookies() {
			if c.Name == stateCookieName {
				state = c.Value
			}
		}
		if state == "" || loc.Query().Get("state") != state {
			t.Errorf("state cookie %q does not match Location state %q", state, loc.Query().Get("state"))
		}
	}
}

func TestCallbackRejects(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		cookie string
		want   string
	}{
		{"missing state cookie", "state=abc&code=x", "", "Missing state cookie"},
		{"state mismatch", "state=abc&code=x", "other", "State mismatch"},
		{"spotify error", "state=abc&error=access_denied", "abc", "access_denied"},
	}

	s := newTestServer(t, ServerConfig{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/callback?"+tt.query, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: stateCookieName, Value: tt.cookie})
			}
			rec := do(t, s, req)
			if rec.Code != http.StatusBadRequest || !strings.Contains(rec.Body.String(), tt.want) {
				t.Errorf("GET /callback = %d %q, want 400 containing %q", rec.Code, rec.Body.String(), tt.want)
			}
		})
	}
}

func TestFrontendRedirect(t *testing.T) {
	h := &Handlers{frontendURI: "http://localhost:5173"}
	got := h.frontendRedirect(&oauth2.Token{AccessToken: "a b", RefreshToken: "r"})
	want := "http://localhost:5173?access_token=a+b&refresh_token=r"
	if got != want {
		t.Errorf("frontendRedirect() = %q, want %q", got, want)
	}
}

// fakeSpotify is a stub of the Spotify endpoints used for playlist creation.
type fakeSpotify struct {
	mu      sync.Mutex
	auth    []string
	name    string
	public  any
	added   []string
	failAdd bool
}

func (fs *fakeSpotify) start(t *testing.T) string {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /me", func(w http.ResponseWriter, r *http.Request) {
		fs.mu.Lock()
		fs.auth = append(fs.auth, r.Header.Get("Authorization"))
		fs.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"user-1","display_name":"Listener"}`))
	})
	mux.HandleFunc("POST /users/user-1/playlists", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		fs.mu.Lock()
		fs.name, _ = body["name"].(string)
		fs.public = body["public"]
		fs.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"pl-9","external_urls":{"spotify":"https://open.spotify.com/playlist/pl-9"}}`))
	})
	mux.HandleFunc("POST /playlists/pl-9/tracks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if fs.failAdd {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"status":400,"message":"bad uris"}}`))
			return
		}
		var body struct {
			URIs []string `json:"uris"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		fs.mu.Lock()
		fs.added = append(fs.added, body.URIs...)
		fs.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"snapshot_id":"snap"}`))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server.URL + "/"
}

func postPlaylist(t *testing.T, s *Server, body any, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("encoding body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, "/api/create-playlist", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return do(t, s, req)
}

func TestCreatePlaylist(t *testing.T) {
	api := &fakeSpotify{}
	s := newTestServer(t, ServerConfig{
		SpotifyOptions: []spotifyapi.ClientOption{spotifyapi.WithBaseURL(api.start(t))},
	})

	uris := make([]string, 150)
	for i := range uris {
		uris[i] = fmt.Sprintf("spotify:track:track%d", i)
	}

	rec := postPlaylist(t, s, map[string]any{"access_token": "tok", "track_uris": uris}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/create-playlist status = %d: %s", rec.Code, rec.Body.String())
	}

	var resp createPlaylistResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.PlaylistID != "pl-9" || resp.PlaylistURL != "https://open.spotify.com/playlist/pl-9" || resp.Tracks != 100 {
		t.Errorf("response = %+v", resp)
	}
	if api.name != DefaultPlaylistName || api.public != false {
		t.Errorf("playlist created as %q public=%v", api.name, api.public)
	}
	if len(api.added) != 100 || api.added[99] != "spotify:track:track99" {
		t.Errorf("added %d tracks, last %q", len(api.added), api.added[len(api.added)-1])
	}
	if api.auth[0] != "Bearer tok" {
		t.Errorf("Authorization = %q, want %q", api.auth[0], "Bearer tok")
	}
}

func TestCreatePlaylistSessionToken(t *testing.T) {
	api := &fakeSpotify{}
	sessions := NewSessionStore()
	s := newTestServer(t, ServerConfig{
		Sessions:       sessions,
		SpotifyOptions: []spotifyapi.ClientOption{spotifyapi.WithBaseURL(api.start(t))},
	})

	session, err := sessions.Create(context.Background(), &oauth2.Token{AccessToken: "session-tok", TokenType: "Bearer"}, "user-1", "Listener")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	rec := postPlaylist(t, s,
		map[string]any{"track_uris": []string{"https://open.spotify.com/track/abc123"}, "playlist_name": "Rainy Day"},
		&http.Cookie{Name: sessionCookieName, Value: session.ID})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if api.auth[0] != "Bearer session-tok" || api.name != "Rainy Day" {
		t.Errorf("auth %v, name %q", api.auth, api.name)
	}
	if len(api.added) != 1 || api.added[0] != "spotify:track:abc123" {
		t.Errorf("added = %v", api.added)
	}
}

func TestCreatePlaylistErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		failAdd  bool
		wantCode int
	}{
		{"missing token", map[string]any{"track_uris": []string{"spotify:track:a"}}, false, http.StatusUnauthorized},
		{"no tracks", map[string]any{"access_token": "tok"}, false, http.StatusBadRequest},
		{"invalid uri", map[string]any{"access_token": "tok", "track_uris": []string{"spotify:album:x y"}}, false, http.StatusBadRequest},
		{"invalid body", "not an object", false, http.StatusBadRequest},
		{"spotify failure", map[string]any{"access_token": "tok", "track_uris": []string{"spotify:track:a"}}, true, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeSpotify{failAdd: tt.failAdd}
			s := newTestServer(t, ServerConfig{
				SpotifyOptions: []spotifyapi.ClientOption{spotifyapi.WithBaseURL(api.start(t))},
			})
			rec := postPlaylist(t, s, tt.body, nil)
			if rec.Code != tt.wantCode {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body.String())
			}
		})
	}
}

func TestLogout(t *testing.T) {
	sessions := NewSessionStore()
	s := newTestServer(t, ServerConfig{Sessions: sessions})
	session, err := sessions.Create(context.Background(), &oauth2.Token{AccessToken: "x"}, "u", "User")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: session.ID})
	rec := do(t, s, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("POST /auth/logout status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if sessions.Get(context.Background(), session.ID) != nil {
		t.Error("session still present after logout")
	}
}
