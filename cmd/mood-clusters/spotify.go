package main

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/justestif/go-spotify-mood-clusters/internal/auth"
	"github.com/justestif/go-spotify-mood-clusters/internal/clustering"
	"github.com/justestif/go-spotify-mood-clusters/internal/config"
	"github.com/justestif/go-spotify-mood-clusters/internal/dataset"
	"github.com/justestif/go-spotify-mood-clusters/internal/web"
)

func newAuthenticator(cfg *config.Config, logger *log.Logger, r *runner) (*auth.Authenticator, error) {
	if err := cfg.Spotify.Validate(); err != nil {
		return nil, err
	}

	opts := auth.Options{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RedirectURI:  cfg.Spotify.LoginRedirectURI,
		Logger:       logger,
		Out:          r.stdout,
	}
	if cfg.Spotify.TokenCache != "" {
		opts.Cache = auth.NewTokenCache(cfg.Spotify.TokenCache)
	}
	return auth.New(opts)
}

// Login authorizes the terminal user and caches the token.
func (r *runner) Login(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := r.setup(cmd)
	if err != nil {
		return err
	}
	a, err := newAuthenticator(cfg, logger, r)
	if err != nil {
		return err
	}

	client, err := a.Authenticate(ctx)
	if err != nil {
		return err
	}
	_, name, err := client.CurrentUser(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.stdout, "Logged in as %s\n", name)
	return nil
}

// Logout forgets the cached token.
func (r *runner) Logout(_ context.Context, cmd *cli.Command) error {
	cfg, logger, err := r.setup(cmd)
	if err != nil {
		return err
	}
	a, err := newAuthenticator(cfg, logger, r)
	if err != nil {
		return err
	}
	return a.Logout()
}

// Playlist creates a Spotify playlist from the songs of one mood.
func (r *runner) Playlist(ctx context.Context, cmd *cli.Command) error {
	cfg, logger, err := r.setup(cmd)
	if err != nil {
		return err
	}

	mood, ok := clustering.IsMood(cmd.String("mood"))
	if !ok {
		return fmt.Errorf("%w: %q", web.ErrUnknownMood, cmd.String("mood"))
	}
	overrideString(cmd, "songs", &cfg.Server.Songs)
	limit := cfg.Server.PlaylistLimit
	if cmd.IsSet("limit") {
		limit = int(cmd.Int("limit"))
	}
	name := cmd.String("name")
	if name == "" {
		name = mood + " Mood"
	}

	a, err := newAuthenticator(cfg, logger, r)
	if err != nil {
		return err
	}

	source, closeSource, err := songSource(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeSource()

	songs, err := source.Songs(ctx)
	if err != nil {
		return err
	}
	ids := moodTrackIDs(songs, mood, limit)
	if len(ids) == 0 {
		return fmt.Errorf("no %s songs to add", mood)
	}

	client, err := a.Authenticate(ctx)
	if err != nil {
		return err
	}
	playlist, err := client.CreatePlaylist(ctx, name, web.DefaultPlaylistDescription, cmd.Bool("public"))
	if err != nil {
		return err
	}
	if err := client.AddTracksToPlaylist(ctx, playlist.ID, ids); err != nil {
		return err
	}

	logger.Info("created playlist", "id", playlist.ID, "tracks", len(ids))
	fmt.Fprintf(r.stdout, "Created %q with %d songs: %s\n", name, len(ids), playlist.URL)
	return nil
}

// moodTrackIDs returns up to limit track IDs of the given mood in catalogue order.
func moodTrackIDs(songs []dataset.AnnotatedSong, mood string, limit int) []string {
	var ids []string
	for _, s := range songs {
		if limit > 0 && len(ids) == limit {
			break
		}
		if s.Mood == mood && s.TrackID != "" {
			ids = append(ids, s.TrackID)
		}
	}
	return ids
}
