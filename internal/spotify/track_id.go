package spotify

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidTrackID is returned for values that do not name a Spotify track.
var ErrInvalidTrackID = errors.New("invalid Spotify track ID")

const trackURIPrefix = "spotify:track:"

// ParseTrackID extracts the track ID from a bare ID, a spotify:track: URI or
// an open.spotify.com track URL.
func ParseTrackID(s string) (string, error) {
	s = strings.TrimSpace(s)

	var id string
	switch {
	case strings.HasPrefix(s, trackURIPrefix):
		id = strings.TrimPrefix(s, trackURIPrefix)
	case strings.HasPrefix(s, "http://"), strings.HasPrefix(s, "https://"):
		u, err := url.Parse(s)
		if err != nil || u.Host != "open.spotify.com" {
			return "", fmt.Errorf("%w: %q", ErrInvalidTrackID, s)
		}
		parts := strings.Split(strings.Trim(u.Path, "/"), "/")
		// Localized links look like /intl-de/track/<id>.
		if len(parts) == 3 && strings.HasPrefix(parts[0], "intl-") {
			parts = parts[1:]
		}
		if len(parts) != 2 || parts[0] != "track" {
			return "", fmt.Errorf("%w: %q", ErrInvalidTrackID, s)
		}
		id = parts[1]
	default:
		id = s
	}

	if !isBase62(id) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTrackID, s)
	}
	return id, nil
}

// TrackURI returns the spotify:track: URI of id.
func TrackURI(id string) string {
	return trackURIPrefix + id
}

func isBase62(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
