// Package config loads mood-clusters settings from TOML and the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "config.toml"

// Environment variables that override file values.
const (
	EnvSpotifyID     = "SPOTIFY_ID"
	EnvSpotifySecret = "SPOTIFY_SECRET"
	EnvDatabaseURL   = "DATABASE_URL"
	EnvLogLevel      = "MOOD_CLUSTERS_LOG_LEVEL"
)

// ErrMissingCredentials is returned when Spotify client credentials are not set.
var ErrMissingCredentials = errors.New("missing Spotify credentials: set SPOTIFY_ID and SPOTIFY_SECRET")

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Log      LogConfig      `toml:"log"`
	Compare  CompareConfig  `toml:"compare"`
	Moods    MoodsConfig    `toml:"moods"`
	Server   ServerConfig   `toml:"server"`
	Spotify  SpotifyConfig  `toml:"spotify"`
	Database DatabaseConfig `toml:"database"`
}

// LogConfig controls logger verbosity.
type LogConfig struct {
	Level string `toml:"level"`
}

// CompareConfig holds settings for the model comparison pipeline.
type CompareConfig struct {
	Input         string              `toml:"input"`
	PlotsDir      string              `toml:"plots_dir"`
	HTML          bool                `toml:"html"`
	Persist       bool                `toml:"persist"`
	KMeans        KMeansConfig        `toml:"kmeans"`
	DBSCAN        DBSCANConfig        `toml:"dbscan"`
	Agglomerative AgglomerativeConfig `toml:"agglomerative"`
}

// KMeansConfig mirrors clustering.KMeans.
type KMeansConfig struct {
	Clusters      int    `toml:"clusters"`
	Seed          uint64 `toml:"seed"`
	Restarts      int    `toml:"restarts"`
	MaxIterations int    `toml:"max_iterations"`
}

// DBSCANConfig mirrors clustering.DBSCAN.
type DBSCANConfig struct {
	Eps        float64 `toml:"eps"`
	MinSamples int     `toml:"min_samples"`
}

// AgglomerativeConfig mirrors clustering.Agglomerative.
type AgglomerativeConfig struct {
	Clusters int    `toml:"clusters"`
	Linkage  string `toml:"linkage"`
}

// MoodsConfig holds settings for the mood labelling pipeline.
type MoodsConfig struct {
	Input    string `toml:"input"`
	Output   string `toml:"output"`
	Plot     string `toml:"plot"`
	Clusters int    `toml:"clusters"`
	Linkage  string `toml:"linkage"`
	Strategy string `toml:"strategy"`
	Samples  int    `toml:"samples"`
	HTML     bool   `toml:"html"`
	Persist  bool   `toml:"persist"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr          string `toml:"addr"`
	Songs         string `toml:"songs"`
	FrontendURI   string `toml:"frontend_uri"`
	RedirectURI   string `toml:"redirect_uri"`
	PlaylistLimit int    `toml:"playlist_limit"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`

	// LoginRedirectURI is the loopback callback for terminal logins.
	LoginRedirectURI string `toml:"login_redirect_uri"`

	// TokenCache is where terminal logins keep their token. Empty means the
	// user config directory.
	TokenCache string `toml:"token_cache"`
}

// Validate reports ErrMissingCredentials when either credential is empty.
func (c SpotifyConfig) Validate() error {
	if c.ClientID == "" || c.ClientSecret == "" {
		return ErrMissingCredentials
	}
	return nil
}

// DatabaseConfig contains the Postgres connection string. Persistence is off when empty.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// Enabled reports whether a database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.URL != ""
}

// Load reads the TOML file at path on top of the defaults and applies
// environment overrides. A missing file is not an error; defaults are used.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	config.applyEnv()
	return config, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvSpotifyID); v != "" {
		c.Spotify.ClientID = v
	}
	if v := os.Getenv(EnvSpotifySecret); v != "" {
		c.Spotify.ClientSecret = v
	}
	if v := os.Getenv(EnvDatabaseURL); v != "" {
		c.Database.URL = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// DefaultConfig returns a Config with defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile writes the embedded example config to path.
// It refuses to overwrite an existing file.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
