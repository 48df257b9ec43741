// Command mood-clusters clusters Spotify songs by audio features, labels the
// clusters with moods and serves the result to a playlist-making frontend.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/justestif/go-spotify-mood-clusters/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	app := newApp(&runner{stdout: os.Stdout, stderr: os.Stderr})
	return app.Run(context.Background(), os.Args)
}

func newApp(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "mood-clusters",
		Usage: "Cluster Spotify songs and group them by mood",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   config.DefaultPath,
			},
		},
		Commands: r.register(),
	}
}
