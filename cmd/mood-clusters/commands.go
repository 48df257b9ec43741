package main

import "github.com/urfave/cli/v3"

func (r *runner) register() []*cli.Command {
	return []*cli.Command{
		compareCommand(r),
		moodsCommand(r),
		serveCommand(r),
		playlistCommand(r),
		{
			Name:   "login",
			Usage:  "Log in to Spotify and cache the token",
			Action: r.Login,
		},
		{
			Name:   "logout",
			Usage:  "Remove the cached Spotify token",
			Action: r.Logout,
		},
		runsCommand(r),
		configCommand(r),
	}
}

// compareCommand scores KMeans, DBSCAN and Agglomerative on the same data.
func compareCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "compare",
		Usage: "Compare clustering models and plot each one",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Songs CSV",
			},
			&cli.StringFlag{
				Name:  "plots-dir",
				Usage: "Directory for the PCA plots",
			},
			&cli.BoolFlag{
				Name:  "html",
				Usage: "Also write interactive HTML plots",
			},
			&cli.BoolFlag{
				Name:  "persist",
				Usage: "Save the scores to the database",
			},
		},
		Action: r.Compare,
	}
}

// moodsCommand labels songs with moods and writes the annotated CSV.
func moodsCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "moods",
		Usage: "Group songs into moods",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "input",
				Aliases: []string{"i"},
				Usage:   "Songs CSV",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Annotated CSV to write",
			},
			&cli.StringFlag{
				Name:  "plot",
				Usage: "Mood chart to write",
			},
			&cli.StringFlag{
				Name:  "linkage",
				Usage: "Agglomerative linkage: ward, average, complete or single",
			},
			&cli.StringFlag{
				Name:  "strategy",
				Usage: "Mood naming: centroid or positional",
			},
			&cli.IntFlag{
				Name:  "samples",
				Usage: "Songs shown per mood",
			},
			&cli.BoolFlag{
				Name:  "html",
				Usage: "Also write an interactive HTML chart",
			},
			&cli.BoolFlag{
				Name:  "persist",
				Usage: "Save the labelled songs to the database",
			},
		},
		Action: r.Moods,
	}
}

func serveCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve labelled songs and create Spotify playlists",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address",
			},
			&cli.StringFlag{
				Name:  "songs",
				Usage: "Annotated CSV served when no database is configured",
			},
		},
		Action: r.Serve,
	}
}

// playlistCommand turns one mood into a Spotify playlist from the terminal.
func playlistCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "playlist",
		Usage: "Create a Spotify playlist from the songs of one mood",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "mood",
				Aliases:  []string{"m"},
				Usage:    "Chill, Happy, Energetic or Sad",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "Playlist name (default: \"<mood> Mood\")",
			},
			&cli.StringFlag{
				Name:  "songs",
				Usage: "Annotated CSV read when no database is configured",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of songs to add",
			},
			&cli.BoolFlag{
				Name:  "public",
				Usage: "Make the playlist public",
			},
		},
		Action: r.Playlist,
	}
}

// runsCommand inspects results saved with --persist.
func runsCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:   "runs",
		Usage:  "Show the latest stored runs",
		Action: r.Runs,
		Commands: []*cli.Command{
			{
				Name:      "delete",
				Usage:     "Delete a stored run",
				ArgsUsage: "<run-id>",
				Action:    r.DeleteRun,
			},
		},
	}
}

func configCommand(r *runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage the configuration file",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Write the example configuration",
				Action: r.ConfigInit,
			},
		},
	}
}
