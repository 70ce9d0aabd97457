// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// serveCommand runs the web service
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API, scrape schedule and task workers",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Address to listen on (overrides server.host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to listen on (overrides server.port)",
			},
			&cli.BoolFlag{
				Name:  "no-schedule",
				Usage: "Do not register the cron scrape job",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand writes the config template and prepares the database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml (if missing) and run database migrations",
		Action: r.Setup,
	}
}

// authCommand handles Spotify authentication for CLI commands
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "auth",
		Usage:  "Authenticate with Spotify using OAuth2",
		Action: r.Auth,
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show whether a Spotify token is stored",
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Forget the stored Spotify token",
				Action: r.AuthLogout,
			},
		},
	}
}

// scrapeCommand runs the station scrape once
func scrapeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "scrape",
		Usage:  "Scrape every configured station and upload the CSVs",
		Action: r.Scrape,
	}
}

// syncCommand creates a Spotify playlist from a stored CSV
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Create a Spotify playlist from a stored CSV",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Aliases:  []string{"f"},
				Usage:    "Key of the CSV in the bucket",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Log progress instead of drawing a progress bar",
			},
		},
		Action: r.Sync,
	}
}

// mergeCommand merges two Spotify playlists
func mergeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "merge",
		Usage: "Copy new tracks from one playlist into another, then delete the source",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "source",
				Usage: "Source playlist ID (omit both IDs to pick interactively)",
			},
			&cli.StringFlag{
				Name:  "target",
				Usage: "Target playlist ID",
			},
			&cli.BoolFlag{
				Name:  "plain",
				Usage: "Log progress instead of drawing a progress bar",
			},
		},
		Action: r.Merge,
	}
}

// processBucketCommand syncs the first CSVs of the bucket
func processBucketCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "process-bucket",
		Usage: "Create playlists for the first CSVs in the bucket",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Usage:   "Number of keys to consider (0 for all)",
				Value:   2,
			},
		},
		Action: r.ProcessBucket,
	}
}

// playlistsCommand lists stored CSVs or Spotify playlists
func playlistsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "playlists",
		Aliases: []string{"ls"},
		Usage:   "List stored playlist CSVs, or your Spotify playlists",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "spotify",
				Usage: "List Spotify playlists instead of stored CSVs",
			},
			&cli.StringFlag{
				Name:  "show",
				Usage: "Print the rows of one stored CSV",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		},
		Action: r.Playlists,
	}
}
