// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

var configFlag = &cli.StringFlag{
	Name:    "config",
	Aliases: []string{"c"},
	Usage:   "Path to configuration file",
	Value:   "config.toml",
}

// serveCommand runs the game server.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the Spotify-backed game server",
		Flags: []cli.Flag{
			configFlag,
			&cli.StringFlag{
				Name:  "host",
				Usage: "Override listen host",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Override listen port",
			},
		},
		Action: r.Serve,
	}
}

// setupCommand handles setup operations for configuration and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Flags:  []cli.Flag{configFlag},
				Action: r.SetupDatabase,
			},
		},
	}
}

// authCommand handles authentication operations against a running server.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:  "status",
				Usage: "Check current authentication state (calls /auth/status)",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:  "login",
				Usage: "Open the server's login URL in a browser",
				Flags: []cli.Flag{
					configFlag,
					&cli.BoolFlag{
						Name:  "print",
						Usage: "Print the URL instead of opening a browser",
					},
				},
				Action: r.AuthLogin,
			},
		},
	}
}
