// Command spotigen serves the Spotify playlist and listening API.
package main

import (
	"context"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/justestif/spotigen/internal/logging"
)

func main() {
	logger := logging.New(os.Stderr, "info")

	app := newApp(NewRunner(RunnerOpts{Logger: logger}))

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

func newApp(runner *Runner) *cli.Command {
	return &cli.Command{
		Name:    "spotigen",
		Usage:   "Spotify playlist, playback and listening-history API",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
		},
		Commands: runner.register(),
		Action:   runner.Serve,
	}
}
