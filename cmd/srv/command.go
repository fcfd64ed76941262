package main

import "github.com/urfave/cli/v2"

func (s *srv) loadApp() {
	app := cli.NewApp()
	app.Action = cli.ShowAppHelp
	app.Name = "ticketdraw"
	app.Usage = "Sweepstakes ticket and draw service"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path of the TOML config file",
			Value: "config.toml",
		},
	}
	app.Commands = []*cli.Command{
		{
			Action:      server.startApi,
			Name:        "api",
			Usage:       "Start the api service",
			Category:    "Api",
			Description: `Serves the postback gateway, draw, audit, and user apis.`,
		},
		{
			Action:      server.startCron,
			Name:        "cron",
			Usage:       "Start the cron service",
			Category:    "Worker",
			Description: `Runs the draw-close sweep and the nightly reconciliation.`,
		},
		{
			Action:      server.startWorker,
			Name:        "worker",
			Usage:       "Start the task worker",
			Category:    "Worker",
			Description: `Consumes background tasks (emails, referral propagation) from the queue.`,
		},
		{
			Action:      server.startMigrate,
			Name:        "migrate",
			Usage:       "Migrate the database schema",
			Category:    "Tool",
			Description: `Applies the schema migration and exits.`,
		},
	}

	s.app = app
}
