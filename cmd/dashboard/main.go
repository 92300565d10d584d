package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/ExclusiveAccount/exposure-dashboard/pkg/alert"
	"github.com/ExclusiveAccount/exposure-dashboard/pkg/api"
	"github.com/ExclusiveAccount/exposure-dashboard/pkg/config"
	"github.com/ExclusiveAccount/exposure-dashboard/pkg/shodan"
)

const (
	appName    = "exposure-dashboard"
	appVersion = "1.0.0"
)

var log = logrus.New()

func main() {
	app := &cli.App{
		Name:        appName,
		Usage:       "Web dashboard for internet-wide device exposure data",
		Version:     appVersion,
		HideVersion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env-file",
				Aliases: []string{"e"},
				Value:   "key.env",
				Usage:   "Load environment variables from `FILE`",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"DASHBOARD_LOG_LEVEL"},
			},
			&cli.BoolFlag{
				Name:  "version",
				Usage: "Print version information",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("version") {
				fmt.Printf("%s v%s\n", appName, appVersion)
				os.Exit(0)
			}

			// The env file is optional; environment variables win either way.
			if err := godotenv.Load(c.String("env-file")); err != nil {
				log.Debugf("no env file loaded: %v", err)
			}

			level, err := logrus.ParseLevel(c.String("log-level"))
			if err != nil {
				level = logrus.InfoLevel
			}
			log.SetLevel(level)
			log.SetFormatter(&logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: "2006-01-02 15:04:05",
			})

			return nil
		},
		Commands: []*cli.Command{
			commandServe(),
		},
		DefaultCommand: "serve",
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func commandServe() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the dashboard web server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "HTTP listen port",
				EnvVars: []string{"DASHBOARD_PORT"},
			},
			&cli.BoolFlag{
				Name:    "demo",
				Usage:   "Serve canned responses instead of live upstream calls",
				EnvVars: []string{"DEMO_MODE"},
			},
		},
		Action: func(c *cli.Context) error {
			cfg := config.FromEnv()
			if c.IsSet("port") {
				cfg.Port = c.String("port")
			}
			if c.IsSet("demo") {
				cfg.DemoMode = c.Bool("demo")
			}
			if cfg.Verbose {
				log.SetLevel(logrus.DebugLevel)
			}

			client, err := shodan.NewClient(cfg, log)
			if err != nil {
				return fmt.Errorf("initializing upstream client: %w", err)
			}

			dispatcher := alert.NewDispatcher(cfg, log)
			server := api.NewServer(cfg, client, dispatcher, log)

			printBanner(cfg)
			return server.Start()
		},
	}
}

func printBanner(cfg config.Config) {
	color.Cyan("\n=== Device Exposure Dashboard ===\n")
	if cfg.DemoMode {
		color.Yellow("Demo mode is ON: responses are canned\n")
	}
	color.Green("Dashboard listening on http://localhost:%s\n", cfg.Port)
}
