package main

import (
	"context"
	"os"

	"github.com/dukex/flowdesk/pkg/log"
	"github.com/urfave/cli/v3"
)

func main() {
	command := &cli.Command{
		Name:                  "flowdesk",
		Usage:                 "Manage workflow templates",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"), log.FormatTint)

			return ctx, nil
		},
		Commands: []*cli.Command{
			{
				Name:    "template",
				Aliases: []string{"t"},
				Usage:   "Work with stored templates and template documents",
				Commands: []*cli.Command{
					NewListCommand(),
					NewExportCommand(),
					NewImportCommand(),
					NewRenderCommand(),
					NewValidateCommand(),
				},
			},
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		log.WithModule("flowdesk").Error("Command failed", "error", err)
		os.Exit(1)
	}
}
