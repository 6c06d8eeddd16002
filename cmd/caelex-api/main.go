package main

import (
	"context"
	"os"

	cli "github.com/urfave/cli/v3"

	pkgcmd "github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/cmd"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/engine"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/log"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/otelhelper"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/providers/document"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/providers/permissions"
)

const defaultPort = 9091

func main() {
	command := &cli.Command{
		Name:                  "caelex-api",
		Usage:                 "Manage authorization and incident compliance workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence (postgres:// or a directory path)",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus provider (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:     "facts-root",
				Usage:    "Directory holding per-instance facts documents",
				Required: true,
				Sources:  cli.EnvVars("FACTS_ROOT"),
			},
			&cli.StringFlag{
				Name:     "permissions-file",
				Usage:    "JSON file mapping actors to roles and permissions",
				Required: true,
				Sources:  cli.EnvVars("PERMISSIONS_FILE"),
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis URL for distributed instance locks (empty for in-process locks)",
				Sources: cli.EnvVars("REDIS_URL"),
			},
			&cli.BoolFlag{
				Name:    "tracing",
				Usage:   "Enable OpenTelemetry tracing of engine calls",
				Sources: cli.EnvVars("TRACING_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:    "log-format",
				Usage:   "Log format (json, text)",
				Value:   "json",
				Sources: cli.EnvVars("LOG_FORMAT"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"), command.String("log-format"))

			logger := log.WithModule("api")
			logger.InfoContext(ctx, "Initializing Caelex API")

			reg := pkgcmd.NewRegistry(logger)

			p := pkgcmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := p.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := pkgcmd.NewEventBus(command.String("event-bus"), "caelex-api", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			locks := pkgcmd.NewLockManager(ctx, logger, command.String("redis-url"))
			defer func() {
				if err := locks.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close lock manager", "error", err)
				}
			}()

			contexts, err := document.NewProvider(command.String("facts-root"), logger)
			if err != nil {
				return err
			}

			checker, err := permissions.NewProvider(command.String("permissions-file"), logger)
			if err != nil {
				return err
			}

			engineOpts := []engine.Option{}

			if command.Bool("tracing") {
				tracer, err := otelhelper.NewTracer(ctx, "caelex-api")
				if err != nil {
					return err
				}

				engineOpts = append(engineOpts, engine.WithTracer(tracer))
			}

			eng := engine.NewEngine(reg, logger, engineOpts...)

			api := NewAPI(logger, p, reg, eng, contexts, checker, locks, eventBus)

			err = api.Start(command.Int("port"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to start API server", "error", err)
			}

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
