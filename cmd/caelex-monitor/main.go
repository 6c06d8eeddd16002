// Package main provides the Caelex deadline monitor service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	cli "github.com/urfave/cli/v3"

	pkgcmd "github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/cmd"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/deadline"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/events"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/log"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/models"
	"github.com/Polleschnerjulian-creator/caelex-assessment-sub017/pkg/providers/document"
)

func main() {
	command := &cli.Command{
		Name:                  "caelex-monitor",
		Usage:                 "Watch incident notification deadlines and publish warnings",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "monitor-id",
				Aliases: []string{"id"},
				Usage:   "Custom monitor ID (auto-generated if not provided)",
				Value:   "",
				Sources: cli.EnvVars("MONITOR_ID"),
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
				Name:    "schedule",
				Usage:   "Cron expression for the deadline sweep",
				Value:   deadline.DefaultSchedule,
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.DurationFlag{
				Name:    "warning-window",
				Usage:   "How long before a deadline the approaching warning fires",
				Value:   deadline.DefaultWarningWindow,
				Sources: cli.EnvVars("WARNING_WINDOW"),
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

			monitorID := command.String("monitor-id")
			if monitorID == "" {
				monitorID = fmt.Sprintf("monitor-%s", uuid.New().String()[:8])
			}

			logger := log.WithModule("caelex-monitor").With("monitor_id", monitorID)
			logger.InfoContext(ctx, "Initializing Caelex deadline monitor")

			p := pkgcmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := p.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := pkgcmd.NewEventBus(command.String("event-bus"), monitorID, logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			contexts, err := document.NewProvider(command.String("facts-root"), logger)
			if err != nil {
				return err
			}

			monitor := deadline.NewMonitor(
				p.InstanceRepository(),
				contexts,
				eventBus,
				logger,
				deadline.WithSchedule(command.String("schedule")),
				deadline.WithWarningWindow(command.Duration("warning-window")),
			)

			// Incident transitions arm and discharge deadlines, so re-check
			// immediately instead of waiting for the next scheduled sweep.
			err = eventBus.Handle(events.TransitionCommittedEvent, func(ctx context.Context, event any) error {
				committed, ok := event.(*events.TransitionCommitted)
				if !ok || committed.WorkflowType != models.WorkflowTypeIncident {
					return nil
				}

				logger.DebugContext(ctx, "Incident transition committed, sweeping deadlines",
					"instance_id", committed.InstanceID, "current_state", committed.CurrentState)
				monitor.Sweep(ctx)

				return nil
			})
			if err != nil {
				return err
			}

			if err := eventBus.Subscribe(ctx); err != nil {
				return err
			}

			if err := monitor.Start(ctx); err != nil {
				return err
			}

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			select {
			case <-stop:
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			monitor.Stop(shutdownCtx)

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
