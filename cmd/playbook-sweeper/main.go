// Package main provides the retention sweeper daemon.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	cli "github.com/urfave/cli/v3"

	"github.com/getplaybook/playbook/pkg/cmd"
	"github.com/getplaybook/playbook/pkg/log"
	"github.com/getplaybook/playbook/pkg/services"
)

const hoursPerDay = 24

func main() {
	logger := log.WithModule("sweeper")

	command := &cli.Command{
		Name:                  "playbook-sweeper",
		Usage:                 "Purge expired soft-deleted templates and stale draft instances",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL for persistence",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "Cron expression for the sweep schedule",
				Value:   "0 3 * * *",
				Sources: cli.EnvVars("SWEEP_SCHEDULE"),
			},
			&cli.IntFlag{
				Name:    "template-retention-days",
				Usage:   "Days a soft-deleted template is kept before permanent removal",
				Value:   30,
				Sources: cli.EnvVars("TEMPLATE_RETENTION_DAYS"),
			},
			&cli.IntFlag{
				Name:    "draft-retention-days",
				Usage:   "Days a draft instance is kept before removal",
				Value:   90,
				Sources: cli.EnvVars("DRAFT_RETENTION_DAYS"),
			},
			&cli.BoolFlag{
				Name:  "once",
				Usage: "Run a single sweep and exit instead of scheduling",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing Playbook sweeper")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			sweeper := services.NewSweeper(
				persistence,
				time.Duration(command.Int("template-retention-days"))*hoursPerDay*time.Hour,
				time.Duration(command.Int("draft-retention-days"))*hoursPerDay*time.Hour,
				logger,
			)

			if command.Bool("once") {
				_, err := sweeper.Sweep(ctx)

				return err
			}

			scheduler := cron.New()

			_, err := scheduler.AddFunc(command.String("schedule"), func() {
				if _, err := sweeper.Sweep(ctx); err != nil {
					logger.ErrorContext(ctx, "Sweep failed", "error", err)
				}
			})
			if err != nil {
				return err
			}

			scheduler.Start()
			logger.InfoContext(ctx, "Sweeper scheduled", "schedule", command.String("schedule"))

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
			<-stop

			shutdownCtx := scheduler.Stop()
			<-shutdownCtx.Done()

			return nil
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		panic(err)
	}
}
