/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"github.com/taskboard/apiserver/config"
	"github.com/taskboard/apiserver/internal/logging"
	"github.com/taskboard/apiserver/internal/mq"
	"github.com/taskboard/apiserver/types"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Inspect todo lifecycle events",
}

var eventsWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Log todo events from the configured broker until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		logger := logging.New(cfg.Log)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		queue, err := mq.Open(ctx, cfg.MQ)
		if err != nil {
			return err
		}
		if queue == nil {
			return errors.New("MQ_BACKEND is none, there are no events to watch")
		}
		defer queue.Close()

		logger.Info("watching todo events", "backend", cfg.MQ.Backend, "channel", cfg.MQ.TodoEventChannel)
		err = mq.SubscribeTodoEvents(ctx, queue, cfg.MQ.TodoEventChannel, logTodoEvent(logger))
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.AddCommand(eventsWatchCmd)
}

func logTodoEvent(logger *log.Logger) func(context.Context, types.TodoEvent) error {
	return func(_ context.Context, event types.TodoEvent) error {
		logger.Info(string(event.Type),
			"todo_id", event.TodoID,
			"user_id", event.UserID,
			"actor_id", event.ActorID,
			"occurred_at", event.OccurredAt,
		)
		return nil
	}
}
