package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	cfnats "github.com/Strob0t/A2APipeline/internal/adapter/nats"
	"github.com/Strob0t/A2APipeline/internal/domain/task"
)

func (a *app) cardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "card <agent>",
		Short: "Print an agent's card",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(args[0])
			if err != nil {
				return err
			}
			card, err := c.Card(cmd.Context())
			if err != nil {
				return err
			}
			return newPrinter(os.Stdout, true).value(card)
		},
	}
}

func (a *app) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <agent> <task_id>",
		Short: "Follow a task's progress stream until it completes",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(args[0])
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := newPrinter(os.Stdout, a.asJSON)
			terminal := false
			for ev, err := range c.Stream(ctx, args[1]) {
				if err != nil {
					return err
				}
				if err := out.event("", ev); err != nil {
					return err
				}
				terminal = ev.IsTerminal()
			}
			if !terminal && ctx.Err() == nil {
				return fmt.Errorf("stream for task %s ended before completion", args[1])
			}
			return nil
		},
	}
}

func (a *app) resubscribeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resubscribe <agent> <task_id>",
		Short: "Print the last known snapshot of a task",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(args[0])
			if err != nil {
				return err
			}
			snap, err := c.Resubscribe(cmd.Context(), args[1])
			if err != nil {
				return err
			}
			return newPrinter(os.Stdout, true).value(snap)
		},
	}
}

type busEvent struct {
	agent string
	ev    task.Event
}

func (a *app) eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "events [agent]",
		Short: "Print task events published on NATS until interrupted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.NATS.URL == "" {
				return fmt.Errorf("events: NATS_URL is not configured")
			}
			agent := ""
			if len(args) == 1 {
				agent = args[0]
			}

			bus, err := cfnats.Connect(a.cfg.NATS.URL, a.cfg.NATS.SubjectPrefix)
			if err != nil {
				return err
			}
			defer func() { _ = bus.Close() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := newPrinter(os.Stdout, a.asJSON)
			evs := make(chan busEvent, 64)
			unsubscribe, err := bus.Subscribe(agent, forwardTo(ctx, evs))
			if err != nil {
				return err
			}
			defer func() {
				stop()
				unsubscribe()
			}()

			for {
				select {
				case <-ctx.Done():
					return nil
				case e := <-evs:
					if err := out.event(e.agent, e.ev); err != nil {
						return err
					}
				}
			}
		},
	}
}

// forwardTo returns a bus handler that hands events to evs until ctx is done,
// after which events are discarded so the subscription can drain.
func forwardTo(ctx context.Context, evs chan<- busEvent) func(string, task.Event) {
	return func(agent string, ev task.Event) {
		select {
		case evs <- busEvent{agent, ev}:
		case <-ctx.Done():
		}
	}
}
