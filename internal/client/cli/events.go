package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/dmitrijs2005/filetrade/internal/client/repositories/events"
)

func (a *App) printEvent(e events.Event) {
	a.printf("#%d %s %s %s\n", e.Seq, e.At.Format("2006-01-02 15:04:05"), e.Kind, e.Data)
}

func (a *App) Sync(ctx context.Context, _ []string) error {
	n, err := a.marketService.SyncEvents(ctx)
	if err != nil {
		return err
	}
	a.printf("%d new events\n", n)
	return nil
}

// Events lists the local index, optionally for one offering. Run "sync"
// first to bring it up to date.
func (a *App) Events(ctx context.Context, args []string) error {
	var f events.Filter
	if len(args) > 0 {
		id, err := parseUint(args[0])
		if err != nil {
			return err
		}
		f.OfferingID = id
	}
	list, err := a.marketService.LocalEvents(ctx, f)
	if err != nil {
		return err
	}
	for _, e := range list {
		a.printEvent(e)
	}
	if len(list) == 0 {
		a.printf("No events\n")
	}
	return nil
}

// Watch follows live events until interrupted.
func (a *App) Watch(ctx context.Context, _ []string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	a.printf("Watching events, press Ctrl+C to stop\n")
	err := a.marketService.Follow(ctx, func(e events.Event) error {
		a.printEvent(e)
		return nil
	})
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
