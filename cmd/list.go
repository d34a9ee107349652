package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// runList prints the user's conversations, one per line.
func runList() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup()
	if err != nil {
		return err
	}

	summaries, err := rt.store.List(ctx)
	if err != nil {
		return err
	}

	if len(summaries) == 0 {
		fmt.Println("No conversations yet. Start one with: gencraft chat")
		return nil
	}
	for _, s := range summaries {
		fmt.Printf("%s  %s\n", s.ID, s.Title)
	}
	return nil
}
