package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gencraft/gencraft/internal/conversation"
)

// runDelete removes one conversation by id.
func runDelete(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: gencraft delete <id>")
	}
	id := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := setup()
	if err != nil {
		return err
	}

	if err := rt.store.Delete(ctx, id); err != nil {
		return err
	}

	// Forget the local marker if it pointed at the deleted conversation.
	if stateDir, dirErr := conversation.DefaultStateDir(); dirErr == nil {
		if current, loadErr := conversation.LoadCurrentID(stateDir); loadErr == nil && current == id {
			if clearErr := conversation.ClearCurrentID(stateDir); clearErr != nil {
				rt.logger.Warn("could not clear current conversation", "error", clearErr)
			}
		}
	}

	fmt.Printf("Deleted %s\n", id)
	return nil
}
