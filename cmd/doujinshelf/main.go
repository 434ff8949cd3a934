// Command doujinshelf manages a local manga and doujinshi library.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/listenupapp/doujinshelf/internal/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.KindOf(err) != errors.KindCancellation {
			fmt.Fprintln(os.Stderr, "error:", errorMessage(err))
		}
		stop()
		os.Exit(1)
	}
}

// errorMessage prefers the short domain message; usage errors from cobra
// are shown as they are.
func errorMessage(err error) string {
	var e *errors.Error
	if errors.As(err, &e) {
		return errors.UserMessage(err)
	}
	return err.Error()
}
