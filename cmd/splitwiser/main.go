package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/mmynk/splitwiser-client/internal/client"
	"github.com/mmynk/splitwiser-client/internal/service"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		switch {
		case errors.Is(err, client.ErrSessionExpired), errors.Is(err, service.ErrNotLoggedIn):
			fmt.Fprintln(os.Stderr, "Session expired. Run `splitwiser login` to sign in again.")
		default:
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}
