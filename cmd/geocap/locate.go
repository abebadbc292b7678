package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
)

func newLocateCmd(c *cli) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "locate",
		Short: "Wait for a GPS fix and print it",
		Long:  "Check the configured location source. Prints the first fix received within --timeout and the last known fix.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open()
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			if app.Config.Location.NMEADevice == "" {
				return errors.New("no location source configured (set location.nmea_device)")
			}
			if !cmd.Flags().Changed("timeout") {
				timeout = app.Config.Location.Timeout
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			out := cmd.OutOrStdout()
			if fix, ok := app.Locator.BoundedFix(ctx, timeout); ok {
				fmt.Fprintf(out, "Fix:        %s\n", fix)
			} else {
				fmt.Fprintf(out, "Fix:        none within %s\n", timeout)
			}
			if fix, ok := app.Locator.LastKnownFix(ctx); ok {
				fmt.Fprintf(out, "Last known: %s", fix)
				if !fix.At.IsZero() {
					fmt.Fprintf(out, " (%s)", fix.At.Local().Format(time.RFC3339))
				}
				fmt.Fprintln(out)
			} else {
				fmt.Fprintln(out, "Last known: none")
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 0, "How long to wait for a fix (default location.timeout)")
	return cmd
}
