package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/biosim/geocap/internal/capture"
)

func newCaptureCmd(c *cli) *cobra.Command {
	var (
		note   string
		from   string
		format string
		quiet  bool
	)

	cmd := &cobra.Command{
		Use:   "capture <parent-id>",
		Short: "Take a geo-tagged photo for an inspection or finding",
		Long: "Take a photo with the configured camera command (or import one with --from), " +
			"wait a bounded time for a GPS fix and store the capture.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := parseID(args[0], "parent")
			if err != nil {
				return err
			}

			app, err := c.open()
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			session, err := app.CapturesFrom(from).NewSession(ctx, parentID)
			if err != nil {
				return err
			}

			states, cancel := session.Subscribe()
			defer cancel()

			if err := session.Start(ctx, capture.WithNote(note)); err != nil {
				return err
			}

			var final capture.State
			for st := range states {
				if !quiet && st.Kind != capture.Idle {
					stateColor(st.Kind).Fprintf(cmd.ErrOrStderr(), "%s...\n", progressLabel(st.Kind))
				}
				if st.Terminal() {
					final = st
					break
				}
			}

			if final.Kind == capture.Failed {
				return final.Failure
			}
			if final.Record == nil {
				return errors.New("capture ended without a record")
			}

			switch format {
			case "json":
				return outputJSON(cmd, final.Record)
			case "text":
				fmt.Fprintf(cmd.OutOrStdout(), "Stored capture %d at %s (%s)\n", final.Record.ID, final.Record.MediaRef, locationText(final.Record))
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: text, json)", format)
			}
		},
	}

	cmd.Flags().StringVarP(&note, "note", "n", "", "Note stored with the capture")
	cmd.Flags().StringVar(&from, "from", "", "Import this image file instead of using the camera")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress")
	return cmd
}

func stateColor(kind capture.StateKind) *color.Color {
	switch kind {
	case capture.Succeeded:
		return color.New(color.FgGreen)
	case capture.Failed:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgCyan)
	}
}

func progressLabel(kind capture.StateKind) string {
	switch kind {
	case capture.Capturing:
		return "Capturing image"
	case capture.AwaitingLocation:
		return "Waiting for GPS fix"
	case capture.Persisting:
		return "Saving"
	case capture.Succeeded:
		return "Done"
	case capture.Failed:
		return "Failed"
	default:
		return kind.String()
	}
}

func locationText(rec *capture.Record) string {
	if rec.Location == nil {
		return "no location"
	}
	return fmt.Sprintf("%.6f, %.6f", rec.Location.Latitude, rec.Location.Longitude)
}
