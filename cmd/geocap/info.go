package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/biosim/geocap/internal/parent"
)

func newInfoCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "info <record-id>",
		Short: "Show capture metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "capture")
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

			info, err := app.Captures.Info(context.Background(), id)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(cmd, info)
			case "text":
				out := cmd.OutOrStdout()
				rec := info.Record
				fmt.Fprintf(out, "ID:        %d\n", rec.ID)
				fmt.Fprintf(out, "Parent:    %s\n", parent.Format(info.Parent))
				fmt.Fprintf(out, "Captured:  %s\n", rec.CapturedAt.Local().Format(time.RFC3339))
				fmt.Fprintf(out, "Location:  %s\n", locationText(&rec))
				fmt.Fprintf(out, "Image:     %s\n", rec.MediaRef)
				if info.MediaExists {
					fmt.Fprintf(out, "SHA-256:   %s\n", info.MediaHash)
				} else {
					fmt.Fprintln(out, "SHA-256:   (image file missing)")
				}
				if rec.Note != "" {
					fmt.Fprintf(out, "Note:      %s\n", rec.Note)
				}
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: text, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}
