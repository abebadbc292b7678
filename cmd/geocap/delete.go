package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete a capture and its image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "capture")
			if err != nil {
				return err
			}

			if !force {
				ok, err := confirm(cmd, fmt.Sprintf("Delete capture %d and its image? (y/N) ", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
					return nil
				}
			}

			app, err := c.open()
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			deleted, err := app.Captures.Delete(context.Background(), id)
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("capture %d not found", id)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Deleted capture %d\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	return cmd
}
