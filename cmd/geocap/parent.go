package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/biosim/geocap/internal/parent"
	"github.com/biosim/geocap/internal/usecase"
)

func newParentCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parent",
		Short: "Manage inspections and findings",
	}

	cmd.AddCommand(newParentAddCmd(c))
	cmd.AddCommand(newParentListCmd(c))
	cmd.AddCommand(newParentDeleteCmd(c))
	cmd.AddCommand(newParentOrphansCmd(c))
	return cmd
}

func newParentAddCmd(c *cli) *cobra.Command {
	var (
		category string
		crop     string
		format   string
	)

	cmd := &cobra.Command{
		Use:   "add <inspection|finding> <label>",
		Short: "Create an inspection or finding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.open()
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			p, err := app.Parents.Create(context.Background(), args[0], category, args[1], crop)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(cmd, usecase.Summary{Parent: p})
			case "text":
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", parent.Format(p))
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: text, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Pest type (insect, fungus, bacteria, virus, mite, nematode, other) or finding type (observation, problem, improvement, harvest, growth)")
	cmd.Flags().StringVar(&crop, "crop", "", "Crop the parent belongs to")
	cmd.Flags().StringVar(&format, "format", "text", "Output format: text or json")
	return cmd
}

func newParentListCmd(c *cli) *cobra.Command {
	var (
		kind   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List inspections and findings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.open()
			if err != nil {
				return err
			}
			defer func() {
				_ = app.Close()
			}()

			summaries, err := app.Parents.List(context.Background(), kind)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(cmd, summaries)
			case "table":
				outputParentTable(cmd, summaries)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "Only list this kind: inspection or finding")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

func outputParentTable(cmd *cobra.Command, summaries []usecase.Summary) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"ID", "Kind", "Category", "Label", "Crop", "Captures", "Created"})

	labelWidth := getTerminalWidth() - 82
	if labelWidth < 15 {
		labelWidth = 15
	}

	for _, s := range summaries {
		t.AppendRow(table.Row{
			s.ID,
			s.Kind,
			s.Category,
			runewidth.Truncate(s.Label, labelWidth, "..."),
			s.Crop,
			s.Captures,
			s.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	t.Render()
}

func newParentDeleteCmd(c *cli) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete <parent-id>",
		Short: "Delete a parent with all its captures and images",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "parent")
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

			ctx := context.Background()
			summary, err := app.Parents.Get(ctx, id)
			if err != nil {
				return err
			}

			if !force {
				message := fmt.Sprintf("Delete %s and its %d capture(s)? Images are removed from disk. (y/N) ", parent.Format(summary.Parent), summary.Captures)
				ok, err := confirm(cmd, message)
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Deletion cancelled")
					return nil
				}
			}

			removed, err := app.Parents.Delete(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (%d capture(s))\n", parent.Format(summary.Parent), removed)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Skip confirmation prompt")
	return cmd
}

func newParentOrphansCmd(c *cli) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "orphans <parent-id>",
		Short: "List images of a parent that no capture refers to",
		Long:  "List image files kept in a parent's directory without a capture record, for example after a failed save. --remove deletes them.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0], "parent")
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

			ctx := context.Background()
			var paths []string
			if remove {
				paths, err = app.Parents.RemoveOrphans(ctx, id)
			} else {
				paths, err = app.Parents.Orphans(ctx, id)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, path := range paths {
				fmt.Fprintln(out, path)
			}
			switch {
			case len(paths) == 0:
				fmt.Fprintln(cmd.ErrOrStderr(), "No orphaned images")
			case remove:
				fmt.Fprintf(cmd.ErrOrStderr(), "Removed %d image(s)\n", len(paths))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "Delete the orphaned images")
	return cmd
}

func confirm(cmd *cobra.Command, message string) (bool, error) {
	reader := bufio.NewReader(cmd.InOrStdin())
	fmt.Fprint(cmd.ErrOrStderr(), message)
	answer, err := reader.ReadString('\n')
	if err != nil && answer == "" {
		return false, err
	}
	return strings.TrimSpace(strings.ToLower(answer)) == "y", nil
}
