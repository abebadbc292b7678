package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/biosim/geocap/internal/capture"
)

func newListCmd(c *cli) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "list <parent-id>",
		Short: "List the captures of an inspection or finding",
		Args:  cobra.ExactArgs(1),
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

			recs, err := app.Captures.List(context.Background(), parentID)
			if err != nil {
				return err
			}

			switch format {
			case "json":
				return outputJSON(cmd, recs)
			case "table":
				outputRecordTable(cmd, recs)
				return nil
			default:
				return fmt.Errorf("invalid format: %s (valid values: table, json)", format)
			}
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	return cmd
}

func outputJSON(cmd *cobra.Command, v any) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func getTerminalWidth() int {
	// Try to get terminal width from stdout
	if width, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && width > 0 {
		return width
	}
	return 80
}

// wrapString wraps a string to fit within maxWidth, accounting for multi-byte characters
func wrapString(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return s
	}

	s = strings.TrimSpace(s)
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}

	var result strings.Builder
	var currentLine strings.Builder
	currentWidth := 0

	for _, r := range s {
		charWidth := runewidth.RuneWidth(r)
		if currentWidth+charWidth > maxWidth && currentWidth > 0 {
			result.WriteString(currentLine.String())
			result.WriteString("\n")
			currentLine.Reset()
			currentWidth = 0
		}
		currentLine.WriteRune(r)
		currentWidth += charWidth
	}

	if currentLine.Len() > 0 {
		result.WriteString(currentLine.String())
	}
	return result.String()
}

// recordColumns holds the widths of the flexible columns.
type recordColumns struct {
	file       int
	note       int
	shortDate  bool
	dateLayout string
}

// calculateRecordColumns shares what is left of the terminal between the
// file name and the note. Narrow terminals get a shorter date.
func calculateRecordColumns(termWidth int, recs []capture.Record) recordColumns {
	const (
		idWidth       = 6
		locationWidth = 23 // "-33.448890, -70.669266"
		borderPadding = 5 * 3
	)

	cols := recordColumns{dateLayout: "2006-01-02 15:04:05"}
	dateWidth := 19

	available := termWidth - borderPadding - idWidth - locationWidth - dateWidth
	if available < 40 {
		cols.shortDate = true
		cols.dateLayout = "01-02 15:04"
		available += dateWidth - 11
	}

	maxFile := 0
	for _, rec := range recs {
		if w := runewidth.StringWidth(filepath.Base(rec.MediaRef)); w > maxFile {
			maxFile = w
		}
	}

	cols.file = maxFile
	if cols.file > available/2 {
		cols.file = available / 2
	}
	if cols.file < 12 {
		cols.file = 12
	}

	cols.note = available - cols.file
	if cols.note < 10 {
		cols.note = 10
	}
	return cols
}

func outputRecordTable(cmd *cobra.Command, recs []capture.Record) {
	t := table.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(table.StyleLight)

	cols := calculateRecordColumns(getTerminalWidth(), recs)

	// Content is wrapped/truncated before it is added; go-pretty's WidthMax
	// miscounts multi-byte characters.
	t.AppendHeader(table.Row{"ID", "Captured", "Location", "File", "Note"})
	for _, rec := range recs {
		t.AppendRow(table.Row{
			rec.ID,
			rec.CapturedAt.Local().Format(cols.dateLayout),
			locationText(&rec),
			wrapString(filepath.Base(rec.MediaRef), cols.file),
			runewidth.Truncate(rec.Note, cols.note, "..."),
		})
	}
	t.Render()
}
