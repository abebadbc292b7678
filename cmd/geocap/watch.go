package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/biosim/geocap/internal/capture"
	"github.com/biosim/geocap/internal/usecase"
)

// captureGrace is added to the location timeout when waiting for a
// running capture at exit.
const captureGrace = 10 * time.Second

const watchHelp = `Commands:
  <parent-id>   switch to another inspection or finding
  c [note]      take a capture for the current parent
  q             quit
`

func newWatchCmd(c *cli) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "watch <parent-id>",
		Short: "Follow the captures of a parent and take new ones interactively",
		Long:  "Print the capture list of a parent whenever it changes. Type another parent id to switch, \"c [note]\" to capture, \"q\" to quit.\n\n" + watchHelp,
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

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			var factory capture.SessionFactory
			if captures := app.CapturesFrom(from); captures.HasCamera() {
				factory = captures.SessionFactory(ctx)
			}
			registry := capture.NewRegistry(app.Records, factory, c.logger)
			defer registry.Close()

			w := &watcher{out: cmd.OutOrStdout(), errOut: cmd.ErrOrStderr(), registry: registry, parents: app.Parents}
			view, err := w.observe(ctx, parentID)
			if err != nil {
				return err
			}

			snapshots, cancel := view.Subscribe()
			printed := make(chan struct{})
			go func() {
				defer close(printed)
				w.printSnapshots(snapshots)
			}()

			fmt.Fprint(w.errOut, watchHelp)
			err = w.readCommands(ctx, cmd.InOrStdin())
			w.finishCaptures(app.Config.Location.Timeout + captureGrace)
			cancel()
			<-printed
			return err
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Import this image file instead of using the camera")
	return cmd
}

type watcher struct {
	out      io.Writer
	errOut   io.Writer
	registry *capture.Registry
	parents  *usecase.Parent

	started  []*capture.Session
	progress sync.WaitGroup
}

func (w *watcher) observe(ctx context.Context, parentID int64) (*capture.View, error) {
	if _, err := w.parents.Get(ctx, parentID); err != nil {
		return nil, err
	}
	return w.registry.Observe(parentID)
}

func (w *watcher) printSnapshots(snapshots <-chan capture.Snapshot) {
	for snap := range snapshots {
		switch {
		case snap.Loading:
			fmt.Fprintf(w.out, "-- parent %d: loading\n", snap.ParentID)
		case snap.Err != nil:
			color.New(color.FgRed).Fprintf(w.out, "-- parent %d: %v\n", snap.ParentID, snap.Err)
		default:
			fmt.Fprintf(w.out, "-- parent %d: %d capture(s)\n", snap.ParentID, len(snap.Records))
			for _, rec := range snap.Records {
				line := fmt.Sprintf("  #%d  %s  %s", rec.ID, rec.CapturedAt.Local().Format("2006-01-02 15:04:05"), locationText(&rec))
				if rec.Note != "" {
					line += "  " + rec.Note
				}
				fmt.Fprintln(w.out, line)
			}
		}
	}
}

func (w *watcher) readCommands(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return err
		case line := <-lines:
			quit, err := w.handle(ctx, strings.TrimSpace(line))
			if err != nil {
				fmt.Fprintf(w.errOut, "error: %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (w *watcher) handle(ctx context.Context, line string) (bool, error) {
	switch {
	case line == "":
		return false, nil
	case line == "q" || line == "quit":
		return true, nil
	case line == "c" || strings.HasPrefix(line, "c "):
		return false, w.capture(ctx, strings.TrimSpace(strings.TrimPrefix(line, "c")))
	default:
		id, err := parseID(line, "parent")
		if err != nil {
			return false, err
		}
		_, err = w.observe(ctx, id)
		return false, err
	}
}

func (w *watcher) capture(ctx context.Context, note string) error {
	session := w.registry.Session()
	if session == nil {
		return errors.New("no camera configured (set camera.command or restart with --from)")
	}
	if session.Current().Terminal() {
		if err := session.Reset(); err != nil {
			return err
		}
	}

	states, cancel := session.Subscribe()
	if err := session.Start(ctx, capture.WithNote(note)); err != nil {
		cancel()
		return err
	}
	w.started = append(w.started, session)

	w.progress.Add(1)
	go func() {
		defer w.progress.Done()
		defer cancel()
		for st := range states {
			switch st.Kind {
			case capture.Idle:
				continue
			case capture.Succeeded:
				stateColor(st.Kind).Fprintf(w.errOut, "capture %d stored (%s)\n", st.Record.ID, locationText(st.Record))
			case capture.Failed:
				stateColor(st.Kind).Fprintf(w.errOut, "capture failed: %s\n", st.Failure.Message)
			default:
				stateColor(st.Kind).Fprintf(w.errOut, "%s...\n", progressLabel(st.Kind))
			}
			if st.Terminal() {
				return
			}
		}
	}()
	return nil
}

// finishCaptures waits, at most timeout, for cycles still running so their
// records are saved before the store closes. Sessions left behind by a
// parent switch are waited for too.
func (w *watcher) finishCaptures(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	for _, session := range w.started {
		if session.Current().Terminal() {
			continue
		}
		fmt.Fprintln(w.errOut, "waiting for the capture in progress...")
		if _, err := session.Wait(ctx); err != nil {
			fmt.Fprintf(w.errOut, "capture still running at exit: %v\n", err)
			return
		}
	}
	w.progress.Wait()
}
