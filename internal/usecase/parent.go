package usecase

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/biosim/geocap/internal/media"
	"github.com/biosim/geocap/internal/parent"
	"github.com/biosim/geocap/internal/records"
)

type Parent struct {
	store  *records.Store
	media  *media.Store
	logger *slog.Logger
}

func NewParent(store *records.Store, mediaStore *media.Store, logger *slog.Logger) *Parent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Parent{store: store, media: mediaStore, logger: logger}
}

// Create adds a parent. An empty category takes the kind's default.
func (u *Parent) Create(ctx context.Context, kind, category, label, crop string) (parent.Parent, error) {
	k, err := parent.ParseKind(kind)
	if err != nil {
		return parent.Parent{}, err
	}
	c := k.DefaultCategory()
	if strings.TrimSpace(category) != "" {
		if c, err = parent.ParseCategory(k, category); err != nil {
			return parent.Parent{}, err
		}
	}
	return u.store.CreateParent(ctx, parent.Parent{Kind: k, Category: c, Label: label, Crop: crop})
}

// Summary is a parent with the number of captures it owns.
type Summary struct {
	parent.Parent
	Captures int64 `json:"captures"`
}

// List returns parents of kind, or all parents when kind is empty.
func (u *Parent) List(ctx context.Context, kind string) ([]Summary, error) {
	var k parent.Kind
	if kind != "" {
		parsed, err := parent.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		k = parsed
	}

	parents, err := u.store.ListParents(ctx, k)
	if err != nil {
		return nil, err
	}

	result := make([]Summary, 0, len(parents))
	for _, p := range parents {
		count, err := u.store.CaptureCount(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		result = append(result, Summary{Parent: p, Captures: count})
	}
	return result, nil
}

func (u *Parent) Get(ctx context.Context, id int64) (*Summary, error) {
	p, err := u.store.GetParent(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("parent %d: %w", id, ErrNotFound)
	}
	count, err := u.store.CaptureCount(ctx, id)
	if err != nil {
		return nil, err
	}
	return &Summary{Parent: *p, Captures: count}, nil
}

// Delete removes the parent, its records and its images. It returns the
// number of records removed.
func (u *Parent) Delete(ctx context.Context, id int64) (int64, error) {
	summary, err := u.Get(ctx, id)
	if err != nil {
		return 0, err
	}

	refs, err := u.store.MediaRefs(ctx, id)
	if err != nil {
		return 0, err
	}

	deleted, err := u.store.DeleteParent(ctx, id)
	if err != nil {
		return 0, err
	}
	if !deleted {
		return 0, fmt.Errorf("parent %d: %w", id, ErrNotFound)
	}

	// Records may point outside the parent directory when the media root
	// was moved.
	for _, ref := range refs {
		if err := media.Remove(ref); err != nil {
			u.logger.Warn("could not remove image file", "parent_id", id, "media_ref", ref, "error", err)
		}
	}
	if err := u.media.RemoveParent(summary.Parent); err != nil {
		u.logger.Warn("could not remove image directory", "parent_id", id, "error", err)
	}
	return summary.Captures, nil
}

// Orphans lists images in the parent's directory that no record points
// to, such as those kept after a failed save.
func (u *Parent) Orphans(ctx context.Context, id int64) ([]string, error) {
	summary, err := u.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	refs, err := u.store.MediaRefs(ctx, id)
	if err != nil {
		return nil, err
	}
	referenced := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		referenced[filepath.Clean(ref)] = struct{}{}
	}

	var orphans []string
	err = u.media.WalkParent(summary.Parent, func(path string, _ fs.DirEntry) error {
		if _, ok := referenced[filepath.Clean(path)]; !ok {
			orphans = append(orphans, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orphans, nil
}

// RemoveOrphans deletes the images Orphans reports and returns them.
func (u *Parent) RemoveOrphans(ctx context.Context, id int64) ([]string, error) {
	orphans, err := u.Orphans(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, path := range orphans {
		if err := media.Remove(path); err != nil {
			return nil, fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return orphans, nil
}
