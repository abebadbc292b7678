package usecase

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/biosim/geocap/internal/camera"
	"github.com/biosim/geocap/internal/capture"
	"github.com/biosim/geocap/internal/database"
	"github.com/biosim/geocap/internal/geo"
	"github.com/biosim/geocap/internal/media"
	"github.com/biosim/geocap/internal/parent"
	"github.com/biosim/geocap/internal/records"
)

type fixture struct {
	store   *records.Store
	media   *media.Store
	parents *Parent
	source  string
}

func setup(t *testing.T) fixture {
	t.Helper()
	dbCtx, err := database.CreateDatabase(":memory:")
	require.NoError(t, err)
	store := records.NewStore(dbCtx, nil)
	t.Cleanup(func() {
		store.Close()
		_ = database.CloseDatabase(dbCtx)
	})

	dir := t.TempDir()
	source := filepath.Join(dir, "DCIM_0001.jpg")
	require.NoError(t, os.WriteFile(source, []byte("jpeg-bytes"), 0o600))

	mediaStore := media.NewStore(filepath.Join(dir, "media"))
	return fixture{
		store:   store,
		media:   mediaStore,
		parents: NewParent(store, mediaStore, nil),
		source:  source,
	}
}

func (f fixture) capture(source geo.Source, sinkSource string) *Capture {
	return NewCapture(f.store, f.media, camera.NewFileSink(sinkSource), geo.NewProvider(source, nil),
		CaptureOptions{LocationTimeout: 80 * time.Millisecond}, nil)
}

func TestTakeStoresGeoTaggedRecord(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.parents.Create(ctx, "inspection", "", "aphids", "tomato")
	require.NoError(t, err)

	uc := f.capture(geo.NewStaticSource(geo.Fix{Latitude: 10, Longitude: 20}, 10*time.Millisecond), f.source)
	rec, err := uc.Take(ctx, p.ID, "row 3")
	require.NoError(t, err)

	require.NotNil(t, rec.Location)
	assert.Equal(t, capture.Location{Latitude: 10, Longitude: 20}, *rec.Location)
	assert.Equal(t, "row 3", rec.Note)
	assert.True(t, media.Exists(rec.MediaRef))
	assert.Equal(t, f.media.ParentDir(p), filepath.Dir(rec.MediaRef))

	info, err := uc.Info(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, info.MediaExists)
	assert.Len(t, info.MediaHash, 64)
	assert.Equal(t, p.ID, info.Parent.ID)

	list, err := uc.List(ctx, p.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestTakeWithoutSignal(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.parents.Create(ctx, "finding", "", "leaf spot", "")
	require.NoError(t, err)

	rec, err := f.capture(geo.NoSignal(), f.source).Take(ctx, p.ID, "")
	require.NoError(t, err)
	assert.Nil(t, rec.Location)
}

func TestTakeReportsCaptureFailure(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.parents.Create(ctx, "inspection", "", "mites", "")
	require.NoError(t, err)

	_, err = f.capture(geo.NoSignal(), filepath.Join(t.TempDir(), "missing.jpg")).Take(ctx, p.ID, "")
	var failure *capture.Failure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, capture.CaptureFailed, failure.Kind)
	assert.ErrorIs(t, err, camera.ErrDeviceUnavailable)

	count, err := f.store.CaptureCount(ctx, p.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTakeUnknownParent(t *testing.T) {
	f := setup(t)

	_, err := f.capture(geo.NoSignal(), f.source).Take(context.Background(), 99, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteRecordRemovesImage(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.parents.Create(ctx, "inspection", "", "thrips", "")
	require.NoError(t, err)

	uc := f.capture(geo.NoSignal(), f.source)
	rec, err := uc.Take(ctx, p.ID, "")
	require.NoError(t, err)

	deleted, err := uc.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoFileExists(t, rec.MediaRef)

	deleted, err = uc.Delete(ctx, rec.ID)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = uc.Info(ctx, rec.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteParentRemovesRecordsAndImages(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.parents.Create(ctx, "inspection", "", "blight", "potato")
	require.NoError(t, err)

	uc := f.capture(geo.NoSignal(), f.source)
	for range 2 {
		_, err := uc.Take(ctx, p.ID, "")
		require.NoError(t, err)
	}

	summaries, err := f.parents.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, int64(2), summaries[0].Captures)

	removed, err := f.parents.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
	assert.NoDirExists(t, f.media.ParentDir(p))

	_, err = f.parents.Delete(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteParentRemovesImagesOutsideItsDirectory(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.parents.Create(ctx, "finding", "", "rust", "wheat")
	require.NoError(t, err)

	moved := filepath.Join(t.TempDir(), "HALLAZGO_1_20240101_101500_abcd1234.jpg")
	require.NoError(t, os.WriteFile(moved, []byte("jpeg"), 0o600))
	_, err = f.store.Insert(ctx, capture.NewRecord{ParentID: p.ID, MediaRef: moved, CapturedAt: time.Now()})
	require.NoError(t, err)

	removed, err := f.parents.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.NoFileExists(t, moved)
}

func TestParentOrphans(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.parents.Create(ctx, "inspection", "", "thrips", "onion")
	require.NoError(t, err)

	rec, err := f.capture(geo.NoSignal(), f.source).Take(ctx, p.ID, "")
	require.NoError(t, err)

	kept, err := f.media.Allocate(p, time.Now())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(kept, []byte("jpeg"), 0o600))

	orphans, err := f.parents.Orphans(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{kept}, orphans)

	removed, err := f.parents.RemoveOrphans(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{kept}, removed)
	assert.NoFileExists(t, kept)
	assert.FileExists(t, rec.MediaRef)

	orphans, err = f.parents.Orphans(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	_, err = f.parents.Orphans(ctx, p.ID+100)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestParentCreateValidation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.parents.Create(ctx, "harvest", "", "x", "")
	assert.Error(t, err)

	_, err = f.parents.Create(ctx, "finding", "", "   ", "")
	assert.Error(t, err)

	_, err = f.parents.Create(ctx, "inspection", "harvest", "x", "")
	assert.ErrorIs(t, err, parent.ErrUnknownCategory)

	p, err := f.parents.Create(ctx, "finding", "Growth", "new shoots", "")
	require.NoError(t, err)
	assert.Equal(t, parent.CategoryGrowth, p.Category)

	p, err = f.parents.Create(ctx, "inspection", "", "aphids", "")
	require.NoError(t, err)
	assert.Equal(t, parent.CategoryInsect, p.Category)

	_, err = f.parents.List(ctx, "weed")
	assert.Error(t, err)
}

func TestSessionFactoryWithRegistry(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.parents.Create(ctx, "inspection", "", "whitefly", "")
	require.NoError(t, err)

	uc := f.capture(geo.NoSignal(), f.source)
	reg := capture.NewRegistry(f.store, uc.SessionFactory(ctx), nil)
	defer reg.Close()

	_, err = reg.Observe(404)
	assert.ErrorIs(t, err, ErrNotFound)

	view, err := reg.Observe(p.ID)
	require.NoError(t, err)
	session := reg.Session()
	require.NotNil(t, session)

	require.NoError(t, session.Start(ctx))
	final, err := session.Wait(ctx)
	require.NoError(t, err)
	require.Equal(t, capture.Succeeded, final.Kind)

	require.Eventually(t, func() bool {
		s := view.Snapshot()
		return len(s.Records) == 1 && s.Records[0].ID == final.Record.ID
	}, 2*time.Second, 5*time.Millisecond)
}

func TestTakeWithoutCamera(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	p, err := f.parents.Create(ctx, "inspection", "", "aphids", "")
	require.NoError(t, err)

	uc := NewCapture(f.store, f.media, nil, nil, CaptureOptions{}, nil)
	assert.False(t, uc.HasCamera())
	_, err = uc.Take(ctx, p.ID, "")
	assert.ErrorIs(t, err, ErrNoCamera)

	imported := uc.WithSink(camera.NewFileSink(f.source))
	assert.True(t, imported.HasCamera())
	assert.False(t, uc.HasCamera())
	rec, err := imported.Take(ctx, p.ID, "")
	require.NoError(t, err)
	assert.Nil(t, rec.Location)
}
