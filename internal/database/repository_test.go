package database

import (
	"context"
	"testing"
	"time"
)

func TestParentRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	dbCtx := setupTestDB(t)
	repo := NewParentRepository(dbCtx)

	crop := "tomato"
	id, err := repo.Create(ctx, "inspection", "insect", "aphids row 3", &crop)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected non-zero parent id")
	}

	fetched, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID returned error: %v", err)
	}
	if fetched == nil || fetched.Kind != "inspection" || fetched.Category != "insect" || fetched.Crop == nil || *fetched.Crop != "tomato" {
		t.Fatalf("unexpected parent %#v", fetched)
	}
	if fetched.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be populated")
	}

	if _, err := repo.Create(ctx, "finding", "problem", "leaf spots", nil); err != nil {
		t.Fatalf("Create finding returned error: %v", err)
	}

	all, err := repo.FindAll(ctx, "")
	if err != nil {
		t.Fatalf("FindAll error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 parents, got %d", len(all))
	}

	findings, err := repo.FindAll(ctx, "finding")
	if err != nil {
		t.Fatalf("FindAll finding error: %v", err)
	}
	if len(findings) != 1 || findings[0].Crop != nil {
		t.Fatalf("unexpected findings %#v", findings)
	}

	deleted, err := repo.Delete(ctx, id)
	if err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if !deleted {
		t.Fatalf("expected delete to remove record")
	}

	missing, err := repo.FindByID(ctx, id)
	if err != nil {
		t.Fatalf("FindByID after delete error: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil after delete, got %#v", missing)
	}
}

func TestCaptureRepositoryLifecycle(t *testing.T) {
	ctx := context.Background()
	dbCtx := setupTestDB(t)

	parents := NewParentRepository(dbCtx)
	captures := NewCaptureRepository(dbCtx)

	parentID, err := parents.Create(ctx, "inspection", "insect", "aphids", nil)
	if err != nil {
		t.Fatalf("parent creation failed: %v", err)
	}

	lat, lon := 10.123456789, -20.987654321
	note := "underside of leaves"
	capturedAt := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

	withFix, err := captures.Create(ctx, NewCaptureRecordRow{
		ParentID:   parentID,
		MediaRef:   "/media/a.jpg",
		CapturedAt: capturedAt,
		Latitude:   &lat,
		Longitude:  &lon,
		Note:       &note,
	})
	if err != nil {
		t.Fatalf("capture create failed: %v", err)
	}

	if _, err := captures.Create(ctx, NewCaptureRecordRow{
		ParentID:   parentID,
		MediaRef:   "/media/b.jpg",
		CapturedAt: capturedAt.Add(time.Minute),
	}); err != nil {
		t.Fatalf("capture create without fix failed: %v", err)
	}

	byID, err := captures.FindByID(ctx, withFix)
	if err != nil || byID == nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if byID.Latitude == nil || *byID.Latitude != lat || byID.Longitude == nil || *byID.Longitude != lon {
		t.Fatalf("location did not round-trip: %+v", byID)
	}
	if !byID.CapturedAt.Equal(capturedAt) {
		t.Fatalf("expected captured_at %s, got %s", capturedAt, byID.CapturedAt)
	}
	if byID.Note == nil || *byID.Note != note {
		t.Fatalf("unexpected note %+v", byID.Note)
	}

	list, err := captures.ListByParent(ctx, parentID)
	if err != nil {
		t.Fatalf("ListByParent failed: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 captures, got %d", len(list))
	}
	if list[0].MediaRef != "/media/b.jpg" {
		t.Fatalf("expected newest capture first, got %s", list[0].MediaRef)
	}
	if list[0].Latitude != nil || list[0].Longitude != nil {
		t.Fatalf("expected capture without location, got %+v", list[0])
	}

	refs, err := captures.MediaRefsByParent(ctx, parentID)
	if err != nil || len(refs) != 2 {
		t.Fatalf("MediaRefsByParent failed: %v refs=%v", err, refs)
	}

	deleted, err := captures.Delete(ctx, withFix)
	if err != nil || !deleted {
		t.Fatalf("Delete failed: %v deleted=%v", err, deleted)
	}

	counts, err := parents.Counts(ctx, parentID)
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts.CaptureCount != 1 {
		t.Fatalf("expected 1 capture left, got %d", counts.CaptureCount)
	}
}

func TestParentDeleteCascadesToCaptures(t *testing.T) {
	ctx := context.Background()
	dbCtx := setupTestDB(t)

	parents := NewParentRepository(dbCtx)
	captures := NewCaptureRepository(dbCtx)

	keep, err := parents.Create(ctx, "inspection", "fungus", "keep", nil)
	if err != nil {
		t.Fatalf("parent creation failed: %v", err)
	}
	drop, err := parents.Create(ctx, "finding", "harvest", "drop", nil)
	if err != nil {
		t.Fatalf("parent creation failed: %v", err)
	}

	for _, parentID := range []int64{keep, drop, drop} {
		if _, err := captures.Create(ctx, NewCaptureRecordRow{ParentID: parentID, MediaRef: "/m.jpg", CapturedAt: time.Now()}); err != nil {
			t.Fatalf("capture create failed: %v", err)
		}
	}

	if _, err := parents.Delete(ctx, drop); err != nil {
		t.Fatalf("parent delete failed: %v", err)
	}

	assertCount(t, dbCtx.DB, "capture_records", 1)

	removed, err := captures.DeleteByParent(ctx, keep)
	if err != nil {
		t.Fatalf("DeleteByParent failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed capture, got %d", removed)
	}
}

func TestCaptureRequiresExistingParent(t *testing.T) {
	ctx := context.Background()
	dbCtx := setupTestDB(t)

	captures := NewCaptureRepository(dbCtx)
	if _, err := captures.Create(ctx, NewCaptureRecordRow{ParentID: 999, MediaRef: "/m.jpg", CapturedAt: time.Now()}); err == nil {
		t.Fatalf("expected foreign key violation for unknown parent")
	}
}
