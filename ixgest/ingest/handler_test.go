package ingest

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/team-monumental/monuments-and-memorials-sub000/db"
	"github.com/team-monumental/monuments-and-memorials-sub000/dedup"
	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	qtest "github.com/team-monumental/monuments-and-memorials-sub000/internal/testing"
	"github.com/team-monumental/monuments-and-memorials-sub000/internal/util"
	"github.com/team-monumental/monuments-and-memorials-sub000/monument"
	"github.com/team-monumental/monuments-and-memorials-sub000/pulse/async"
	"github.com/team-monumental/monuments-and-memorials-sub000/storage"
	"github.com/team-monumental/monuments-and-memorials-sub000/storage/objectstore"
)

// failingStore fails uploads for the named hints.
func failingStore(fail ...string) objectstore.ObjectStore {
	return objectstore.UploadFunc(func(_ context.Context, _ []byte, hint string) (string, error) {
		for _, f := range fail {
			if f == hint {
				return "", errors.Wrapf(errors.ErrUploadFailed, "bucket rejected %s", hint)
			}
		}
		return "https://cdn.example/" + hint, nil
	})
}

func runJob(t *testing.T, h *Handler, payload any) async.Snapshot {
	t.Helper()
	hr := async.NewHandlerRegistry()
	hr.Register(h)
	reg := async.NewRegistry(context.Background(), hr, zaptest.NewLogger(t).Sugar())

	id, err := reg.Submit(HandlerName, payload)
	require.NoError(t, err)
	reg.Wait()

	snap, err := reg.Poll(id)
	require.NoError(t, err)
	return snap
}

func images(names ...string) []monument.Image {
	out := make([]monument.Image, len(names))
	for i, n := range names {
		out[i] = monument.Image{Name: n, Data: []byte(n), ContentType: "image/png"}
	}
	return out
}

func TestIngestWithOneFailingUpload(t *testing.T) {
	conn := qtest.CreateTestDB(t)
	repo := storage.NewSQLRepository(conn, nil)
	h := NewHandler(repo, failingStore("b.png"), zaptest.NewLogger(t).Sugar())

	snap := runJob(t, h, Payload{Items: []Item{{
		Row: 1,
		Suggestion: &monument.Suggestion{
			Title:     "Obelisk",
			Address:   "1 Main St",
			Materials: []string{"Granite"},
			Tags:      []string{"War"},
			Images:    images("a.png", "b.png", "c.png"),
		},
	}}})

	require.True(t, snap.Completed)
	assert.Equal(t, 1.0, snap.Progress)

	result, ok := snap.Result.(*Result)
	require.True(t, ok)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 2, result.ImagesAttached)
	require.Len(t, result.Advisories, 1)
	assert.Contains(t, result.Advisories[0], "b.png")
	assert.Contains(t, result.Advisories[0], "1 of 3")

	row := result.Rows[0]
	assert.Equal(t, []string{"b.png"}, row.ImageFailures)
	require.Len(t, result.PartialUploads(), 1)

	var primaryURL string
	require.NoError(t, conn.QueryRow(`SELECT url FROM images WHERE is_primary = 1`).Scan(&primaryURL))
	assert.Equal(t, "https://cdn.example/a.png", primaryURL)

	var tags int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM monument_tags WHERE monument_id = ?`, row.RecordID).Scan(&tags))
	assert.Equal(t, 2, tags)
}

func TestIngestPrimaryIsFirstSuccessfulUpload(t *testing.T) {
	conn := qtest.CreateTestDB(t)
	h := NewHandler(storage.NewSQLRepository(conn, nil), failingStore("a.png"), nil)

	snap := runJob(t, h, &Payload{Items: []Item{{
		Row:        3,
		Suggestion: &monument.Suggestion{Title: "Obelisk", Images: images("a.png", "b.png")},
	}}})
	require.True(t, snap.Completed)

	var primaryURL string
	require.NoError(t, conn.QueryRow(`SELECT url FROM images WHERE is_primary = 1`).Scan(&primaryURL))
	assert.Equal(t, "https://cdn.example/b.png", primaryURL)

	result := snap.Result.(*Result)
	assert.Equal(t, 1, result.ImagesAttached)
	require.Len(t, result.Advisories, 1)
	assert.Contains(t, result.Advisories[0], "Row 3")
}

func TestIngestMaterialsReuseExisting(t *testing.T) {
	conn := qtest.CreateTestDB(t)
	h := NewHandler(storage.NewSQLRepository(conn, nil), failingStore(), nil)

	snap := runJob(t, h, Payload{Items: []Item{
		{Row: 1, Suggestion: &monument.Suggestion{Title: "A", Materials: []string{"Bronze"}}},
		{Row: 2, Suggestion: &monument.Suggestion{Title: "B", Materials: []string{"Bronze", "Stone"}}},
	}})
	require.True(t, snap.Completed)

	var materials int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM tags WHERE is_material = 1`).Scan(&materials))
	assert.Equal(t, 2, materials)

	result := snap.Result.(*Result)
	assert.Equal(t, 2, result.Inserted)
	assert.Empty(t, result.Advisories)
	assert.Equal(t, []int{1, 2}, []int{result.Rows[0].Row, result.Rows[1].Row})
}

// flakyRepo fails Save for titles listed in failTitles.
type flakyRepo struct {
	storage.Repository
	failTitles map[string]error
}

func (r *flakyRepo) Save(ctx context.Context, s *monument.Suggestion) (int64, error) {
	if err, ok := r.failTitles[s.Title]; ok {
		return 0, err
	}
	return r.Repository.Save(ctx, s)
}

func TestIngestSaveFailureSkipsRow(t *testing.T) {
	conn := qtest.CreateTestDB(t)
	repo := &flakyRepo{
		Repository: storage.NewSQLRepository(conn, nil),
		failTitles: map[string]error{"Broken": errors.New("constraint failed")},
	}
	h := NewHandler(repo, failingStore(), nil)

	snap := runJob(t, h, Payload{Items: []Item{
		{Row: 1, Suggestion: &monument.Suggestion{Title: "Broken"}},
		{Row: 2, Suggestion: &monument.Suggestion{Title: "Fine"}},
	}})
	require.True(t, snap.Completed)

	result := snap.Result.(*Result)
	assert.Equal(t, 1, result.Inserted)
	assert.Equal(t, 1, result.Failed)
	assert.False(t, result.Rows[0].Inserted)
	assert.Contains(t, result.Rows[0].Error, "constraint failed")
	assert.True(t, result.Rows[1].Inserted)
}

// unrecordedImageRepo fails SaveImage for the listed URLs.
type unrecordedImageRepo struct {
	storage.Repository
	failURLs map[string]bool
}

func (r *unrecordedImageRepo) SaveImage(ctx context.Context, monumentID int64, img storage.ImageRecord) (int64, error) {
	if r.failURLs[img.URL] {
		return 0, errors.New("database is locked")
	}
	return r.Repository.SaveImage(ctx, monumentID, img)
}

func TestIngestReportsUploadedButUnrecordedImage(t *testing.T) {
	conn := qtest.CreateTestDB(t)
	repo := &unrecordedImageRepo{
		Repository: storage.NewSQLRepository(conn, nil),
		failURLs:   map[string]bool{"https://cdn.example/b.png": true},
	}
	h := NewHandler(repo, failingStore("c.png"), zaptest.NewLogger(t).Sugar())

	snap := runJob(t, h, Payload{Items: []Item{{
		Row:        4,
		Suggestion: &monument.Suggestion{Title: "Obelisk", Images: images("a.png", "b.png", "c.png")},
	}}})
	require.True(t, snap.Completed)

	result := snap.Result.(*Result)
	row := result.Rows[0]
	assert.Equal(t, 1, row.ImagesAttached)
	assert.Equal(t, []string{"b.png", "c.png"}, row.ImageFailures)
	assert.Equal(t, []string{"https://cdn.example/b.png"}, row.UnrecordedImages)

	require.Len(t, result.Advisories, 1)
	assert.Contains(t, result.Advisories[0], "2 of 3 images could not be attached")
	assert.Contains(t, result.Advisories[0], "uploaded but not recorded: https://cdn.example/b.png")
	assert.NotContains(t, result.Advisories[0], "cdn.example/c.png")

	var recorded int
	require.NoError(t, conn.QueryRow(`SELECT COUNT(*) FROM images`).Scan(&recorded))
	assert.Equal(t, 1, recorded)
}

func TestIngestClosedDatabaseLeavesJobRunning(t *testing.T) {
	conn := qtest.CreateTestDB(t)
	repo := &flakyRepo{
		Repository: storage.NewSQLRepository(conn, nil),
		failTitles: map[string]error{"A": errors.Wrap(db.ErrDatabaseClosed, "save")},
	}
	h := NewHandler(repo, failingStore(), nil)

	snap := runJob(t, h, Payload{Items: []Item{
		{Row: 1, Suggestion: &monument.Suggestion{Title: "A"}},
	}})
	assert.Equal(t, async.JobStatusRunning, snap.Status)
	assert.Contains(t, snap.Error, "database is closed")
	assert.Nil(t, snap.Result)
}

func TestIngestRejectsUnknownPayload(t *testing.T) {
	h := NewHandler(nil, nil, nil)
	snap := runJob(t, h, "not a payload")
	assert.False(t, snap.Completed)
	assert.Contains(t, snap.Error, "unexpected payload type")
}

func TestIngestDuplicateAdvisory(t *testing.T) {
	conn := qtest.CreateTestDB(t)
	repo := storage.NewSQLRepository(conn, nil)
	existing, err := repo.Save(context.Background(), &monument.Suggestion{Title: "Lincoln Memorial", Address: "2 Lincoln Memorial Cir NW"})
	require.NoError(t, err)

	h := NewHandler(repo, failingStore(), nil, WithProbe(dedup.NewProbe(repo, nil)))
	snap := runJob(t, h, Payload{Items: []Item{
		{Row: 1, Suggestion: &monument.Suggestion{Title: "lincoln memorial", Address: "2 Lincoln Memorial Cir NW"}},
	}})
	require.True(t, snap.Completed)

	row := snap.Result.(*Result).Rows[0]
	assert.True(t, row.Inserted, "duplicates never block insertion")
	assert.Equal(t, []monument.Ref{{ID: existing, Title: "Lincoln Memorial"}}, row.Duplicates)
}

func TestIngestReverseGeocodes(t *testing.T) {
	conn := qtest.CreateTestDB(t)
	repo := storage.NewSQLRepository(conn, nil)

	var mu sync.Mutex
	var calls int
	geo := GeocoderFunc(func(_ context.Context, lat, lon float64) (Location, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if lat > 80 {
			return Location{}, errors.New("no coverage")
		}
		return Location{Address: "1 Liberty Island", City: "New York", State: "NY"}, nil
	})
	h := NewHandler(repo, failingStore(), nil, WithGeocoder(geo))

	snap := runJob(t, h, Payload{Items: []Item{
		{Row: 1, Suggestion: &monument.Suggestion{Title: "Statue", Latitude: util.Ptr(40.6892), Longitude: util.Ptr(-74.0445), State: "New York"}},
		{Row: 2, Suggestion: &monument.Suggestion{Title: "Polar", Latitude: util.Ptr(89.0), Longitude: util.Ptr(0.0)}},
		{Row: 3, Suggestion: &monument.Suggestion{Title: "Has Address", Address: "5 Elm St", Latitude: util.Ptr(1.0), Longitude: util.Ptr(1.0)}},
	}})
	require.True(t, snap.Completed)
	assert.Equal(t, 2, calls)

	result := snap.Result.(*Result)
	assert.Equal(t, 3, result.Inserted)
	assert.Empty(t, result.Rows[0].Notes)
	require.Len(t, result.Rows[1].Notes, 1)
	assert.Contains(t, result.Rows[1].Notes[0], "no coverage")

	rec, err := repo.FindByID(context.Background(), result.Rows[0].RecordID)
	require.NoError(t, err)
	assert.Equal(t, "1 Liberty Island", rec.Address)
	assert.Equal(t, "New York", rec.City)
	assert.Equal(t, "New York", rec.State)
}
