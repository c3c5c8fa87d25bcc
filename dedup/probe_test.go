package dedup

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/internal/util"
	"github.com/team-monumental/monuments-and-memorials-sub000/monument"
)

type stubFinder struct {
	records []monument.Record
	err     error
	queries []monument.SimilarQuery
}

func (s *stubFinder) FindSimilar(_ context.Context, q monument.SimilarQuery) ([]monument.Record, error) {
	s.queries = append(s.queries, q)
	return s.records, s.err
}

func TestFindLikelyDuplicates(t *testing.T) {
	finder := &stubFinder{records: []monument.Record{
		{ID: 1, Title: "Lincoln Memorial", Latitude: util.Ptr(38.8893), Longitude: util.Ptr(-77.0502)},
		{ID: 2, Title: "Lincoln Memorial", Latitude: util.Ptr(40.0), Longitude: util.Ptr(-75.0)},
		{ID: 3, Title: "Jefferson Memorial", Latitude: util.Ptr(38.8893), Longitude: util.Ptr(-77.0502)},
		{ID: 4, Title: "The Lincoln Memorial", Address: "2 Lincoln Memorial Cir NW"},
	}}
	probe := NewProbe(finder, zaptest.NewLogger(t).Sugar())

	refs, err := probe.FindLikelyDuplicates(context.Background(), "LINCOLN  memorial!", util.Ptr(38.8895), util.Ptr(-77.0500), "")
	require.NoError(t, err)

	assert.Equal(t, []monument.Ref{
		{ID: 1, Title: "Lincoln Memorial"},
		{ID: 4, Title: "The Lincoln Memorial"},
	}, refs)

	require.Len(t, finder.queries, 1)
	assert.Equal(t, "lincoln memorial", finder.queries[0].TitleKey)
	assert.Equal(t, DefaultTolerance, finder.queries[0].Tolerance)
}

func TestFindLikelyDuplicatesStrict(t *testing.T) {
	finder := &stubFinder{records: []monument.Record{
		{ID: 1, Title: "Lincoln Memorial"},
		{ID: 4, Title: "The Lincoln Memorial"},
	}}
	probe := NewProbe(finder, nil, WithStrict(true))

	refs, err := probe.FindLikelyDuplicates(context.Background(), "Lincoln Memorial", nil, nil, "")
	require.NoError(t, err)
	assert.Equal(t, []monument.Ref{{ID: 1, Title: "Lincoln Memorial"}}, refs)
}

func TestFindLikelyDuplicatesEmptyTitle(t *testing.T) {
	finder := &stubFinder{}
	probe := NewProbe(finder, nil)

	refs, err := probe.FindLikelyDuplicates(context.Background(), " !! ", nil, nil, "")
	require.NoError(t, err)
	assert.Empty(t, refs)
	assert.Empty(t, finder.queries)
}

func TestFindLikelyDuplicatesFinderError(t *testing.T) {
	probe := NewProbe(&stubFinder{err: errors.New("database is locked")}, nil)

	_, err := probe.FindLikelyDuplicates(context.Background(), "Obelisk", nil, nil, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")
}

func TestSetParams(t *testing.T) {
	probe := NewProbe(&stubFinder{}, nil, WithTolerance(0.5))
	tol, strict := probe.Params()
	assert.Equal(t, 0.5, tol)
	assert.False(t, strict)

	probe.SetParams(0.01, true)
	tol, strict = probe.Params()
	assert.Equal(t, 0.01, tol)
	assert.True(t, strict)
}

func TestMatches(t *testing.T) {
	key := monument.NormalizeTitle("Obelisk")
	tests := []struct {
		name  string
		query monument.SimilarQuery
		rec   monument.Record
		want  bool
	}{
		{
			name:  "no location on either side",
			query: monument.SimilarQuery{TitleKey: key},
			rec:   monument.Record{Title: "Obelisk"},
			want:  true,
		},
		{
			name:  "query location but record has none",
			query: monument.SimilarQuery{TitleKey: key, Address: "1 Main St", Latitude: util.Ptr(1.0)},
			rec:   monument.Record{Title: "Obelisk"},
			want:  true,
		},
		{
			name:  "address equal ignoring case and spacing",
			query: monument.SimilarQuery{TitleKey: key, Address: "1  Main St"},
			rec:   monument.Record{Title: "obelisk", Address: "1 main st"},
			want:  true,
		},
		{
			name:  "address differs",
			query: monument.SimilarQuery{TitleKey: key, Address: "1 Main St"},
			rec:   monument.Record{Title: "Obelisk", Address: "9 Elm St"},
			want:  false,
		},
		{
			name:  "address differs but coordinates agree",
			query: monument.SimilarQuery{TitleKey: key, Address: "1 Main St", Latitude: util.Ptr(10.0), Tolerance: 0.01},
			rec:   monument.Record{Title: "Obelisk", Address: "9 Elm St", Latitude: util.Ptr(10.005)},
			want:  true,
		},
		{
			name:  "latitude only, outside tolerance",
			query: monument.SimilarQuery{TitleKey: key, Latitude: util.Ptr(10.0), Tolerance: 0.001},
			rec:   monument.Record{Title: "Obelisk", Latitude: util.Ptr(10.01), Longitude: util.Ptr(5.0)},
			want:  false,
		},
		{
			name:  "longitude nil does not constrain",
			query: monument.SimilarQuery{TitleKey: key, Latitude: util.Ptr(10.0), Tolerance: 0.001},
			rec:   monument.Record{Title: "Obelisk", Latitude: util.Ptr(10.0005), Longitude: util.Ptr(80.0)},
			want:  true,
		},
		{
			name:  "title mismatch",
			query: monument.SimilarQuery{TitleKey: key},
			rec:   monument.Record{Title: "Fountain"},
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Matches(tt.query, tt.rec))
		})
	}
}
