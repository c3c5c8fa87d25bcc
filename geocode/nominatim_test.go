package geocode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/team-monumental/monuments-and-memorials-sub000/errors"
	"github.com/team-monumental/monuments-and-memorials-sub000/ixgest/ingest"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	return ts
}

func TestReverseGeocode(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/reverse", r.URL.Path)
		assert.Equal(t, "jsonv2", r.URL.Query().Get("format"))
		assert.Equal(t, "38.8893", r.URL.Query().Get("lat"))
		assert.Equal(t, "-77.0502", r.URL.Query().Get("lon"))
		assert.Equal(t, DefaultUserAgent, r.Header.Get("User-Agent"))
		w.Write([]byte(`{
			"display_name": "Lincoln Memorial, Washington, District of Columbia, United States",
			"address": {"house_number": "2", "road": "Lincoln Memorial Circle Northwest", "city": "Washington", "state": "District of Columbia"}
		}`))
	})

	g, err := NewNominatim(ts.URL+"/", WithPrivateNetwork(), WithRate(0), WithLogger(zaptest.NewLogger(t).Sugar()))
	require.NoError(t, err)

	loc, err := g.ReverseGeocode(context.Background(), 38.8893, -77.0502)
	require.NoError(t, err)
	assert.Equal(t, ingest.Location{
		Address: "2 Lincoln Memorial Circle Northwest",
		City:    "Washington",
		State:   "District of Columbia",
	}, loc)
}

func TestReverseGeocode_Fallbacks(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"display_name": "Mount Rushmore", "address": {"town": "Keystone", "state": "South Dakota"}}`))
	})
	g, err := NewNominatim(ts.URL, WithPrivateNetwork(), WithRate(0))
	require.NoError(t, err)

	loc, err := g.ReverseGeocode(context.Background(), 43.88, -103.45)
	require.NoError(t, err)
	assert.Equal(t, "Mount Rushmore", loc.Address)
	assert.Equal(t, "Keystone", loc.City)
}

func TestReverseGeocode_NoResult(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"error": "Unable to geocode"}`))
	})
	g, err := NewNominatim(ts.URL, WithPrivateNetwork(), WithRate(0))
	require.NoError(t, err)

	_, err = g.ReverseGeocode(context.Background(), 0, 0)
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
}

func TestReverseGeocode_ServerError(t *testing.T) {
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	})
	g, err := NewNominatim(ts.URL, WithPrivateNetwork(), WithRate(0))
	require.NoError(t, err)

	_, err = g.ReverseGeocode(context.Background(), 1, 1)
	assert.Error(t, err)
}

func TestReverseGeocode_RateLimited(t *testing.T) {
	var calls atomic.Int32
	ts := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"display_name": "somewhere"}`))
	})
	g, err := NewNominatim(ts.URL, WithPrivateNetwork(), WithRate(0.5))
	require.NoError(t, err)

	_, err = g.ReverseGeocode(context.Background(), 1, 1)
	require.NoError(t, err)

	// The second call must wait two seconds for a token; the deadline expires first
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = g.ReverseGeocode(ctx, 1, 1)
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestNewNominatim_RejectsPrivateByDefault(t *testing.T) {
	_, err := NewNominatim("http://127.0.0.1:8080")
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))

	_, err = NewNominatim("https://nominatim.openstreetmap.org")
	assert.NoError(t, err)
}

func TestNominatimIsGeocoder(t *testing.T) {
	var _ ingest.Geocoder = (*Nominatim)(nil)
}
