package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/handwerk-leads/leads-cli/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", WithBaseURL(srv.URL), WithRateLimit(0))
}

func TestGeocode(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/geocode/json", r.URL.Path)
		assert.Equal(t, "München, Germany", r.URL.Query().Get("address"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		w.Write([]byte(`{
			"status": "OK",
			"results": [{"geometry": {"location": {"lat": 48.1351, "lng": 11.582}}}]
		}`))
	})

	coord, err := c.Geocode(context.Background(), "München, Germany")
	require.NoError(t, err)
	assert.InDelta(t, 11.582, coord.X(), 1e-6)
	assert.InDelta(t, 48.1351, coord.Y(), 1e-6)
}

func TestGeocodeZeroResults(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	})

	_, err := c.Geocode(context.Background(), "Nirgendwo")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestGeocodeErrorStatus(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "REQUEST_DENIED", "results": []}`))
	})

	_, err := c.Geocode(context.Background(), "München")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}

func TestNearbySearch(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/nearbysearch/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "48.135100,11.582000", q.Get("location"))
		assert.Equal(t, "5000", q.Get("radius"))
		assert.Equal(t, "roofing_contractor", q.Get("type"))
		assert.Equal(t, "Dachdecker Dachdeckerei", q.Get("keyword"))
		assert.Equal(t, "de", q.Get("language"))
		w.Write([]byte(`{
			"status": "OK",
			"next_page_token": "tok-2",
			"results": [
				{"place_id": "p1", "name": "Müller Dachdeckerei", "vicinity": "Musterstraße 1, München"},
				{"place_id": "p2", "name": "Dach GmbH", "vicinity": "Beispielweg 2, München"}
			]
		}`))
	})

	resp, err := c.NearbySearch(context.Background(), NearbySearchRequest{
		Location: []float64{11.582, 48.1351},
		Radius:   5000,
		Type:     "roofing_contractor",
		Keyword:  "Dachdecker Dachdeckerei",
		Language: "de",
	})
	require.NoError(t, err)
	require.Len(t, resp.Places, 2)
	assert.Equal(t, "p1", resp.Places[0].PlaceID)
	assert.Equal(t, "Müller Dachdeckerei", resp.Places[0].Name)
	assert.Equal(t, "tok-2", resp.NextPageToken)
}

func TestNearbySearchPageToken(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "tok-2", q.Get("pagetoken"))
		assert.Empty(t, q.Get("location"))
		w.Write([]byte(`{"status": "OK", "results": [{"place_id": "p3", "name": "Drei"}]}`))
	})

	resp, err := c.NearbySearch(context.Background(), NearbySearchRequest{PageToken: "tok-2"})
	require.NoError(t, err)
	require.Len(t, resp.Places, 1)
	assert.Empty(t, resp.NextPageToken)
}

func TestNearbySearchZeroResultsIsEmptyNotError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "results": []}`))
	})

	resp, err := c.NearbySearch(context.Background(), NearbySearchRequest{Location: []float64{11.5, 48.1}, Radius: 1000})
	require.NoError(t, err)
	assert.Empty(t, resp.Places)
}

func TestNearbySearchMissingLocation(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	})

	_, err := c.NearbySearch(context.Background(), NearbySearchRequest{})
	assert.Error(t, err)
}

func TestPlaceDetails(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/place/details/json", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "p1", q.Get("place_id"))
		assert.Contains(t, q.Get("fields"), "formatted_phone_number")
		assert.Equal(t, "de", q.Get("language"))
		w.Write([]byte(`{
			"status": "OK",
			"result": {
				"name": "Müller Dachdeckerei",
				"website": "https://www.mueller-dach.de",
				"formatted_phone_number": "089 123456",
				"international_phone_number": "+49 89 123456",
				"formatted_address": "Musterstraße 1, 80331 München"
			}
		}`))
	})

	d, err := c.PlaceDetails(context.Background(), "p1", "de")
	require.NoError(t, err)
	assert.Equal(t, "Müller Dachdeckerei", d.Name)
	assert.Equal(t, "089 123456", d.Phone())
	assert.Equal(t, "Musterstraße 1, 80331 München", d.FormattedAddress)
}

func TestPlaceDetailsPhoneFallback(t *testing.T) {
	t.Parallel()

	d := &PlaceDetails{InternationalPhoneNumber: "+49 89 123456"}
	assert.Equal(t, "+49 89 123456", d.Phone())
}

func TestPlaceDetailsNotFound(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "NOT_FOUND"}`))
	})

	_, err := c.PlaceDetails(context.Background(), "missing", "de")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOT_FOUND")
}

func TestHTTPError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream broke", http.StatusBadGateway)
	})

	_, err := c.Geocode(context.Background(), "München")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestGetRetriesTransientStatus(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{
			"status": "OK",
			"results": [{"geometry": {"location": {"lat": 48.1351, "lng": 11.582}}}]
		}`))
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithRateLimit(0),
		WithRetry(resilience.Policy{Attempts: 2, InitialBackoff: time.Millisecond, Jitter: 0}),
	)

	_, err := c.Geocode(context.Background(), "München")
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestGetDoesNotRetryClientError(t *testing.T) {
	t.Parallel()

	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	t.Cleanup(srv.Close)

	c := NewClient("test-key",
		WithBaseURL(srv.URL),
		WithRateLimit(0),
		WithRetry(resilience.Policy{Attempts: 3, InitialBackoff: time.Millisecond, Jitter: 0}),
	)

	_, err := c.Geocode(context.Background(), "München")
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}
