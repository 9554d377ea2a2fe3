// Package places provides a client for the Google Maps Platform
// geocoding and Places APIs (legacy JSON endpoints).
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"golang.org/x/time/rate"

	"github.com/handwerk-leads/leads-cli/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// Client performs Google Maps Platform operations.
type Client interface {
	// Geocode resolves a free-form query ("München, Germany", "80331,
	// Germany") to a coordinate. Returns ErrNoResults when the query
	// matches nothing.
	Geocode(ctx context.Context, query string) (geom.Coord, error)

	// NearbySearch returns businesses around a center point. Pass the
	// response's NextPageToken back in the request to fetch follow-up
	// pages.
	NearbySearch(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error)

	// PlaceDetails fetches contact fields for a single place.
	PlaceDetails(ctx context.Context, placeID, language string) (*PlaceDetails, error)
}

// ErrNoResults is returned when the API answers with ZERO_RESULTS.
var ErrNoResults = eris.New("places: no results")

// NearbySearchRequest parameterizes a nearby search. When PageToken is
// set all other fields are ignored, matching API behavior.
type NearbySearchRequest struct {
	Location  geom.Coord // [lng, lat]
	Radius    int        // meters
	Type      string     // e.g. "general_contractor"
	Keyword   string
	Language  string
	PageToken string
}

// NearbySearchResponse is one page of nearby search results.
type NearbySearchResponse struct {
	Places        []Place
	NextPageToken string
}

// Place is a single nearby search result.
type Place struct {
	PlaceID  string `json:"place_id"`
	Name     string `json:"name"`
	Vicinity string `json:"vicinity"`
	Website  string `json:"website"`
}

// PlaceDetails holds the contact fields of a place details lookup.
type PlaceDetails struct {
	Name                     string `json:"name"`
	Website                  string `json:"website"`
	FormattedPhoneNumber     string `json:"formatted_phone_number"`
	InternationalPhoneNumber string `json:"international_phone_number"`
	FormattedAddress         string `json:"formatted_address"`
}

// Phone returns the best available phone number, preferring the
// nationally formatted one.
func (d *PlaceDetails) Phone() string {
	if d.FormattedPhoneNumber != "" {
		return d.FormattedPhoneNumber
	}
	return d.InternationalPhoneNumber
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *httpClient) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate (10 req/s).
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		} else {
			c.limiter = nil
		}
	}
}

// WithRetry overrides the default retry policy for transient failures.
func WithRetry(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.Policy
}

// NewClient creates a Maps Platform client. Requests are throttled to
// 10 req/s by default.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: rate.NewLimiter(10, 10),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type geocodeResponse struct {
	Status  string `json:"status"`
	Results []struct {
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

func (c *httpClient) Geocode(ctx context.Context, query string) (geom.Coord, error) {
	params := url.Values{
		"address": {query},
		"key":     {c.apiKey},
	}

	var resp geocodeResponse
	if err := c.get(ctx, "/geocode/json", params, &resp); err != nil {
		return nil, err
	}

	// Error statuses like REQUEST_DENIED also come with zero results;
	// they must surface as errors, not as "nothing found".
	switch {
	case resp.Status != "OK" && resp.Status != "ZERO_RESULTS":
		return nil, eris.Errorf("places: geocode status %s", resp.Status)
	case resp.Status == "ZERO_RESULTS" || len(resp.Results) == 0:
		return nil, ErrNoResults
	}

	loc := resp.Results[0].Geometry.Location
	return geom.Coord{loc.Lng, loc.Lat}, nil
}

type nearbyResponse struct {
	Status        string  `json:"status"`
	NextPageToken string  `json:"next_page_token"`
	Results       []Place `json:"results"`
}

func (c *httpClient) NearbySearch(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error) {
	params := url.Values{"key": {c.apiKey}}

	if req.PageToken != "" {
		params.Set("pagetoken", req.PageToken)
	} else {
		if len(req.Location) < 2 {
			return nil, eris.New("places: nearby search requires a location")
		}
		params.Set("location", fmt.Sprintf("%f,%f", req.Location.Y(), req.Location.X()))
		params.Set("radius", fmt.Sprintf("%d", req.Radius))
		if req.Type != "" {
			params.Set("type", req.Type)
		}
		if req.Keyword != "" {
			params.Set("keyword", req.Keyword)
		}
		if req.Language != "" {
			params.Set("language", req.Language)
		}
	}

	var resp nearbyResponse
	if err := c.get(ctx, "/place/nearbysearch/json", params, &resp); err != nil {
		return nil, err
	}

	switch resp.Status {
	case "OK":
		return &NearbySearchResponse{Places: resp.Results, NextPageToken: resp.NextPageToken}, nil
	case "ZERO_RESULTS":
		return &NearbySearchResponse{}, nil
	default:
		return nil, eris.Errorf("places: nearby search status %s", resp.Status)
	}
}

// detailFields is the field mask for details lookups: everything a
// quality lead needs, nothing billed beyond the Contact tier.
const detailFields = "name,website,formatted_phone_number,international_phone_number,formatted_address"

type detailsResponse struct {
	Status string        `json:"status"`
	Result *PlaceDetails `json:"result"`
}

func (c *httpClient) PlaceDetails(ctx context.Context, placeID, language string) (*PlaceDetails, error) {
	params := url.Values{
		"place_id": {placeID},
		"fields":   {detailFields},
		"key":      {c.apiKey},
	}
	if language != "" {
		params.Set("language", language)
	}

	var resp detailsResponse
	if err := c.get(ctx, "/place/details/json", params, &resp); err != nil {
		return nil, err
	}

	if resp.Status != "OK" || resp.Result == nil {
		return nil, eris.Errorf("places: details status %s for %s", resp.Status, placeID)
	}
	return resp.Result, nil
}

func (c *httpClient) get(ctx context.Context, path string, params url.Values, out any) error {
	reqURL := c.baseURL + path + "?" + params.Encode()

	body, err := resilience.Fetch(ctx, c.retry, "places"+path, func(ctx context.Context) ([]byte, error) {
		return c.fetch(ctx, reqURL)
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "places: unmarshal response")
	}
	return nil
}

func (c *httpClient) fetch(ctx context.Context, reqURL string) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "places: rate limit")
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "places: create request")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read response")
	}

	if resp.StatusCode != http.StatusOK {
		err := eris.Errorf("places: unexpected status %d: %s", resp.StatusCode, string(body))
		if resilience.RetryableStatus(resp.StatusCode) {
			return nil, resilience.MarkTransient(err)
		}
		return nil, err
	}
	return body, nil
}
