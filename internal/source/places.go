package source

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/config"
	"github.com/handwerk-leads/leads-cli/internal/cost"
	"github.com/handwerk-leads/leads-cli/internal/model"
	"github.com/handwerk-leads/leads-cli/pkg/places"
)

// maxNearbyPages caps pagination per search. The API serves at most 60
// results over three pages.
const maxNearbyPages = 3

// pageTokenDelay is how long a next_page_token needs before it becomes
// valid on Google's side.
const pageTokenDelay = 2 * time.Second

var zipCodeRe = regexp.MustCompile(`^\d{5}$`)

// PlacesSource discovers businesses through Google Maps nearby search.
// Search results carry no contact data; Details performs the billed
// place details lookup.
type PlacesSource struct {
	client    places.Client
	radius    int
	language  string
	meter     Meter
	pageDelay time.Duration
	log       *zap.Logger

	mu       sync.Mutex
	geocache map[string]geom.Coord
}

// PlacesOption configures a PlacesSource.
type PlacesOption func(*PlacesSource)

// WithMeter sets the billing observer.
func WithMeter(m Meter) PlacesOption {
	return func(s *PlacesSource) {
		if m != nil {
			s.meter = m
		}
	}
}

// WithPageDelay overrides the wait before fetching a paginated result
// page.
func WithPageDelay(d time.Duration) PlacesOption {
	return func(s *PlacesSource) {
		s.pageDelay = d
	}
}

// NewPlacesSource creates a Places-backed source.
func NewPlacesSource(client places.Client, cfg config.GoogleConfig, opts ...PlacesOption) *PlacesSource {
	s := &PlacesSource{
		client:    client,
		radius:    cfg.SearchRadius,
		language:  cfg.Language,
		meter:     noopMeter,
		pageDelay: pageTokenDelay,
		log:       zap.L().With(zap.String("component", "places_source")),
		geocache:  make(map[string]geom.Coord),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *PlacesSource) Name() string { return "places" }

// geocode resolves a city or zip code to a coordinate, caching per
// location so multi-category runs geocode each city once.
func (s *PlacesSource) geocode(ctx context.Context, city string) (geom.Coord, error) {
	s.mu.Lock()
	cached, ok := s.geocache[city]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	query := city
	if !strings.Contains(city, ",") {
		query = city + ", Germany"
	}
	if zipCodeRe.MatchString(city) {
		s.log.Debug("geocoding zip code", zap.String("zip", city))
	}

	coord, err := s.client.Geocode(ctx, query)
	s.meter(cost.CallGeocoding)
	if err != nil {
		return nil, eris.Wrapf(err, "source: geocode %q", city)
	}

	s.mu.Lock()
	s.geocache[city] = coord
	s.mu.Unlock()
	return coord, nil
}

func (s *PlacesSource) Search(ctx context.Context, category config.Category, city string) ([]model.Candidate, error) {
	coord, err := s.geocode(ctx, city)
	if err != nil {
		return nil, err
	}

	req := places.NearbySearchRequest{
		Location: coord,
		Radius:   s.radius,
		Type:     category.GoogleType,
		Keyword:  strings.Join(category.Keywords, " "),
		Language: s.language,
	}

	var candidates []model.Candidate
	for page := 1; page <= maxNearbyPages; page++ {
		resp, err := s.client.NearbySearch(ctx, req)
		s.meter(cost.CallNearbySearch)
		if err != nil {
			if page == 1 {
				return nil, eris.Wrapf(err, "source: nearby search %s in %s", category.Slug, city)
			}
			// Keep what the earlier pages returned.
			s.log.Warn("nearby search page failed",
				zap.Int("page", page),
				zap.String("city", city),
				zap.Error(err),
			)
			break
		}

		for _, p := range resp.Places {
			candidates = append(candidates, model.Candidate{
				ID:       p.PlaceID,
				Name:     p.Name,
				Category: category.Name,
				Address:  p.Vicinity,
				Website:  p.Website,
			})
		}
		s.log.Debug("nearby search page",
			zap.Int("page", page),
			zap.Int("results", len(resp.Places)),
			zap.String("category", category.Slug),
			zap.String("city", city),
		)

		if resp.NextPageToken == "" {
			break
		}
		req = places.NearbySearchRequest{PageToken: resp.NextPageToken}

		// The token is not immediately valid.
		timer := time.NewTimer(s.pageDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return candidates, ctx.Err()
		case <-timer.C:
		}
	}

	s.log.Info("search complete",
		zap.String("category", category.Slug),
		zap.String("city", city),
		zap.Int("candidates", len(candidates)),
	)
	return candidates, nil
}

// Details performs the billed contact lookup for one candidate.
func (s *PlacesSource) Details(ctx context.Context, c model.Candidate) (model.Candidate, error) {
	d, err := s.client.PlaceDetails(ctx, c.ID, s.language)
	if err != nil {
		return c, eris.Wrapf(err, "source: place details %s", c.ID)
	}
	s.meter(cost.CallPlaceDetails)

	if d.Name != "" {
		c.Name = d.Name
	}
	if d.FormattedAddress != "" {
		c.Address = d.FormattedAddress
	}
	c.Phone = d.Phone()
	c.Website = d.Website
	return c, nil
}
