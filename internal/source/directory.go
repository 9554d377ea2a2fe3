package source

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/handwerk-leads/leads-cli/internal/config"
	"github.com/handwerk-leads/leads-cli/internal/model"
)

const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

// listingSelector matches the result tiles on an 11880.com search page.
// The site has shipped several card layouts; this covers all of them.
const listingSelector = ".search-result-item, .result-item, .listing-entry, .search-result"

var redirectURLRe = regexp.MustCompile(`url=([^&]+)`)

// DirectorySource scrapes the 11880.com business directory. Listings
// already carry contact fields, so Details is a pass-through.
type DirectorySource struct {
	cfg       config.DirectoryConfig
	collector *colly.Collector
	log       *zap.Logger
}

// NewDirectorySource creates a directory-backed source.
func NewDirectorySource(cfg config.DirectoryConfig) *DirectorySource {
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}

	c := colly.NewCollector(colly.UserAgent(cfg.UserAgent))
	c.SetRequestTimeout(20 * time.Second)

	return &DirectorySource{
		cfg:       cfg,
		collector: c,
		log:       zap.L().With(zap.String("component", "directory_source")),
	}
}

func (s *DirectorySource) Name() string { return "directory" }

// Details is a pass-through: directory listings already include the
// contact fields.
func (s *DirectorySource) Details(_ context.Context, c model.Candidate) (model.Candidate, error) {
	return c, nil
}

func (s *DirectorySource) Search(ctx context.Context, category config.Category, city string) ([]model.Candidate, error) {
	var all []model.Candidate
	for page := 1; page <= s.cfg.MaxPages; page++ {
		if err := ctx.Err(); err != nil {
			return all, err
		}

		found, err := s.scrapePage(ctx, category, city, page)
		if err != nil {
			if page == 1 {
				return nil, err
			}
			s.log.Warn("page fetch failed, keeping earlier results",
				zap.Int("page", page),
				zap.String("city", city),
				zap.Error(err),
			)
			break
		}

		s.log.Debug("directory page",
			zap.Int("page", page),
			zap.Int("listings", len(found)),
			zap.String("category", category.Slug),
			zap.String("city", city),
		)

		// An empty page means the result set is exhausted.
		if len(found) == 0 {
			break
		}
		all = append(all, found...)

		if page < s.cfg.MaxPages {
			if err := s.pageDelay(ctx); err != nil {
				return all, err
			}
		}
	}

	s.log.Info("search complete",
		zap.String("category", category.Slug),
		zap.String("city", city),
		zap.Int("candidates", len(all)),
	)
	return all, nil
}

func (s *DirectorySource) scrapePage(ctx context.Context, category config.Category, city string, page int) ([]model.Candidate, error) {
	pageURL := s.searchURL(category.Slug, city, page)

	var found []model.Candidate
	c := s.collector.Clone()
	c.OnHTML(listingSelector, func(e *colly.HTMLElement) {
		if cand, ok := s.extractListing(e.DOM, category, city); ok {
			found = append(found, cand)
		}
	})

	done := make(chan error, 1)
	go func() {
		done <- c.Visit(pageURL)
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case err := <-done:
		if err != nil {
			return nil, eris.Wrapf(err, "source: fetch %s", pageURL)
		}
	}
	return found, nil
}

func (s *DirectorySource) searchURL(categorySlug, city string, page int) string {
	u := fmt.Sprintf("%s/suche/%s/%s",
		s.cfg.BaseURL,
		url.PathEscape(slugify(categorySlug)),
		url.PathEscape(slugify(city)),
	)
	if page > 1 {
		u += fmt.Sprintf("?page=%d", page)
	}
	return u
}

// extractListing pulls a candidate from one result tile. A tile
// without a business name is skipped.
func (s *DirectorySource) extractListing(tile *goquery.Selection, category config.Category, city string) (model.Candidate, bool) {
	cand := model.Candidate{
		Category: category.Name,
	}

	// Exact card classes only: a substring match like [class*="name"]
	// would also hit unrelated tile chrome and defeat the skip rule.
	nameEl := tile.Find(`.entry-name a, .name a, .entry-title a, .title a, h2 a, h3 a`).First()
	if nameEl.Length() == 0 {
		nameEl = tile.Find(`.entry-name, .name, .entry-title, .title, h2, h3`).First()
	}
	cand.Name = strings.TrimSpace(nameEl.Text())
	if cand.Name == "" {
		return model.Candidate{}, false
	}

	// The detail-page link doubles as a stable listing ID.
	if href, ok := nameEl.Attr("href"); ok && href != "" {
		if strings.HasPrefix(href, "/") {
			href = s.cfg.BaseURL + href
		}
		cand.ID = href
	}
	if cand.ID == "" {
		cand.ID = "11880:" + slugify(cand.Name) + ":" + slugify(city)
	}

	if tel, ok := tile.Find(`a[href^="tel:"]`).First().Attr("href"); ok {
		cand.Phone = strings.TrimSpace(strings.TrimPrefix(tel, "tel:"))
	}
	if cand.Phone == "" {
		cand.Phone = strings.TrimSpace(tile.Find(`[class*="phone"], [class*="telefon"]`).First().Text())
	}

	addr := tile.Find(`[class*="address"], address, [class*="street"]`).First().Text()
	cand.Address = strings.Join(strings.Fields(addr), " ")

	cand.Website = s.extractWebsite(tile)

	if mail, ok := tile.Find(`a[href^="mailto:"]`).First().Attr("href"); ok {
		cand.Email = strings.TrimSpace(strings.TrimPrefix(mail, "mailto:"))
	}

	return cand, true
}

// extractWebsite finds the external site of a listing. 11880 wraps
// outbound links in a redirect with the target in a url= parameter.
func (s *DirectorySource) extractWebsite(tile *goquery.Selection) string {
	href, _ := tile.Find(`a[class*="website"], a[class*="web"], a[href*="redirect"]`).First().Attr("href")

	if strings.Contains(href, "url=") {
		if m := redirectURLRe.FindStringSubmatch(href); m != nil {
			if target, err := url.QueryUnescape(m[1]); err == nil {
				return target
			}
		}
		return href
	}
	if strings.HasPrefix(href, "http") && !strings.Contains(href, "11880.com") {
		return href
	}

	var external string
	tile.Find(`a[href^="http"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		h, _ := a.Attr("href")
		if !strings.Contains(h, "11880.com") && !strings.Contains(h, "google") {
			external = h
			return false
		}
		return true
	})
	return external
}

// pageDelay sleeps a random interval between result pages so the
// crawler does not hammer the site.
func (s *DirectorySource) pageDelay(ctx context.Context) error {
	minD, maxD := s.cfg.PageDelayMin, s.cfg.PageDelayMax
	if maxD <= 0 {
		return nil
	}
	if maxD < minD {
		maxD = minD
	}
	delay := time.Duration((minD + rand.Float64()*(maxD-minD)) * float64(time.Second))

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

var umlautReplacer = strings.NewReplacer(
	"ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss",
)

// slugify turns a category or city name into the lowercase ASCII form
// 11880.com uses in URL paths.
func slugify(s string) string {
	s = umlautReplacer.Replace(strings.ToLower(strings.TrimSpace(s)))
	return strings.ReplaceAll(s, " ", "-")
}
