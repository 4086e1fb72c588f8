// Package ingest pulls listings from the upstream API, folds their raw skills
// into match categories, and keeps the local listings table current.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/bobintern/bountybot/internal/domain"
)

const fetchPageSize = 100

// listingPayload mirrors the upstream listings API response item.
type listingPayload struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Slug             string       `json:"slug"`
	Deadline         time.Time    `json:"deadline"`
	Token            string       `json:"token"`
	USDValue         float64      `json:"usdValue"`
	Type             string       `json:"type"`
	CompensationType string       `json:"compensationType"`
	Sponsor          sponsorInfo  `json:"sponsor"`
	Skills           []skillEntry `json:"skills"`
}

type sponsorInfo struct {
	Name string `json:"name"`
}

type skillEntry struct {
	Skills    string   `json:"skills"`
	Subskills []string `json:"subskills"`
}

type listingsResponse struct {
	Results []listingPayload `json:"results"`
}

// Fetcher retrieves listings from the upstream HTTP API, page by page.
type Fetcher struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
}

func NewFetcher(logger *slog.Logger, baseURL string, httpClient *http.Client) *Fetcher {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Fetcher{
		logger:     logger.With("component", "listings_fetcher"),
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// FetchAll retrieves every open bounty and project. A fetch failure for one
// listing type is logged and yields the other type's results, so a partial
// upstream outage does not stall the scan tick.
func (f *Fetcher) FetchAll(ctx context.Context) []*domain.Listing {
	var all []*domain.Listing
	for _, listingType := range []domain.ListingType{domain.ListingTypeBounty, domain.ListingTypeProject} {
		listings, err := f.fetchType(ctx, listingType)
		if err != nil {
			f.logger.ErrorContext(ctx, "failed to fetch listings", "type", listingType, "error", err)
			continue
		}
		all = append(all, listings...)
	}
	return all
}

func (f *Fetcher) fetchType(ctx context.Context, listingType domain.ListingType) ([]*domain.Listing, error) {
	var listings []*domain.Listing
	for skip := 0; ; skip += fetchPageSize {
		page, err := f.fetchPage(ctx, listingType, skip)
		if err != nil {
			return nil, err
		}
		for _, item := range page {
			listings = append(listings, toDomain(item, listingType))
		}
		if len(page) < fetchPageSize {
			return listings, nil
		}
	}
}

func (f *Fetcher) fetchPage(ctx context.Context, listingType domain.ListingType, skip int) ([]listingPayload, error) {
	endpoint := fmt.Sprintf("%s/api/listings", f.baseURL)
	params := url.Values{}
	params.Set("type", string(listingType))
	params.Set("take", strconv.Itoa(fetchPageSize))
	params.Set("skip", strconv.Itoa(skip))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create listings request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch listings page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("listings API returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed listingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode listings response: %w", err)
	}
	return parsed.Results, nil
}

func toDomain(item listingPayload, listingType domain.ListingType) *domain.Listing {
	rawSkills := make([]string, 0, len(item.Skills))
	for _, entry := range item.Skills {
		rawSkills = append(rawSkills, entry.Skills)
		rawSkills = append(rawSkills, entry.Subskills...)
	}
	return &domain.Listing{
		ID:               item.ID,
		Title:            item.Title,
		Slug:             item.Slug,
		Deadline:         item.Deadline,
		Token:            item.Token,
		USDValue:         item.USDValue,
		Type:             listingType,
		CompensationType: item.CompensationType,
		SponsorName:      item.Sponsor.Name,
		MappedSkills:     MapSkills(rawSkills),
		IsActive:         true,
		LastFetched:      time.Now().UTC(),
	}
}
