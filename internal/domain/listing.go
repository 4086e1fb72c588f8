package domain

import "time"

// ListingType distinguishes the two listing variants.
type ListingType string

const (
	ListingTypeBounty  ListingType = "bounty"  // time-boxed task
	ListingTypeProject ListingType = "project" // ongoing engagement
)

// Listing is an externally sourced opportunity. The external id is the
// natural key; re-ingestion upserts by id.
type Listing struct {
	ID               string      `json:"id"` // external id, immutable
	Title            string      `json:"title"`
	Slug             string      `json:"slug"`
	Deadline         time.Time   `json:"deadline"`
	Token            string      `json:"token"`
	USDValue         float64     `json:"usd_value"`
	Type             ListingType `json:"type"`
	CompensationType string      `json:"compensation_type"` // "fixed" or "range"
	SponsorName      string      `json:"sponsor_name"`
	MappedSkills     []string    `json:"mapped_skills"` // derived expertise categories
	IsActive         bool        `json:"is_active"`
	LastFetched      time.Time   `json:"last_fetched"`
	CreatedAt        time.Time   `json:"created_at"`
}

// Expired reports whether the listing's deadline has passed at now.
func (l *Listing) Expired(now time.Time) bool {
	return l.Deadline.Before(now)
}
