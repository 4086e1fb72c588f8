package domain

import "time"

// Match records a skill overlap between a user and a listing. At most one
// Match may exist per (user, listing) pair — enforced by a unique constraint
// in storage. The score is the size of the overlap at first-match time and is
// never recomputed.
type Match struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	ListingID string    `json:"listing_id"`
	Score     int       `json:"score"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`

	// Populated by joined reads for the notification scheduler.
	User    *User    `json:"user,omitempty"`
	Listing *Listing `json:"listing,omitempty"`
}

// Intersect returns the elements common to both string sets, preserving the
// order of a. Comparison is exact; callers normalize case upstream.
func Intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	var out []string
	for _, s := range a {
		if _, ok := set[s]; ok {
			out = append(out, s)
		}
	}
	return out
}
