package ingest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobintern/bountybot/internal/domain"
	"github.com/bobintern/bountybot/internal/platform/logger"
)

func TestFetchAll_ParsesAndMapsListings(t *testing.T) {
	deadline := time.Date(2026, 9, 15, 0, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/listings", r.URL.Path)
		switch r.URL.Query().Get("type") {
		case "bounty":
			json.NewEncoder(w).Encode(listingsResponse{Results: []listingPayload{{
				ID:               "b1",
				Title:            "Build a dashboard",
				Slug:             "build-a-dashboard",
				Deadline:         deadline,
				Token:            "USDC",
				USDValue:         1500,
				CompensationType: "fixed",
				Sponsor:          sponsorInfo{Name: "Acme"},
				Skills: []skillEntry{
					{Skills: "Frontend", Subskills: []string{"React"}},
					{Skills: "Design"},
				},
			}}})
		case "project":
			json.NewEncoder(w).Encode(listingsResponse{Results: []listingPayload{}})
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	f := NewFetcher(logger.New("error"), srv.URL, srv.Client())
	listings := f.FetchAll(context.Background())

	require.Len(t, listings, 1)
	l := listings[0]
	assert.Equal(t, "b1", l.ID)
	assert.Equal(t, domain.ListingTypeBounty, l.Type)
	assert.Equal(t, "Acme", l.SponsorName)
	assert.Equal(t, deadline, l.Deadline)
	assert.True(t, l.IsActive)
	assert.ElementsMatch(t, []string{"DEVELOPMENT", "DESIGN"}, l.MappedSkills)
}

func TestFetchAll_PartialOutageKeepsOtherType(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("type") {
		case "bounty":
			w.WriteHeader(http.StatusInternalServerError)
		case "project":
			json.NewEncoder(w).Encode(listingsResponse{Results: []listingPayload{{
				ID: "p1", Title: "Ongoing mod work", Slug: "ongoing-mod-work",
				Skills: []skillEntry{{Skills: "Community"}},
			}}})
		}
	}))
	defer srv.Close()

	f := NewFetcher(logger.New("error"), srv.URL, srv.Client())
	listings := f.FetchAll(context.Background())

	require.Len(t, listings, 1)
	assert.Equal(t, "p1", listings[0].ID)
	assert.Equal(t, domain.ListingTypeProject, listings[0].Type)
}

func TestFetchAll_PaginatesUntilShortPage(t *testing.T) {
	var skips []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("type") == "project" {
			json.NewEncoder(w).Encode(listingsResponse{})
			return
		}
		skip := r.URL.Query().Get("skip")
		skips = append(skips, skip)
		resp := listingsResponse{}
		if skip == "0" {
			for i := 0; i < fetchPageSize; i++ {
				resp.Results = append(resp.Results, listingPayload{ID: "b" + skip})
			}
		} else {
			resp.Results = []listingPayload{{ID: "last"}}
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	f := NewFetcher(logger.New("error"), srv.URL, srv.Client())
	listings := f.FetchAll(context.Background())

	assert.Len(t, listings, fetchPageSize+1)
	assert.Equal(t, []string{"0", "100"}, skips)
}
