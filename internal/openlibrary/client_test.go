package openlibrary

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/time/rate"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Client) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := NewClient(
		WithBaseURL(srv.URL),
		WithRateLimit(rate.Inf, 1),
	)
	return srv, client
}

func TestSearchCandidates(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/search.json" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"docs": []map[string]any{
				{
					"key":                "/works/OL1W",
					"title":              "The Hunger Games",
					"author_name":        []string{"Suzanne Collins"},
					"publisher":          []string{"Scholastic Press", "Scholastic"},
					"first_publish_year": 2008,
				},
				{
					"key":   "/works/OL2W",
					"title": "Catching Fire",
				},
				{
					// No key, dropped.
					"title": "Orphan Doc",
				},
			},
		})
	})

	records, err := client.SearchCandidates(context.Background(), "the hunger games")
	if err != nil {
		t.Fatalf("SearchCandidates: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Title != "The Hunger Games" || first.ExternalID != "/works/OL1W" {
		t.Errorf("unexpected record %+v", first)
	}
	if first.Publisher != "Scholastic Press" {
		t.Errorf("expected first publisher kept, got %q", first.Publisher)
	}
	if first.RawFields["first_publish_year"] != 2008 {
		t.Errorf("expected publish year in raw fields, got %v", first.RawFields)
	}
}

func TestSearchCandidates_FallbackStrategies(t *testing.T) {
	var params []string
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("q") != "":
			params = append(params, "q")
			json.NewEncoder(w).Encode(map[string]any{"docs": []map[string]any{}})
		case q.Get("title") != "":
			params = append(params, "title")
			json.NewEncoder(w).Encode(map[string]any{
				"docs": []map[string]any{
					{"key": "/works/OL3W", "title": "Moby Dick"},
				},
			})
		}
	})

	records, err := client.SearchCandidates(context.Background(), "moby dick")
	if err != nil {
		t.Fatalf("SearchCandidates: %v", err)
	}
	if len(records) != 1 || records[0].ExternalID != "/works/OL3W" {
		t.Fatalf("expected fallback result, got %+v", records)
	}
	if len(params) != 2 || params[0] != "q" || params[1] != "title" {
		t.Errorf("expected general then title strategy, got %v", params)
	}
}

func TestSearchCandidates_DeduplicatesAcrossStrategies(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"docs": []map[string]any{
				{"key": "/works/OL1W", "title": "The Hunger Games"},
				{"key": "/works/OL1W", "title": "The Hunger Games"},
			},
		})
	})

	records, err := client.SearchCandidates(context.Background(), "the hunger games")
	if err != nil {
		t.Fatalf("SearchCandidates: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected deduplicated result, got %d", len(records))
	}
}

func TestSearchCandidates_EmptyQuery(t *testing.T) {
	client := NewClient()
	records, err := client.SearchCandidates(context.Background(), "   ")
	if err != nil {
		t.Fatalf("SearchCandidates: %v", err)
	}
	if records != nil {
		t.Errorf("blank query should return nil, got %v", records)
	}
}

func TestSearchCandidates_ServerError(t *testing.T) {
	_, client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	_, err := client.SearchCandidates(context.Background(), "anything")
	if err == nil {
		t.Fatal("expected error when every strategy fails")
	}
}
