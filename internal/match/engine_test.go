package match

import (
	"testing"

	"github.com/spinecat/spinecat/internal/models"
)

func TestMatchTypeForScore(t *testing.T) {
	tests := []struct {
		score float64
		want  string
	}{
		{1.0, models.MatchExact},
		{0.85, models.MatchExact},
		{0.849999, models.MatchStrong},
		{0.70, models.MatchStrong},
		{0.699999, models.MatchModerate},
		{0.55, models.MatchModerate},
		{0.549999, models.MatchWeak},
		{0.40, models.MatchWeak},
		{0.399999, models.MatchPoor},
		{0.0, models.MatchPoor},
	}

	for _, tt := range tests {
		if got := matchTypeForScore(tt.score); got != tt.want {
			t.Errorf("matchTypeForScore(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestQueryVariants(t *testing.T) {
	variants := queryVariants("THE BALLAD OF SONGBIRDS AND SNAKES COLLINS")

	if variants[0] != "THE BALLAD OF SONGBIRDS AND SNAKES COLLINS" {
		t.Fatalf("original text must be the first variant, got %q", variants[0])
	}

	got := map[string]bool{}
	for _, v := range variants {
		got[v] = true
	}
	for _, want := range []string{
		"BALLAD SONGBIRDS SNAKES COLLINS", // filler stripped
		"THE BALLAD OF",                   // first three words
		"AND SNAKES COLLINS",              // last three words
		"OF SONGBIRDS AND",                // middle window
	} {
		if !got[want] {
			t.Errorf("expected variant %q in %v", want, variants)
		}
	}

	seen := map[string]int{}
	for _, v := range variants {
		seen[v]++
		if seen[v] > 1 {
			t.Errorf("duplicate variant %q", v)
		}
	}
}

func TestQueryVariants_ShortQuery(t *testing.T) {
	variants := queryVariants("MOBY DICK")
	for _, v := range variants {
		if v == "" {
			t.Error("empty variant generated")
		}
	}
	if variants[0] != "MOBY DICK" {
		t.Errorf("original text must come first, got %q", variants[0])
	}
}

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default is advanced", Config{}, false},
		{"advanced", Config{Kind: "advanced", UseCharNgrams: true}, false},
		{"legacy", Config{Kind: "legacy"}, false},
		{"unknown", Config{Kind: "quantum"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, err := NewEngine(tt.cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if eng == nil {
				t.Fatal("nil engine")
			}
		})
	}
}

func TestBuildEntries(t *testing.T) {
	entries := buildEntries([]models.CatalogRecord{
		{
			Title:     "The Ballad of Songbirds and Snakes",
			Authors:   []string{"Suzanne Collins"},
			Publisher: "Scholastic Press",
		},
		{Title: ""},
	})

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}

	first := entries[0]
	if first.norm != "THE BALLAD OF SONGBIRDS AND SNAKES SUZANNE COLLINS" {
		t.Errorf("unexpected norm %q", first.norm)
	}
	if first.titleNorm != "THE BALLAD OF SONGBIRDS AND SNAKES" {
		t.Errorf("unexpected titleNorm %q", first.titleNorm)
	}
	if first.authorLast != "COLLINS" {
		t.Errorf("unexpected authorLast %q", first.authorLast)
	}
	if first.pubNorm != "SCHOLASTIC PRESS" {
		t.Errorf("unexpected pubNorm %q", first.pubNorm)
	}

	empty := entries[1]
	if empty.norm != "" || empty.authorLast != "" {
		t.Errorf("empty record should degrade to empty strings, got %+v", empty)
	}
}
