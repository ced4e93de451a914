package dataset

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/asha/decorscout/internal/domain"
	"github.com/asha/decorscout/internal/provider"
)

func writeManifest(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.jsonl")
	if err := os.WriteFile(path, []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleManifest = `{"pin_id":"1","image_url":"https://i.pinimg.com/originals/a.jpg","title":"wedding welcome board","saves":10}
{"pin_id":"2","image_url":"https://i.pinimg.com/originals/b.jpg","title":"haldi entrance decor","saves":5}

{"pin_id":"3","image_url":"","title":"missing url"}
not json at all
{"pin_id":"4","image_url":"https://i.pinimg.com/originals/d.jpg","description":"sangeet photo display"}
`

func TestSearchMatchesQueryTerms(t *testing.T) {
	a := NewAdapter(writeManifest(t, sampleManifest))

	records, err := a.Search(context.Background(), "wedding welcome", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("matched %d records, want 1", len(records))
	}
	if records[0].SourceID != "1" {
		t.Errorf("matched pin %s, want 1", records[0].SourceID)
	}
}

func TestSearchSkipsMalformedLines(t *testing.T) {
	a := NewAdapter(writeManifest(t, sampleManifest))

	records, err := a.Search(context.Background(), "decor", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(records) != 1 || records[0].SourceID != "2" {
		t.Fatalf("records = %v, want just pin 2", records)
	}
}

func TestSearchFallsBackToFullManifest(t *testing.T) {
	a := NewAdapter(writeManifest(t, sampleManifest))

	records, err := a.Search(context.Background(), "zzz nothing matches", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	// No term matches: the manifest comes back whole. Only the 3 well-formed
	// entries with image URLs survive loading.
	if len(records) != 3 {
		t.Fatalf("fallback returned %d records, want 3", len(records))
	}
}

func TestSearchMissingManifest(t *testing.T) {
	a := NewAdapter(filepath.Join(t.TempDir(), "absent.jsonl"))

	_, err := a.Search(context.Background(), "anything", 10)
	if !errors.Is(err, domain.ErrSourceUnavailable) {
		t.Fatalf("expected ErrSourceUnavailable, got %v", err)
	}
}

func TestSearchConcurrentFirstUse(t *testing.T) {
	// One adapter instance is shared across rank requests; the first searches
	// may arrive together and must not race on the lazy manifest load.
	a := NewAdapter(writeManifest(t, sampleManifest))

	const callers = 8
	results := make([][]provider.RawRecord, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = a.Search(context.Background(), "decor", 10)
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("caller %d failed: %v", i, errs[i])
		}
		if len(results[i]) != 1 || results[i][0].SourceID != "2" {
			t.Errorf("caller %d got %v, want just pin 2", i, results[i])
		}
	}
}

func TestIdentityKeyMatchesPinterestFormat(t *testing.T) {
	a := NewAdapter(writeManifest(t, sampleManifest))

	records, err := a.Search(context.Background(), "wedding", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	key, err := a.IdentityKey()(records[0])
	if err != nil {
		t.Fatal(err)
	}
	if key != "pin:1" {
		t.Errorf("key = %q, want pin:1 so live and exported pins merge", key)
	}
}
