// scraper/discovery_test.go
package scraper

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDiscoverLinks(t *testing.T) {
	page := `<html><body>
		<a href="/files/dwelling_fires_dataset.xlsx">Dwelling fires</a>
		<a href="/files/dwelling_fires_dataset.xlsx">Same file again</a>
		<a href="https://other.example.com/road_vehicle_fires_dataset.xlsx">Road vehicles</a>
		<a href="/guidance.pdf">Guidance</a>
		<a href="/files/notes_dataset.txt">Wrong suffix</a>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	links, err := newTestFetcher().DiscoverLinks(srv.URL, DatasetLinkMatcher(".xlsx"))
	if err != nil {
		t.Fatalf("DiscoverLinks failed: %v", err)
	}

	expected := []string{
		srv.URL + "/files/dwelling_fires_dataset.xlsx",
		"https://other.example.com/road_vehicle_fires_dataset.xlsx",
	}
	if len(links) != len(expected) {
		t.Fatalf("expected %d links, got %v", len(expected), links)
	}
	for i := range expected {
		if links[i] != expected[i] {
			t.Errorf("link %d: expected %q, got %q", i, expected[i], links[i])
		}
	}
}

func TestDatasetLinkMatcher(t *testing.T) {
	match := DatasetLinkMatcher(".xlsx")
	cases := []struct {
		href     string
		expected bool
	}{
		{"/files/dwelling_fires_DATASET.XLSX", true},
		{"/files/dwelling_fires_dataset.xlsx", true},
		{"/files/dwelling_fires.xlsx", false},
		{"/files/dwelling_fires_dataset.ods", false},
	}
	for _, c := range cases {
		if got := match(c.href); got != c.expected {
			t.Errorf("match(%q): expected %v, got %v", c.href, c.expected, got)
		}
	}
}

func TestFindLinkByText(t *testing.T) {
	page := `<html><body>
		<a href="/old">Mid-2023 edition of this dataset</a>
		<a href="/new">Mid-2025 edition of this dataset</a>
	</body></html>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer srv.Close()

	href, found, err := newTestFetcher().FindLinkByText(srv.URL, []string{"mid-2025", "mid-2026"})
	if err != nil {
		t.Fatalf("FindLinkByText failed: %v", err)
	}
	if !found || href != "/new" {
		t.Errorf("expected /new, got %q (found=%v)", href, found)
	}

	_, found, err = newTestFetcher().FindLinkByText(srv.URL, []string{"mid-2099"})
	if err != nil {
		t.Fatalf("FindLinkByText failed: %v", err)
	}
	if found {
		t.Error("expected no match for a future vintage")
	}
}
