package importer_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/nikbrunner/quickmark/internal/importer"
	"github.com/nikbrunner/quickmark/internal/tree"
)

const chromiumBookmarks = `{
   "checksum": "0123456789abcdef",
   "roots": {
      "bookmark_bar": {
         "children": [ {
            "date_added": "13350000000000000",
            "id": "5",
            "name": "Go",
            "type": "url",
            "url": "https://go.dev/"
         }, {
            "children": [ {
               "date_added": "0",
               "id": "7",
               "name": "",
               "type": "url",
               "url": "https://pkg.go.dev/"
            } ],
            "date_added": "13350000000000000",
            "id": "6",
            "name": "Docs",
            "type": "folder"
         } ],
         "date_added": "13350000000000000",
         "id": "1",
         "name": "Bookmarks bar",
         "type": "folder"
      },
      "other": {
         "children": [],
         "id": "2",
         "name": "Other bookmarks",
         "type": "folder"
      },
      "synced": {
         "children": [ {
            "id": "8",
            "name": "Phone",
            "type": "url",
            "url": "https://example.com/"
         } ],
         "id": "3",
         "name": "Mobile bookmarks",
         "type": "folder"
      }
   },
   "version": 1
}`

func TestParseChromium(t *testing.T) {
	forest, err := importer.ParseChromium(strings.NewReader(chromiumBookmarks))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 13350000000000000 µs since 1601 is 1705526400000 ms since 1970.
	want := []tree.Node{{
		ID: "0",
		Children: []tree.Node{
			{ID: "1", Title: "Bookmarks bar", DateAdded: 1705526400000, Children: []tree.Node{
				{ID: "5", Title: "Go", URL: "https://go.dev/", DateAdded: 1705526400000},
				{ID: "6", Title: "Docs", DateAdded: 1705526400000, Children: []tree.Node{
					{ID: "7", URL: "https://pkg.go.dev/"},
				}},
			}},
			{ID: "2", Title: "Other bookmarks"},
			{ID: "3", Title: "Mobile bookmarks", Children: []tree.Node{
				{ID: "8", Title: "Phone", URL: "https://example.com/"},
			}},
		},
	}}

	if diff := cmp.Diff(want, forest); diff != "" {
		t.Errorf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseChromium_ExtractFolders(t *testing.T) {
	forest, err := importer.ParseChromium(strings.NewReader(chromiumBookmarks))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cands := tree.ExtractAll(forest)
	if len(cands) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(cands))
	}

	folders := []string{cands[0].Folder, cands[1].Folder, cands[2].Folder}
	if diff := cmp.Diff([]string{"Bookmarks bar", "Docs", "Mobile bookmarks"}, folders); diff != "" {
		t.Errorf("folder mismatch (-want +got):\n%s", diff)
	}
	if cands[1].Title != nil {
		t.Errorf("expected absent title for unnamed bookmark")
	}
}

func TestParseChromium_MissingRoots(t *testing.T) {
	if _, err := importer.ParseChromium(strings.NewReader(`{"version": 1}`)); err == nil {
		t.Error("expected error for file without roots")
	}
}
