package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"
)

func newTestCatalog(t *testing.T) *FileCatalog {
	t.Helper()
	path := filepath.Join(t.TempDir(), "characters.json")
	c, err := NewFileCatalog(FileCatalogConfig{Path: path}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewFileCatalog() error = %v", err)
	}
	return c
}

func TestNewFileCatalogSeedsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "characters.json")

	c, err := NewFileCatalog(FileCatalogConfig{Path: path}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewFileCatalog() error = %v", err)
	}
	if got := len(c.All()); got != 7 {
		t.Errorf("seeded catalog has %d characters, want 7", got)
	}

	// The seed must be persisted so the next start loads the same data.
	if _, err := os.Stat(path); err != nil {
		t.Errorf("seed file not written: %v", err)
	}

	again, err := NewFileCatalog(FileCatalogConfig{Path: path}, zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("reload error = %v", err)
	}
	if got := len(again.All()); got != 7 {
		t.Errorf("reloaded catalog has %d characters, want 7", got)
	}
}

func TestNewFileCatalogRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "characters.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileCatalog(FileCatalogConfig{Path: path}, zaptest.NewLogger(t)); err == nil {
		t.Error("expected error for malformed characters file")
	}
}

func TestNewFileCatalogRejectsDuplicateIDs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "characters.json")
	data := `[{"id":"x","name":"a"},{"id":"x","name":"b"}]`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewFileCatalog(FileCatalogConfig{Path: path}, zaptest.NewLogger(t)); err == nil {
		t.Error("expected error for duplicate character ids")
	}
}

func TestGetByID(t *testing.T) {
	c := newTestCatalog(t)

	character, ok := c.GetByID("socrates")
	if !ok {
		t.Fatal("GetByID(socrates) not found")
	}
	if character.Name != "苏格拉底" {
		t.Errorf("Name = %q, want 苏格拉底", character.Name)
	}
	if !character.HasSkill("knowledge_qa") {
		t.Error("socrates should have knowledge_qa skill")
	}

	if _, ok := c.GetByID("nobody"); ok {
		t.Error("GetByID(nobody) should not be found")
	}
}

func TestGetByIDReturnsCopy(t *testing.T) {
	c := newTestCatalog(t)

	first, _ := c.GetByID("einstein")
	first.Name = "mutated"

	second, _ := c.GetByID("einstein")
	if second.Name == "mutated" {
		t.Error("GetByID must not expose internal state to mutation")
	}
}

func TestSearch(t *testing.T) {
	c := newTestCatalog(t)

	tests := []struct {
		name     string
		query    string
		category string
		wantIDs  []string
	}{
		{
			name:    "by name fragment",
			query:   "爱因斯坦",
			wantIDs: []string{"einstein"},
		},
		{
			name:    "by tag",
			query:   "魔法",
			wantIDs: []string{"harry_potter"},
		},
		{
			name:     "category filter",
			query:    "",
			category: "science",
			wantIDs:  []string{"einstein", "marie_curie"},
		},
		{
			name:     "all category matches everything",
			query:    "科学",
			category: "all",
			wantIDs:  []string{"einstein", "marie_curie"},
		},
		{
			name:    "no match",
			query:   "zzz-no-such-character",
			wantIDs: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Search(tt.query, tt.category)
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("Search(%q, %q) returned %d results, want %d",
					tt.query, tt.category, len(got), len(tt.wantIDs))
			}
			for i, want := range tt.wantIDs {
				if got[i].ID != want {
					t.Errorf("result[%d].ID = %q, want %q", i, got[i].ID, want)
				}
			}
		})
	}
}

func TestCategories(t *testing.T) {
	c := newTestCatalog(t)

	got := c.Categories()
	want := []string{"education", "fiction", "literature", "philosophy", "science"}
	if len(got) != len(want) {
		t.Fatalf("Categories() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Categories()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
