package corpus

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadMarkdown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cardiology", "heart_failure_basics.md")
	writeFile(t, path, "# Heart Failure\n\nHeart failure is a chronic condition.")

	file, err := Load(dir, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if file.Title != "heart failure basics" {
		t.Fatalf("title = %q", file.Title)
	}
	if file.Category != "cardiology" {
		t.Fatalf("category = %q, want subdirectory name", file.Category)
	}
	if file.Content == "" || file.Hash == "" {
		t.Fatal("content and hash must be populated")
	}
}

func TestLoadJSONOverridesTitleAndCategory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.json")
	writeFile(t, path, `{"title":"Asthma Overview","category":"pulmonology","content":"Asthma narrows airways."}`)

	file, err := Load(dir, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if file.Title != "Asthma Overview" {
		t.Fatalf("title = %q", file.Title)
	}
	if file.Category != "pulmonology" {
		t.Fatalf("category = %q", file.Category)
	}
	if file.Content != "Asthma narrows airways." {
		t.Fatalf("content = %q", file.Content)
	}
}

func TestLoadRootFileDefaultsCategory(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	writeFile(t, path, "general medical notes")

	file, err := Load(dir, path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if file.Category != "general" {
		t.Fatalf("category = %q, want general for root-level files", file.Category)
	}
}

func TestLoadRejectsEmptyContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	writeFile(t, path, "   \n  ")

	if _, err := Load(dir, path); err == nil {
		t.Fatal("expected error for whitespace-only file")
	}
}

func TestLoadDirSkipsBadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "good.md"), "valid content")
	writeFile(t, filepath.Join(dir, "bad.json"), "{not json")
	writeFile(t, filepath.Join(dir, "ignored.exe"), "binary")

	var skipped []string
	files, err := LoadDir(dir, func(path string, err error) {
		skipped = append(skipped, path)
	})
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("got %d files, want 1", len(files))
	}
	if files[0].Title != "good" {
		t.Fatalf("title = %q", files[0].Title)
	}
	if len(skipped) != 1 {
		t.Fatalf("skipped = %v, want only the malformed json", skipped)
	}
}

func TestSupported(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.md", true},
		{"a.TXT", true},
		{"a.json", true},
		{"a.pdf", true},
		{"a.docx", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := Supported(tt.path); got != tt.want {
			t.Errorf("Supported(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestTitleForPath(t *testing.T) {
	if got := TitleForPath("/corpus/cardiology/heart_failure-basics.md"); got != "heart failure basics" {
		t.Fatalf("got %q", got)
	}
}

func TestContentHashChangesWithContent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "doc.txt")

	writeFile(t, path, "version one")
	first, err := Load(dir, path)
	if err != nil {
		t.Fatal(err)
	}

	writeFile(t, path, "version two")
	second, err := Load(dir, path)
	if err != nil {
		t.Fatal(err)
	}

	if first.Hash == second.Hash {
		t.Fatal("hash must change when content changes")
	}
}
