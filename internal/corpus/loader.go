// Package corpus reads knowledge-base source files from disk and watches the
// corpus directory for changes. Supported formats are markdown, plain text,
// JSON documents with title/category/content fields, and PDF.
package corpus

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"medassist/internal/pkg/pdfextract"
)

// File is one loaded source document ready for ingestion.
type File struct {
	Title    string
	Category string
	Content  string
	Path     string
	Hash     string // sha256 hex of the raw content
}

type jsonDocument struct {
	Title    string `json:"title"`
	Category string `json:"category"`
	Content  string `json:"content"`
}

// Supported reports whether the file extension is a loadable format.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt", ".json", ".pdf":
		return true
	}
	return false
}

// Load reads a single file. root, when non-empty, is the corpus directory
// used to derive the category from the file's first-level subdirectory.
func Load(root, path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file failed: %w", err)
	}

	file := &File{
		Title:    titleFromPath(path),
		Category: categoryFromPath(root, path),
		Path:     path,
		Hash:     hashContent(raw),
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".txt":
		file.Content = string(raw)
	case ".json":
		var doc jsonDocument
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parse json document %s failed: %w", path, err)
		}
		file.Content = doc.Content
		if doc.Title != "" {
			file.Title = doc.Title
		}
		if doc.Category != "" {
			file.Category = doc.Category
		}
	case ".pdf":
		text, err := pdfextract.ExtractText(strings.NewReader(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("extract pdf text from %s failed: %w", path, err)
		}
		file.Content = text
	default:
		return nil, fmt.Errorf("unsupported corpus file type: %s", path)
	}

	if strings.TrimSpace(file.Content) == "" {
		return nil, fmt.Errorf("corpus file %s has no text content", path)
	}
	return file, nil
}

// LoadDir walks the corpus directory and loads every supported file.
// Unreadable or malformed files are skipped and reported via onSkip.
func LoadDir(root string, onSkip func(path string, err error)) ([]File, error) {
	var files []File
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !Supported(path) {
			return nil
		}
		file, loadErr := Load(root, path)
		if loadErr != nil {
			if onSkip != nil {
				onSkip(path, loadErr)
			}
			return nil
		}
		files = append(files, *file)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk corpus dir failed: %w", err)
	}
	return files, nil
}

// TitleForPath returns the title a file at the given path would be ingested
// under, so removals can be mapped back to an indexed document.
func TitleForPath(path string) string {
	return titleFromPath(path)
}

func titleFromPath(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return strings.TrimSpace(name)
}

func categoryFromPath(root, path string) string {
	if root == "" {
		return "general"
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return "general"
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "general"
	}
	return parts[0]
}

func hashContent(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}
