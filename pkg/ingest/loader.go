package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/edurag/edurag/internal/models"
)

// LoadDir reads every supported file (.txt, .md, .html, .htm) under dir,
// non-recursively, returning one document per file. HTML is reduced to its
// visible text.
func LoadDir(dir string) ([]models.Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}

	var docs []models.Document
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		ext := strings.ToLower(filepath.Ext(entry.Name()))

		var content string
		switch ext {
		case ".txt", ".md":
			raw, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
			content = string(raw)
		case ".html", ".htm":
			content, err = loadHTML(path)
			if err != nil {
				return nil, err
			}
		default:
			continue
		}

		if strings.TrimSpace(content) == "" {
			continue
		}
		docs = append(docs, models.Document{
			ID:      uuid.NewString(),
			Path:    path,
			Content: content,
		})
	}
	return docs, nil
}

func loadHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", fmt.Errorf("parsing %s: %w", path, err)
	}

	doc.Find("script, style, noscript").Remove()
	text := doc.Find("body").Text()
	if strings.TrimSpace(text) == "" {
		text = doc.Text()
	}
	// Collapse the whitespace soup HTML extraction leaves behind.
	return strings.Join(strings.Fields(text), " "), nil
}
