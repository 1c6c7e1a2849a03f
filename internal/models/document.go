package models

// Document is a source file loaded during ingestion, before splitting.
type Document struct {
	ID      string
	Path    string
	Content string
}
