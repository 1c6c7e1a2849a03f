package store

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/edurag/edurag/internal/models"
)

const registryFile = "corpus.gob"

// corpusRegistry is a sidecar file next to the chromem directory holding the
// raw contents and metadata of every ingested chunk, in ingestion order. It
// exists because chromem collections cannot be enumerated, and the lexical
// pass needs a full-corpus dump.
type corpusRegistry struct {
	path      string
	Contents  []string
	Metadatas []models.ChunkMetadata
}

func loadCorpusRegistry(dir string) (*corpusRegistry, error) {
	r := &corpusRegistry{path: filepath.Join(dir, registryFile)}

	f, err := os.Open(r.path)
	if os.IsNotExist(err) {
		return r, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if err := gob.NewDecoder(f).Decode(r); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", r.path, err)
	}
	return r, nil
}

func (r *corpusRegistry) Append(chunks []models.Chunk) error {
	for _, chunk := range chunks {
		r.Contents = append(r.Contents, chunk.Content)
		r.Metadatas = append(r.Metadatas, chunk.Metadata)
	}
	return r.save()
}

func (r *corpusRegistry) Dump() ([]string, []models.ChunkMetadata, error) {
	return r.Contents, r.Metadatas, nil
}

// save writes atomically so a crash mid-write cannot leave a registry that
// disagrees with the chunks chromem already persisted.
func (r *corpusRegistry) save() error {
	tmp := r.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	if err := gob.NewEncoder(f).Encode(r); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, r.path)
}
