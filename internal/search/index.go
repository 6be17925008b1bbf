package search

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/mrlokans/bookclub/internal/entities"
	"github.com/mrlokans/bookclub/internal/logger"
)

// mappingVersion changes whenever buildIndexMapping does; a mismatch on
// startup recreates the index.
const mappingVersion = "1"

// Index wraps a bleve index. Methods are safe for concurrent use; Rebuild
// takes the lock exclusively.
type Index struct {
	index bleve.Index
	path  string
	mu    sync.RWMutex
}

// Open opens the index under dataPath, creating it when missing, corrupt or
// built with an older mapping.
func Open(dataPath string) (*Index, error) {
	if err := os.MkdirAll(dataPath, 0755); err != nil {
		return nil, fmt.Errorf("create search dir: %w", err)
	}
	indexPath := filepath.Join(dataPath, "bookclub.bleve")
	versionPath := filepath.Join(dataPath, "bookclub.version")
	log := logger.Log.WithField("path", indexPath)

	var index bleve.Index
	if _, err := os.Stat(indexPath); err == nil {
		version, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil || string(version) != mappingVersion:
			log.WithField("new_version", mappingVersion).Info("search mapping changed, recreating index")
		default:
			index, err = bleve.Open(indexPath)
			if err != nil {
				log.WithError(err).Warn("failed to open search index, recreating")
				index = nil
			}
		}
		if index == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0644); err != nil {
			log.WithError(err).Warn("failed to write search version file")
		}
		log.Info("created search index")
	}

	return &Index{index: index, path: indexPath}, nil
}

func (s *Index) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

func (s *Index) Put(doc *Document) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.toMap())
}

// PutAll indexes docs in batches of 500.
func (s *Index) PutAll(docs []*Document) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500
	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))
		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.toMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// Remove deletes the documents of the given books and threads.
func (s *Index) Remove(bookIDs, threadIDs []uint) error {
	if len(bookIDs) == 0 && len(threadIDs) == 0 {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, id := range bookIDs {
		batch.Delete(DocID(DocTypeBook, id))
	}
	for _, id := range threadIDs {
		batch.Delete(DocID(DocTypeThread, id))
	}
	return s.index.Batch(batch)
}

func (s *Index) Count() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops every document and recreates an empty index.
func (s *Index) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}
	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	s.index = index
	logger.Log.WithField("path", s.path).Info("rebuilt search index")
	return nil
}

// Reindex rebuilds the index from the given books and threads.
func (s *Index) Reindex(books []entities.Book, threads []entities.Thread) (int, error) {
	if err := s.Rebuild(); err != nil {
		return 0, err
	}
	docs := make([]*Document, 0, len(books)+len(threads))
	for i := range books {
		docs = append(docs, BookDocument(&books[i]))
	}
	for i := range threads {
		docs = append(docs, ThreadDocument(&threads[i]))
	}
	return len(docs), s.PutAll(docs)
}
