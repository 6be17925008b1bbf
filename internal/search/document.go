// Package search keeps a bleve full-text index of books and reviews.
package search

import (
	"fmt"

	"github.com/mrlokans/bookclub/internal/entities"
)

type DocType string

const (
	DocTypeBook   DocType = "book"
	DocTypeThread DocType = "thread"
)

// Document is the flattened form of a book or thread in the index.
// Author and category names are denormalised into book documents and the
// book title into thread documents.
type Document struct {
	ID         string
	Type       DocType
	EntityID   uint
	BookID     uint
	Name       string
	Author     string
	Body       string
	AuthorInfo string
	Category   string
	Username   string
	CreatedAt  int64
}

// DocID returns the index identifier for an entity.
func DocID(t DocType, id uint) string {
	return fmt.Sprintf("%s-%d", t, id)
}

func BookDocument(book *entities.Book) *Document {
	doc := &Document{
		ID:         DocID(DocTypeBook, book.ID),
		Type:       DocTypeBook,
		EntityID:   book.ID,
		BookID:     book.ID,
		Name:       book.Title,
		Author:     book.Author,
		Body:       book.Description,
		AuthorInfo: book.AuthorInfo,
		CreatedAt:  book.CreatedAt.UnixMilli(),
	}
	if book.Category != nil {
		doc.Category = book.Category.Name
	}
	if book.User != nil {
		doc.Username = book.User.Username
	}
	return doc
}

func ThreadDocument(thread *entities.Thread) *Document {
	doc := &Document{
		ID:        DocID(DocTypeThread, thread.ID),
		Type:      DocTypeThread,
		EntityID:  thread.ID,
		BookID:    thread.BookID,
		Name:      thread.Title,
		Body:      thread.Content,
		CreatedAt: thread.CreatedAt.UnixMilli(),
	}
	if thread.Book != nil {
		doc.Author = thread.Book.Author
	}
	if thread.User != nil {
		doc.Username = thread.User.Username
	}
	return doc
}

// toMap keys the document by the field names used in the mapping.
func (d *Document) toMap() map[string]interface{} {
	m := map[string]interface{}{
		"type":       string(d.Type),
		"entity_id":  float64(d.EntityID),
		"book_id":    float64(d.BookID),
		"name":       d.Name,
		"created_at": float64(d.CreatedAt),
	}
	if d.Author != "" {
		m["author"] = d.Author
	}
	if d.Body != "" {
		m["body"] = d.Body
	}
	if d.AuthorInfo != "" {
		m["author_info"] = d.AuthorInfo
	}
	if d.Category != "" {
		m["category"] = d.Category
	}
	if d.Username != "" {
		m["username"] = d.Username
	}
	return m
}
