package domain

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeEntry is a curated document the assistant may cite.
type KnowledgeEntry struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	URL       string    `json:"url,omitempty"`
	Tags      []string  `json:"tags"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AsSource returns the citation form of the entry.
func (k KnowledgeEntry) AsSource() Source {
	return Source{Title: k.Title, URL: k.URL}
}
