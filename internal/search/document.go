package search

import (
	"time"

	"github.com/zfogg/tinyforum/backend/internal/models"
	"github.com/zfogg/tinyforum/backend/internal/sanitize"
)

// ThreadDoc represents a thread document for Elasticsearch indexing
type ThreadDoc struct {
	ThreadID  string    `json:"thread_id"`
	Title     string    `json:"title"`
	Author    string    `json:"author,omitempty"`
	IsPinned  bool      `json:"is_pinned"`
	Closed    bool      `json:"closed"`
	CreatedAt time.Time `json:"created_at"`
}

// PostDoc represents a post document for Elasticsearch indexing. Text is
// the post with markup stripped.
type PostDoc struct {
	PostID    string    `json:"post_id"`
	ThreadID  string    `json:"thread_id"`
	Text      string    `json:"text"`
	Author    string    `json:"author,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func ThreadToDoc(t *models.Thread) ThreadDoc {
	doc := ThreadDoc{
		ThreadID:  t.ID,
		Title:     t.Title,
		IsPinned:  t.IsPinned,
		Closed:    t.IsClosed(),
		CreatedAt: t.CreatedAt,
	}
	if t.AuthoredBy != nil {
		doc.Author = t.AuthoredBy.Username
	}
	return doc
}

func PostToDoc(p *models.Post) PostDoc {
	doc := PostDoc{
		PostID:    p.ID,
		ThreadID:  p.ThreadID,
		Text:      sanitize.StripTags(p.Text),
		CreatedAt: p.CreatedAt,
	}
	if p.AuthoredBy != nil {
		doc.Author = p.AuthoredBy.Username
	}
	return doc
}
