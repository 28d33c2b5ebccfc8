package model

import (
	"time"

	"github.com/watizat/helpmap/internal/category"
)

// PostType distinguishes requests for help from offers.
type PostType string

const (
	PostTypeNeed  PostType = "need"
	PostTypeOffer PostType = "offer"
)

// PostStatus tracks whether a post is still active.
type PostStatus string

const (
	PostStatusOpen   PostStatus = "open"
	PostStatusClosed PostStatus = "closed"
)

// Post is a need or offer published on the board.
type Post struct {
	ID        string       `json:"id"`
	AuthorID  string       `json:"author_id"`
	Type      PostType     `json:"type"`
	Category  category.Tag `json:"category"`
	Status    PostStatus   `json:"status"`
	Title     string       `json:"title,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// OpenNeedCategories returns the categories of the open need posts in
// posts. Offers and closed needs are ignored.
func OpenNeedCategories(posts []Post) category.Set {
	s := category.NewSet()
	for _, p := range posts {
		if p.Type == PostTypeNeed && p.Status == PostStatusOpen {
			s[p.Category] = struct{}{}
		}
	}
	return s
}
