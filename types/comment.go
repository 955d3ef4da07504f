package types

import "time"

// Comment is a reader's reply attached to a post.
type Comment struct {
	ID         int       `json:"id" db:"id"`
	Content    string    `json:"content" db:"content"`
	PostID     int       `json:"post_id" db:"post_id"`
	AuthorID   int       `json:"author_id" db:"author_id"`
	AuthorName string    `json:"author_name,omitempty" db:"-"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}
