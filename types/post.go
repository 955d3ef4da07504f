package types

import "time"

// DefaultCategory is assigned to posts created without a category.
const DefaultCategory = "general"

// Post represents a blog post written by a user.
type Post struct {
	// ID is the unique identifier of the post.
	ID int `json:"id" db:"id"`

	// Title is the headline of the post.
	Title string `json:"title" db:"title"`

	// Content is the body of the post.
	Content string `json:"content" db:"content"`

	// Category is a free-form grouping label used for filtering.
	Category string `json:"category" db:"category"`

	// AuthorID identifies the user who wrote the post.
	AuthorID int `json:"author_id" db:"author_id"`

	// AuthorName is the author's display name. It is populated on reads only.
	AuthorName string `json:"author_name,omitempty" db:"-"`

	// PhotoURL is the public URL of the post photo, empty when none is attached.
	PhotoURL string `json:"photo_url" db:"photo_url"`

	// PhotoKey is the image host key backing PhotoURL.
	PhotoKey string `json:"-" db:"photo_key"`

	// CreatedAt is the timestamp at which the post was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the post.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
