package types

import "time"

// Channels domain events are published on.
const (
	ChannelPosts    = "blog.posts"
	ChannelComments = "blog.comments"
	ChannelPhotos   = "blog.photos"
)

// EventType names a domain event.
type EventType string

// Supported event types.
const (
	EventPostCreated    EventType = "post.created"
	EventPostUpdated    EventType = "post.updated"
	EventPostDeleted    EventType = "post.deleted"
	EventCommentCreated EventType = "comment.created"
	EventCommentUpdated EventType = "comment.updated"
	EventCommentDeleted EventType = "comment.deleted"

	// EventPhotoReleased signals that an image is no longer referenced and
	// can be removed from the image host.
	EventPhotoReleased EventType = "photo.released"
)

// Channel returns the channel the event type is published on.
func (t EventType) Channel() string {
	switch t {
	case EventPostCreated, EventPostUpdated, EventPostDeleted:
		return ChannelPosts
	case EventCommentCreated, EventCommentUpdated, EventCommentDeleted:
		return ChannelComments
	case EventPhotoReleased:
		return ChannelPhotos
	default:
		return ""
	}
}

// Event is the JSON payload carried by the message queue.
type Event struct {
	Type       EventType `json:"type"`
	PostID     int       `json:"post_id,omitempty"`
	CommentID  int       `json:"comment_id,omitempty"`
	UserID     int       `json:"user_id,omitempty"`
	ObjectKey  string    `json:"object_key,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
