package models

import "time"

// Post represents a social media post. The ID is the backend's MongoDB
// ObjectID as a hex string. Likes holds the authoritative set of user ids
// that have liked the post; the engagement controller layers its optimistic
// overlay on top of it.
type Post struct {
	ID            string    `json:"id"`
	UserID        uint      `json:"user_id"`
	Content       string    `json:"content"`
	ImageURLs     []string  `json:"image_urls,omitempty"`
	Likes         []uint    `json:"likes"`
	CommentsCount int       `json:"comments_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// LikedBy reports whether the given user id is in the authoritative likes set.
func (p Post) LikedBy(userID uint) bool {
	return containsID(p.Likes, userID)
}

// Comment represents a comment on a post.
type Comment struct {
	ID        uint      `json:"id"`
	PostID    string    `json:"post_id"`
	UserID    uint      `json:"user_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// SavedPost represents a bookmarked post. Existence of a SavedPost for a
// (user, post) pair is the bookmark predicate. An optimistic entry created
// before the backend confirms it carries ID 0.
type SavedPost struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	PostID    string    `json:"post_id"`
	CreatedAt time.Time `json:"created_at"`
}
