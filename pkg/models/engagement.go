package models

// LikersPreviewLimit caps how many likers an EngagementView carries for
// inline display. The full list is available from the engagement controller's
// likers cache.
const LikersPreviewLimit = 3

// EngagementView is the derived, per-viewer engagement state of a post.
// Liked and LikeCount combine the authoritative likes set with the
// controller's optimistic overlay, so the view reflects the viewer's own
// actions before the backend has confirmed them.
type EngagementView struct {
	PostID       string `json:"post_id"`
	Liked        bool   `json:"liked"`
	LikeCount    int    `json:"like_count"`
	Bookmarked   bool   `json:"bookmarked"`
	CommentCount int    `json:"comment_count"`
	Likers       []User `json:"likers,omitempty"`
}
