// Package engagement manages per-post like and bookmark state with
// optimistic updates and staleness-safe reconciliation.
package engagement

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/anonto42/nano-midea/client/internal/cache"
	"github.com/anonto42/nano-midea/client/pkg/api"
	"github.com/anonto42/nano-midea/client/pkg/models"
)

// Controller layers an optimistic overlay over the authoritative engagement
// state in the entity cache. Toggles flip the overlay synchronously, then
// reconcile with the backend: the authoritative result replaces the
// optimistic guess on success, the pre-toggle state is restored on failure.
//
// Each post's likers/comments fetches carry a sequence number taken when the
// fetch is issued; a result whose sequence is not newer than the last
// applied one is discarded, so rapid repeated toggles cannot let an older
// response clobber a newer one.
type Controller struct {
	viewerID uint
	store    *cache.Store
	remote   api.Remote

	mu    sync.Mutex
	posts map[string]*postState
}

type postState struct {
	// overlay holds the viewer's optimistic like state. nil means the
	// authoritative likes set is current.
	overlay    *likeOverlay
	overlayGen int64

	likers   []models.User
	comments []models.Comment

	likerSeq, appliedLikerSeq     int64
	commentSeq, appliedCommentSeq int64
}

type likeOverlay struct {
	liked     bool
	likeCount int
}

// NewController creates a Controller acting on behalf of the given viewer.
func NewController(store *cache.Store, remote api.Remote, viewerID uint) *Controller {
	return &Controller{
		viewerID: viewerID,
		store:    store,
		remote:   remote,
		posts:    make(map[string]*postState),
	}
}

func (c *Controller) state(postID string) *postState {
	st, ok := c.posts[postID]
	if !ok {
		st = &postState{}
		c.posts[postID] = st
	}
	return st
}

// View computes the derived engagement view for a post. Returns false if
// the post is not in the cache.
func (c *Controller) View(postID string) (models.EngagementView, bool) {
	post, ok := c.store.Post(postID)
	if !ok {
		return models.EngagementView{}, false
	}

	view := models.EngagementView{
		PostID:       postID,
		Liked:        post.LikedBy(c.viewerID),
		LikeCount:    len(post.Likes),
		CommentCount: post.CommentsCount,
	}
	_, view.Bookmarked = c.store.Saved(c.viewerID, postID)

	c.mu.Lock()
	st, tracked := c.posts[postID]
	var likers []models.User
	if tracked {
		if st.overlay != nil {
			view.Liked = st.overlay.liked
			view.LikeCount = st.overlay.likeCount
		}
		likers = st.likers
	}
	c.mu.Unlock()

	if likers == nil {
		// No fetched likers yet; derive a preview from cached users.
		for _, id := range post.Likes {
			if u, ok := c.store.User(id); ok {
				likers = append(likers, u)
			}
		}
	}
	if len(likers) > models.LikersPreviewLimit {
		likers = likers[:models.LikersPreviewLimit]
	}
	view.Likers = likers
	return view, true
}

// Likers returns the full last-fetched likers list for a post.
func (c *Controller) Likers(postID string) []models.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.posts[postID]; ok && st.likers != nil {
		out := make([]models.User, len(st.likers))
		copy(out, st.likers)
		return out
	}
	return nil
}

// Comments returns the cached comments for a post.
func (c *Controller) Comments(postID string) []models.Comment {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.posts[postID]; ok && st.comments != nil {
		out := make([]models.Comment, len(st.comments))
		copy(out, st.comments)
		return out
	}
	return nil
}

// ToggleLike flips the viewer's like on a post. The flip and the adjusted
// count are visible immediately; the backend's response then replaces the
// optimistic guess with the authoritative likers list. A rejected call
// restores the pre-flip state exactly.
func (c *Controller) ToggleLike(ctx context.Context, postID string) error {
	view, ok := c.View(postID)
	if !ok {
		return fmt.Errorf("toggle like: post %s not cached", postID)
	}

	c.mu.Lock()
	st := c.state(postID)
	prevOverlay := st.overlay
	count := view.LikeCount
	if view.Liked {
		count--
	} else {
		count++
	}
	st.overlay = &likeOverlay{liked: !view.Liked, likeCount: count}
	st.overlayGen++
	gen := st.overlayGen
	st.likerSeq++
	seq := st.likerSeq
	c.mu.Unlock()

	likers, err := c.remote.ToggleLike(ctx, postID)
	if err != nil {
		c.mu.Lock()
		// Restore only if no later toggle replaced the overlay.
		if st.overlayGen == gen {
			st.overlay = prevOverlay
		}
		c.mu.Unlock()
		slog.Error("toggle like reverted", "post_id", postID, "error", err)
		return fmt.Errorf("toggle like: %w", err)
	}

	c.applyLikers(postID, likers, seq)
	return nil
}

// ToggleBookmark flips the viewer's bookmark on a post. On resolution the
// backend's saved flag is adopted; on rejection the flip is reverted.
func (c *Controller) ToggleBookmark(ctx context.Context, postID string) error {
	if _, ok := c.store.Post(postID); !ok {
		return fmt.Errorf("toggle bookmark: post %s not cached", postID)
	}

	prior, wasSaved := c.store.Saved(c.viewerID, postID)
	version := c.store.NextVersion()
	if wasSaved {
		c.store.DeleteSaved(c.viewerID, postID, version)
	} else {
		c.store.PutSaved(models.SavedPost{UserID: c.viewerID, PostID: postID}, version)
	}

	revert := func() {
		version := c.store.NextVersion()
		if wasSaved {
			c.store.PutSaved(prior, version)
		} else {
			c.store.DeleteSaved(c.viewerID, postID, version)
		}
	}

	saved, err := c.remote.ToggleSave(ctx, postID)
	if err != nil {
		revert()
		if api.IsBenign(err) {
			slog.Debug("bookmark toggle already resolved remotely", "post_id", postID, "error", err)
			return nil
		}
		slog.Error("toggle bookmark reverted", "post_id", postID, "error", err)
		return fmt.Errorf("toggle bookmark: %w", err)
	}

	// Adopt the authoritative flag in case it disagrees with the flip.
	version = c.store.NextVersion()
	if saved {
		if _, ok := c.store.Saved(c.viewerID, postID); !ok {
			c.store.PutSaved(models.SavedPost{UserID: c.viewerID, PostID: postID}, version)
		}
	} else {
		c.store.DeleteSaved(c.viewerID, postID, version)
	}
	return nil
}

// RefreshLikers fetches the authoritative likers list for a post. A failed
// fetch keeps the last-known list; stale-but-present beats empty.
func (c *Controller) RefreshLikers(ctx context.Context, postID string) error {
	c.mu.Lock()
	st := c.state(postID)
	st.likerSeq++
	seq := st.likerSeq
	c.mu.Unlock()

	likers, err := c.remote.FetchLikers(ctx, postID)
	if err != nil {
		slog.Warn("likers refresh failed, keeping cached list", "post_id", postID, "error", err)
		return fmt.Errorf("refresh likers: %w", err)
	}
	c.applyLikers(postID, likers, seq)
	return nil
}

// applyLikers installs an authoritative likers result unless a newer fetch
// for the same post already completed. Installing clears the optimistic
// overlay and writes the likes set back to the cache.
func (c *Controller) applyLikers(postID string, likers []models.User, seq int64) {
	c.mu.Lock()
	st := c.state(postID)
	if seq <= st.appliedLikerSeq {
		c.mu.Unlock()
		slog.Debug("discarding stale likers result", "post_id", postID, "seq", seq, "applied", st.appliedLikerSeq)
		return
	}
	st.appliedLikerSeq = seq
	st.likers = likers
	st.overlay = nil
	c.mu.Unlock()

	if post, ok := c.store.Post(postID); ok {
		ids := make([]uint, 0, len(likers))
		for _, u := range likers {
			ids = append(ids, u.ID)
		}
		post.Likes = ids
		c.store.PutPost(post, c.store.NextVersion())
	}
}

// RefreshComments fetches the authoritative comment list for a post and
// updates the post's comment count. Same sequencing discipline as likers.
func (c *Controller) RefreshComments(ctx context.Context, postID string) error {
	c.mu.Lock()
	st := c.state(postID)
	st.commentSeq++
	seq := st.commentSeq
	c.mu.Unlock()

	comments, err := c.remote.FetchComments(ctx, postID)
	if err != nil {
		slog.Warn("comments refresh failed, keeping cached list", "post_id", postID, "error", err)
		return fmt.Errorf("refresh comments: %w", err)
	}

	c.mu.Lock()
	if seq <= st.appliedCommentSeq {
		c.mu.Unlock()
		return nil
	}
	st.appliedCommentSeq = seq
	st.comments = comments
	c.mu.Unlock()

	if post, ok := c.store.Post(postID); ok {
		post.CommentsCount = len(comments)
		c.store.PutPost(post, c.store.NextVersion())
	}
	return nil
}
