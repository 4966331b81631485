// Package engine is the public entry point of the client state engine. It
// keeps the viewer's relationship and engagement state consistent under
// optimistic mutation, concurrent refreshes and an authoritative but slower
// backend.
package engine

import (
	"context"

	"github.com/anonto42/nano-midea/client/internal/cache"
	"github.com/anonto42/nano-midea/client/internal/engagement"
	"github.com/anonto42/nano-midea/client/internal/refresh"
	"github.com/anonto42/nano-midea/client/internal/relationship"
	"github.com/anonto42/nano-midea/client/pkg/api"
	"github.com/anonto42/nano-midea/client/pkg/config"
	"github.com/anonto42/nano-midea/client/pkg/models"
)

// Engine wires the entity cache, relationship processor, engagement
// controller and refresh coordinator for one viewer session. Command
// methods block until reconciled with the backend; read methods serve the
// current (optimistic-overlay-aware) state and never touch the network.
type Engine struct {
	viewerID    uint
	store       *cache.Store
	processor   *relationship.Processor
	controller  *engagement.Controller
	coordinator *refresh.Coordinator
}

// New creates an Engine for the given viewer over an injected remote.
func New(remote api.Remote, viewerID uint) *Engine {
	store := cache.NewStore()
	return &Engine{
		viewerID:    viewerID,
		store:       store,
		processor:   relationship.NewProcessor(store, remote, viewerID),
		controller:  engagement.NewController(store, remote, viewerID),
		coordinator: refresh.NewCoordinator(store, remote, viewerID),
	}
}

// NewFromConfig creates an Engine backed by the HTTP client.
func NewFromConfig(cfg *config.Config, viewerID uint) *Engine {
	return New(api.NewClient(cfg), viewerID)
}

// RelationshipStatus classifies the viewer's relationship to a subject.
func (e *Engine) RelationshipStatus(subjectID uint) models.RelationshipStatus {
	return e.processor.Status(subjectID)
}

// Do executes a relationship command: optimistic local transition, remote
// confirmation, rollback on failure.
func (e *Engine) Do(ctx context.Context, cmd models.RelationshipCommand) (models.CommandOutcome, error) {
	return e.processor.Do(ctx, cmd)
}

// EngagementView computes the derived engagement state of a post for the
// viewer. Returns false if the post is not cached.
func (e *Engine) EngagementView(postID string) (models.EngagementView, bool) {
	return e.controller.View(postID)
}

// ToggleLike flips the viewer's like on a post.
func (e *Engine) ToggleLike(ctx context.Context, postID string) error {
	return e.controller.ToggleLike(ctx, postID)
}

// ToggleBookmark flips the viewer's bookmark on a post.
func (e *Engine) ToggleBookmark(ctx context.Context, postID string) error {
	return e.controller.ToggleBookmark(ctx, postID)
}

// Likers returns the full cached likers list for a post, for the modal view.
func (e *Engine) Likers(postID string) []models.User {
	return e.controller.Likers(postID)
}

// Comments returns the cached comments for a post.
func (e *Engine) Comments(postID string) []models.Comment {
	return e.controller.Comments(postID)
}

// Posts lists cached posts matching pred (nil matches everything).
func (e *Engine) Posts(pred func(models.Post) bool) []models.Post {
	return e.store.Posts(pred)
}

// User returns a cached user profile.
func (e *Engine) User(id uint) (models.User, bool) {
	return e.store.User(id)
}

// RefreshAll seeds or refreshes every store concurrently. Re-entrant calls
// coalesce onto the in-flight refresh.
func (e *Engine) RefreshAll(ctx context.Context) error {
	return e.coordinator.RefreshAll(ctx)
}

// RefreshLikers refreshes the authoritative likers list for one post.
func (e *Engine) RefreshLikers(ctx context.Context, postID string) error {
	return e.controller.RefreshLikers(ctx, postID)
}

// RefreshComments refreshes the authoritative comments for one post.
func (e *Engine) RefreshComments(ctx context.Context, postID string) error {
	return e.controller.RefreshComments(ctx, postID)
}
