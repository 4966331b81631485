// Package refresh orchestrates the background fetches that seed and refresh
// the entity cache.
package refresh

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/anonto42/nano-midea/client/internal/cache"
	"github.com/anonto42/nano-midea/client/pkg/api"
	"github.com/anonto42/nano-midea/client/pkg/models"
)

// Coordinator fans out the collection fetches concurrently and writes each
// result back under a version token taken when the fetch was issued, so a
// slow response cannot overwrite an optimistic mutation that happened while
// it was in flight.
//
// RefreshAll is re-entrant: a call arriving while a refresh is already
// running waits for that refresh and shares its result instead of starting
// a second one.
type Coordinator struct {
	viewerID uint
	store    *cache.Store
	remote   api.Remote

	mu       sync.Mutex
	inflight *flight
}

type flight struct {
	done chan struct{}
	err  error
}

// NewCoordinator creates a Coordinator for the given viewer.
func NewCoordinator(store *cache.Store, remote api.Remote, viewerID uint) *Coordinator {
	return &Coordinator{viewerID: viewerID, store: store, remote: remote}
}

// RefreshAll fetches users, posts, the friends list, both pending-request
// collections and the viewer's bookmarks, concurrently. Returns the first
// fetch error, if any; successful fetches still land in the cache.
func (c *Coordinator) RefreshAll(ctx context.Context) error {
	c.mu.Lock()
	if f := c.inflight; f != nil {
		c.mu.Unlock()
		<-f.done
		return f.err
	}
	f := &flight{done: make(chan struct{})}
	c.inflight = f
	c.mu.Unlock()

	f.err = c.run(ctx)

	c.mu.Lock()
	c.inflight = nil
	c.mu.Unlock()
	close(f.done)
	return f.err
}

func (c *Coordinator) run(ctx context.Context) error {
	slog.Debug("refresh starting", "viewer_id", c.viewerID)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		version := c.store.NextVersion()
		users, err := c.remote.FetchUsers(ctx)
		if err != nil {
			return err
		}
		c.store.PutUsers(users, version)
		return nil
	})

	g.Go(func() error {
		version := c.store.NextVersion()
		posts, err := c.remote.FetchPosts(ctx)
		if err != nil {
			return err
		}
		c.store.PutPosts(posts, version)
		return nil
	})

	g.Go(func() error {
		version := c.store.NextVersion()
		friends, err := c.remote.FetchFriends(ctx)
		if err != nil {
			return err
		}
		c.store.PutUsers(friends, version)

		ids := make([]uint, 0, len(friends))
		for _, f := range friends {
			ids = append(ids, f.ID)
		}
		viewer, ok := c.store.User(c.viewerID)
		if !ok {
			viewer = models.User{ID: c.viewerID}
		}
		viewer.Friends = ids
		c.store.PutUser(viewer, version)
		return nil
	})

	g.Go(func() error {
		version := c.store.NextVersion()
		sent, err := c.remote.FetchSentRequests(ctx)
		if err != nil {
			return err
		}
		c.store.ReplaceSentRequests(c.viewerID, sent, version)
		return nil
	})

	g.Go(func() error {
		version := c.store.NextVersion()
		received, err := c.remote.FetchReceivedRequests(ctx)
		if err != nil {
			return err
		}
		c.store.ReplaceReceivedRequests(c.viewerID, received, version)
		return nil
	})

	g.Go(func() error {
		version := c.store.NextVersion()
		saved, err := c.remote.FetchSavedPosts(ctx)
		if err != nil {
			return err
		}
		c.store.ReplaceSavedPosts(c.viewerID, saved, version)
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Warn("refresh finished with error", "viewer_id", c.viewerID, "error", err)
		return err
	}
	slog.Debug("refresh complete", "viewer_id", c.viewerID)
	return nil
}
