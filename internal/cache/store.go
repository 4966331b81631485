// Package cache holds the engine's normalized in-memory entity state.
//
// The store is the single shared mutable resource of the engine. All writes
// go through versioned upserts: the writer takes a token from the store's
// logical clock, and a write whose token is lower than the entity's current
// one is silently discarded. Background fetches take their token when the
// fetch is issued, so a fetch response resolving after a newer optimistic
// mutation cannot overwrite it.
package cache

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/anonto42/nano-midea/client/pkg/models"
)

// Store is the versioned entity cache for users, posts, friend requests and
// saved posts. Safe for concurrent use; a single RWMutex guards all tables.
type Store struct {
	clock atomic.Int64

	mu       sync.RWMutex
	users    *table[uint, models.User]
	posts    *table[string, models.Post]
	requests *table[string, models.FriendRequest]
	saved    *table[string, models.SavedPost]
}

// NewStore creates an empty store with its clock at zero.
func NewStore() *Store {
	return &Store{
		users:    newTable[uint, models.User](),
		posts:    newTable[string, models.Post](),
		requests: newTable[string, models.FriendRequest](),
		saved:    newTable[string, models.SavedPost](),
	}
}

// NextVersion returns a fresh monotonic version token. Fetches must take
// their token before issuing the remote call; optimistic writers take it at
// write time.
func (s *Store) NextVersion() int64 {
	return s.clock.Add(1)
}

// requestKey identifies a friend request by direction. At most one pending
// request exists per direction.
func requestKey(senderID, receiverID uint) string {
	return fmt.Sprintf("%d>%d", senderID, receiverID)
}

// savedKey identifies a bookmark by owner and post.
func savedKey(userID uint, postID string) string {
	return fmt.Sprintf("%d|%s", userID, postID)
}

// --- Users ---

// PutUser upserts a single user at the given version.
func (s *Store) PutUser(u models.User, version int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users.put(u.ID, u, version)
}

// PutUsers upserts a fetched batch of users at the given version.
func (s *Store) PutUsers(users []models.User, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range users {
		s.users.put(u.ID, u, version)
	}
}

// User returns the cached user with the given id.
func (s *Store) User(id uint) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.get(id)
}

// Users returns all cached users matching pred (nil matches everything).
func (s *Store) Users(pred func(models.User) bool) []models.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.users.list(pred)
}

// --- Posts ---

// PutPost upserts a single post at the given version.
func (s *Store) PutPost(p models.Post, version int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts.put(p.ID, p, version)
}

// PutPosts upserts a fetched batch of posts at the given version.
func (s *Store) PutPosts(posts []models.Post, version int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range posts {
		s.posts.put(p.ID, p, version)
	}
}

// Post returns the cached post with the given id.
func (s *Store) Post(id string) (models.Post, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.posts.get(id)
}

// Posts returns all cached posts matching pred (nil matches everything).
func (s *Store) Posts(pred func(models.Post) bool) []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.posts.list(pred)
}

// DeletePost tombstones a post, e.g. after a remote delete confirmation.
func (s *Store) DeletePost(id string, version int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.posts.del(id, version)
}

// --- Friend requests ---

// PutRequest upserts a pending friend request at the given version.
func (s *Store) PutRequest(r models.FriendRequest, version int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests.put(requestKey(r.SenderID, r.ReceiverID), r, version)
}

// DeleteRequest tombstones the pending request in the given direction.
func (s *Store) DeleteRequest(senderID, receiverID uint, version int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests.del(requestKey(senderID, receiverID), version)
}

// Request returns the pending request in the given direction, if any.
func (s *Store) Request(senderID, receiverID uint) (models.FriendRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests.get(requestKey(senderID, receiverID))
}

// Requests returns all cached pending requests matching pred.
func (s *Store) Requests(pred func(models.FriendRequest) bool) []models.FriendRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests.list(pred)
}

// ReplaceSentRequests applies a fetched snapshot of the viewer's outgoing
// pending requests: entries sent by the viewer that are absent from the
// snapshot are dropped, unless a newer local write landed on them.
func (s *Store) ReplaceSentRequests(viewerID uint, requests []models.FriendRequest, version int64) {
	items := make(map[string]models.FriendRequest, len(requests))
	for _, r := range requests {
		items[requestKey(r.SenderID, r.ReceiverID)] = r
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests.replace(items, func(r models.FriendRequest) bool { return r.SenderID == viewerID }, version)
}

// ReplaceReceivedRequests applies a fetched snapshot of the viewer's
// incoming pending requests.
func (s *Store) ReplaceReceivedRequests(viewerID uint, requests []models.FriendRequest, version int64) {
	items := make(map[string]models.FriendRequest, len(requests))
	for _, r := range requests {
		items[requestKey(r.SenderID, r.ReceiverID)] = r
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests.replace(items, func(r models.FriendRequest) bool { return r.ReceiverID == viewerID }, version)
}

// --- Saved posts ---

// PutSaved upserts a bookmark at the given version.
func (s *Store) PutSaved(sp models.SavedPost, version int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved.put(savedKey(sp.UserID, sp.PostID), sp, version)
}

// DeleteSaved tombstones the bookmark for the given (user, post) pair.
func (s *Store) DeleteSaved(userID uint, postID string, version int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved.del(savedKey(userID, postID), version)
}

// Saved returns the bookmark for the given (user, post) pair, if any.
func (s *Store) Saved(userID uint, postID string) (models.SavedPost, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saved.get(savedKey(userID, postID))
}

// ReplaceSavedPosts applies a fetched snapshot of the viewer's bookmarks.
func (s *Store) ReplaceSavedPosts(viewerID uint, saved []models.SavedPost, version int64) {
	items := make(map[string]models.SavedPost, len(saved))
	for _, sp := range saved {
		items[savedKey(sp.UserID, sp.PostID)] = sp
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved.replace(items, func(sp models.SavedPost) bool { return sp.UserID == viewerID }, version)
}
