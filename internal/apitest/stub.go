// Package apitest provides test doubles for the backend: a programmable
// in-memory Remote stub for unit tests, and an echo-based fake of the real
// HTTP API for client and end-to-end tests.
package apitest

import (
	"context"
	"sync"

	"github.com/anonto42/nano-midea/client/pkg/models"
)

// Stub is a programmable in-memory Remote. Collection fields seed the
// default responses; Fn overrides replace individual operations entirely,
// which tests use to inject errors or to control completion order with
// channels. Calls records operation names in invocation order.
type Stub struct {
	ViewerID uint

	mu       sync.Mutex
	users    []models.User
	posts    []models.Post
	friends  []models.User
	sent     []models.FriendRequest
	received []models.FriendRequest
	saved    []models.SavedPost
	likers   map[string][]models.User
	comments map[string][]models.Comment
	savedSet map[string]bool
	errs     map[string]error
	calls    []string
	nextID   uint

	fns StubFns
}

// StubFns holds per-operation overrides. When set, the corresponding Remote
// method delegates to the override instead of the default in-memory behavior.
type StubFns struct {
	FetchUsers            func() ([]models.User, error)
	FetchPosts            func() ([]models.Post, error)
	FetchFriends          func() ([]models.User, error)
	FetchSentRequests     func() ([]models.FriendRequest, error)
	FetchReceivedRequests func() ([]models.FriendRequest, error)
	FetchSavedPosts       func() ([]models.SavedPost, error)

	SendFriendRequest    func(receiverID uint) (*models.FriendRequest, error)
	CancelFriendRequest  func(requestID uint) error
	RespondFriendRequest func(requestID uint, status models.FriendRequestStatus) (*models.FriendRequest, error)
	Unfriend             func(friendID uint) error
	FollowUser           func(userID uint) error
	UnfollowUser         func(userID uint) error
	ToggleLike           func(postID string) ([]models.User, error)
	ToggleSave           func(postID string) (bool, error)
	FetchLikers          func(postID string) ([]models.User, error)
	FetchComments        func(postID string) ([]models.Comment, error)
}

// Fns returns the override set. Assign overrides before the stub is used
// concurrently; override assignment itself is not synchronized.
func (s *Stub) Fns() *StubFns { return &s.fns }

// NewStub creates an empty stub.
func NewStub(viewerID uint) *Stub {
	return &Stub{
		ViewerID: viewerID,
		likers:   make(map[string][]models.User),
		comments: make(map[string][]models.Comment),
		savedSet: make(map[string]bool),
		errs:     make(map[string]error),
		nextID:   100,
	}
}

// Seed setters.

func (s *Stub) SetUsers(users ...models.User)           { s.mu.Lock(); s.users = users; s.mu.Unlock() }
func (s *Stub) SetPosts(posts ...models.Post)           { s.mu.Lock(); s.posts = posts; s.mu.Unlock() }
func (s *Stub) SetFriends(friends ...models.User)       { s.mu.Lock(); s.friends = friends; s.mu.Unlock() }
func (s *Stub) SetSent(reqs ...models.FriendRequest)    { s.mu.Lock(); s.sent = reqs; s.mu.Unlock() }
func (s *Stub) SetReceived(reqs ...models.FriendRequest) {
	s.mu.Lock()
	s.received = reqs
	s.mu.Unlock()
}
func (s *Stub) SetSaved(saved ...models.SavedPost) { s.mu.Lock(); s.saved = saved; s.mu.Unlock() }
func (s *Stub) SetLikers(postID string, likers ...models.User) {
	s.mu.Lock()
	s.likers[postID] = likers
	s.mu.Unlock()
}
func (s *Stub) SetComments(postID string, comments ...models.Comment) {
	s.mu.Lock()
	s.comments[postID] = comments
	s.mu.Unlock()
}

// FailWith makes the named fetch operation return err.
func (s *Stub) FailWith(op string, err error) {
	s.mu.Lock()
	s.errs[op] = err
	s.mu.Unlock()
}

// Calls returns the operations invoked so far, in order.
func (s *Stub) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *Stub) begin(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
	return s.errs[op]
}

func (s *Stub) FetchUsers(ctx context.Context) ([]models.User, error) {
	if err := s.begin("FetchUsers"); err != nil {
		return nil, err
	}
	if s.fns.FetchUsers != nil {
		return s.fns.FetchUsers()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.User(nil), s.users...), nil
}

func (s *Stub) FetchPosts(ctx context.Context) ([]models.Post, error) {
	if err := s.begin("FetchPosts"); err != nil {
		return nil, err
	}
	if s.fns.FetchPosts != nil {
		return s.fns.FetchPosts()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Post(nil), s.posts...), nil
}

func (s *Stub) FetchFriends(ctx context.Context) ([]models.User, error) {
	if err := s.begin("FetchFriends"); err != nil {
		return nil, err
	}
	if s.fns.FetchFriends != nil {
		return s.fns.FetchFriends()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.User(nil), s.friends...), nil
}

func (s *Stub) FetchSentRequests(ctx context.Context) ([]models.FriendRequest, error) {
	if err := s.begin("FetchSentRequests"); err != nil {
		return nil, err
	}
	if s.fns.FetchSentRequests != nil {
		return s.fns.FetchSentRequests()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.FriendRequest(nil), s.sent...), nil
}

func (s *Stub) FetchReceivedRequests(ctx context.Context) ([]models.FriendRequest, error) {
	if err := s.begin("FetchReceivedRequests"); err != nil {
		return nil, err
	}
	if s.fns.FetchReceivedRequests != nil {
		return s.fns.FetchReceivedRequests()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.FriendRequest(nil), s.received...), nil
}

func (s *Stub) FetchSavedPosts(ctx context.Context) ([]models.SavedPost, error) {
	if err := s.begin("FetchSavedPosts"); err != nil {
		return nil, err
	}
	if s.fns.FetchSavedPosts != nil {
		return s.fns.FetchSavedPosts()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.SavedPost(nil), s.saved...), nil
}

func (s *Stub) SendFriendRequest(ctx context.Context, receiverID uint) (*models.FriendRequest, error) {
	if err := s.begin("SendFriendRequest"); err != nil {
		return nil, err
	}
	if s.fns.SendFriendRequest != nil {
		return s.fns.SendFriendRequest(receiverID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return &models.FriendRequest{
		ID:         s.nextID,
		SenderID:   s.ViewerID,
		ReceiverID: receiverID,
		Status:     models.FriendRequestPending,
	}, nil
}

func (s *Stub) CancelFriendRequest(ctx context.Context, requestID uint) error {
	if err := s.begin("CancelFriendRequest"); err != nil {
		return err
	}
	if s.fns.CancelFriendRequest != nil {
		return s.fns.CancelFriendRequest(requestID)
	}
	return nil
}

func (s *Stub) RespondFriendRequest(ctx context.Context, requestID uint, status models.FriendRequestStatus) (*models.FriendRequest, error) {
	if err := s.begin("RespondFriendRequest"); err != nil {
		return nil, err
	}
	if s.fns.RespondFriendRequest != nil {
		return s.fns.RespondFriendRequest(requestID, status)
	}
	return &models.FriendRequest{ID: requestID, Status: status}, nil
}

func (s *Stub) Unfriend(ctx context.Context, friendID uint) error {
	if err := s.begin("Unfriend"); err != nil {
		return err
	}
	if s.fns.Unfriend != nil {
		return s.fns.Unfriend(friendID)
	}
	return nil
}

func (s *Stub) FollowUser(ctx context.Context, userID uint) error {
	if err := s.begin("FollowUser"); err != nil {
		return err
	}
	if s.fns.FollowUser != nil {
		return s.fns.FollowUser(userID)
	}
	return nil
}

func (s *Stub) UnfollowUser(ctx context.Context, userID uint) error {
	if err := s.begin("UnfollowUser"); err != nil {
		return err
	}
	if s.fns.UnfollowUser != nil {
		return s.fns.UnfollowUser(userID)
	}
	return nil
}

func (s *Stub) ToggleLike(ctx context.Context, postID string) ([]models.User, error) {
	if err := s.begin("ToggleLike"); err != nil {
		return nil, err
	}
	if s.fns.ToggleLike != nil {
		return s.fns.ToggleLike(postID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.User(nil), s.likers[postID]...), nil
}

func (s *Stub) ToggleSave(ctx context.Context, postID string) (bool, error) {
	if err := s.begin("ToggleSave"); err != nil {
		return false, err
	}
	if s.fns.ToggleSave != nil {
		return s.fns.ToggleSave(postID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.savedSet[postID] = !s.savedSet[postID]
	return s.savedSet[postID], nil
}

func (s *Stub) FetchLikers(ctx context.Context, postID string) ([]models.User, error) {
	if err := s.begin("FetchLikers"); err != nil {
		return nil, err
	}
	if s.fns.FetchLikers != nil {
		return s.fns.FetchLikers(postID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.User(nil), s.likers[postID]...), nil
}

func (s *Stub) FetchComments(ctx context.Context, postID string) ([]models.Comment, error) {
	if err := s.begin("FetchComments"); err != nil {
		return nil, err
	}
	if s.fns.FetchComments != nil {
		return s.fns.FetchComments(postID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Comment(nil), s.comments[postID]...), nil
}
