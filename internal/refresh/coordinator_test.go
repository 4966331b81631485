package refresh

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/nano-midea/client/internal/apitest"
	"github.com/anonto42/nano-midea/client/internal/cache"
	"github.com/anonto42/nano-midea/client/pkg/api"
	"github.com/anonto42/nano-midea/client/pkg/models"
)

const viewerID = uint(1)

func newCoordinator() (*Coordinator, *cache.Store, *apitest.Stub) {
	store := cache.NewStore()
	stub := apitest.NewStub(viewerID)
	return NewCoordinator(store, stub, viewerID), store, stub
}

func TestRefreshAll_SeedsEveryStore(t *testing.T) {
	c, store, stub := newCoordinator()
	stub.SetUsers(
		models.User{ID: viewerID, Name: "viewer"},
		models.User{ID: 2, Name: "alice"},
		models.User{ID: 3, Name: "bob"},
	)
	stub.SetPosts(models.Post{ID: "p1", UserID: 2, Content: "hi", Likes: []uint{3}})
	stub.SetFriends(models.User{ID: 2, Name: "alice"})
	stub.SetSent(models.FriendRequest{ID: 10, SenderID: viewerID, ReceiverID: 3, Status: models.FriendRequestPending})
	stub.SetReceived(models.FriendRequest{ID: 11, SenderID: 4, ReceiverID: viewerID, Status: models.FriendRequestPending})
	stub.SetSaved(models.SavedPost{ID: 5, UserID: viewerID, PostID: "p1"})

	require.NoError(t, c.RefreshAll(context.Background()))

	viewer, ok := store.User(viewerID)
	require.True(t, ok)
	assert.Equal(t, []uint{2}, viewer.Friends)

	post, ok := store.Post("p1")
	require.True(t, ok)
	assert.Equal(t, []uint{3}, post.Likes)

	_, ok = store.Request(viewerID, 3)
	assert.True(t, ok)
	_, ok = store.Request(4, viewerID)
	assert.True(t, ok)
	_, ok = store.Saved(viewerID, "p1")
	assert.True(t, ok)
}

func TestRefreshAll_SetsFriendsOnUncachedViewer(t *testing.T) {
	c, store, stub := newCoordinator()
	stub.SetFriends(models.User{ID: 2, Name: "alice"})

	require.NoError(t, c.RefreshAll(context.Background()))

	viewer, ok := store.User(viewerID)
	require.True(t, ok)
	assert.Equal(t, []uint{2}, viewer.Friends)
}

func TestRefreshAll_ConcurrentCallsCoalesce(t *testing.T) {
	c, _, stub := newCoordinator()

	started := make(chan struct{})
	release := make(chan struct{})
	stub.Fns().FetchUsers = func() ([]models.User, error) {
		close(started)
		<-release
		return nil, nil
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(1)
	go func() { defer wg.Done(); errs[0] = c.RefreshAll(context.Background()) }()
	<-started
	wg.Add(1)
	go func() { defer wg.Done(); errs[1] = c.RefreshAll(context.Background()) }()

	close(release)
	wg.Wait()
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])

	counts := map[string]int{}
	for _, call := range stub.Calls() {
		counts[call]++
	}
	for op, n := range counts {
		assert.Equal(t, 1, n, "operation %s must run once for coalesced refreshes", op)
	}
}

func TestRefreshAll_SharesErrorAcrossCoalescedCalls(t *testing.T) {
	c, _, stub := newCoordinator()

	started := make(chan struct{})
	release := make(chan struct{})
	stub.Fns().FetchPosts = func() ([]models.Post, error) {
		close(started)
		<-release
		return nil, &api.Error{Code: api.ErrCodeNetworkFailure, Message: "boom"}
	}

	errc := make(chan error, 1)
	go func() { errc <- c.RefreshAll(context.Background()) }()
	<-started
	second := make(chan error, 1)
	go func() { second <- c.RefreshAll(context.Background()) }()

	close(release)
	err1 := <-errc
	err2 := <-second
	require.Error(t, err1)
	assert.Equal(t, err1, err2, "the waiter shares the in-flight refresh result")
}

func TestRefreshAll_StaleSnapshotLosesToOptimisticDelete(t *testing.T) {
	c, store, stub := newCoordinator()
	store.PutRequest(models.FriendRequest{ID: 10, SenderID: viewerID, ReceiverID: 3, Status: models.FriendRequestPending}, store.NextVersion())

	started := make(chan struct{})
	release := make(chan struct{})
	stub.Fns().FetchSentRequests = func() ([]models.FriendRequest, error) {
		close(started)
		<-release
		// Backend still reports the request the viewer is about to cancel.
		return []models.FriendRequest{{ID: 10, SenderID: viewerID, ReceiverID: 3, Status: models.FriendRequestPending}}, nil
	}

	errc := make(chan error, 1)
	go func() { errc <- c.RefreshAll(context.Background()) }()
	<-started

	// Optimistic cancel lands while the snapshot is in flight.
	store.DeleteRequest(viewerID, 3, store.NextVersion())

	close(release)
	require.NoError(t, <-errc)

	_, ok := store.Request(viewerID, 3)
	assert.False(t, ok, "in-flight snapshot must not resurrect the cancelled request")
}

func TestRefreshAll_FetchErrorPropagates(t *testing.T) {
	c, store, stub := newCoordinator()
	stub.SetUsers(models.User{ID: 2, Name: "alice"})
	stub.FailWith("FetchSavedPosts", &api.Error{Code: api.ErrCodeNetworkFailure, Message: "boom"})

	err := c.RefreshAll(context.Background())
	require.Error(t, err)
	assert.True(t, api.IsNetworkFailure(err))

	// Fetches that succeeded still land.
	_, ok := store.User(2)
	assert.True(t, ok)
}
