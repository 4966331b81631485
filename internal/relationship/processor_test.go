package relationship

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anonto42/nano-midea/client/internal/apitest"
	"github.com/anonto42/nano-midea/client/internal/cache"
	"github.com/anonto42/nano-midea/client/pkg/api"
	"github.com/anonto42/nano-midea/client/pkg/models"
)

const viewerID = uint(1)

func newProcessor(t *testing.T) (*Processor, *cache.Store, *apitest.Stub) {
	t.Helper()
	store := cache.NewStore()
	stub := apitest.NewStub(viewerID)
	store.PutUser(models.User{ID: viewerID, Name: "viewer"}, store.NextVersion())
	store.PutUser(models.User{ID: 2, Name: "subject"}, store.NextVersion())
	return NewProcessor(store, stub, viewerID), store, stub
}

func do(t *testing.T, p *Processor, action models.RelationshipAction, subjectID uint) models.CommandOutcome {
	t.Helper()
	outcome, err := p.Do(context.Background(), models.RelationshipCommand{Action: action, SubjectID: subjectID})
	require.NoError(t, err)
	return outcome
}

func TestDo_RejectsInvalidCommands(t *testing.T) {
	p, _, stub := newProcessor(t)

	_, err := p.Do(context.Background(), models.RelationshipCommand{Action: "poke", SubjectID: 2})
	assert.Error(t, err)

	_, err = p.Do(context.Background(), models.RelationshipCommand{Action: models.ActionSendRequest})
	assert.Error(t, err)

	_, err = p.Do(context.Background(), models.RelationshipCommand{Action: models.ActionSendRequest, SubjectID: viewerID})
	assert.ErrorIs(t, err, ErrSelfCommand)

	assert.Empty(t, stub.Calls(), "invalid commands must not reach the remote")
}

func TestSendRequest_AppliesAndMergesConfirmedID(t *testing.T) {
	p, store, _ := newProcessor(t)

	outcome := do(t, p, models.ActionSendRequest, 2)
	assert.Equal(t, models.OutcomeApplied, outcome)
	assert.Equal(t, models.RequestSent, p.Status(2))

	r, ok := store.Request(viewerID, 2)
	require.True(t, ok)
	assert.NotZero(t, r.ID, "confirmed request id must replace the optimistic zero")
}

func TestSendRequest_RollsBackOnNetworkFailure(t *testing.T) {
	p, store, stub := newProcessor(t)
	stub.FailWith("SendFriendRequest", &api.Error{Code: api.ErrCodeNetworkFailure, Message: "boom"})

	_, err := p.Do(context.Background(), models.RelationshipCommand{Action: models.ActionSendRequest, SubjectID: 2})
	require.Error(t, err)
	assert.True(t, api.IsNetworkFailure(err))

	assert.Equal(t, models.Stranger, p.Status(2))
	_, ok := store.Request(viewerID, 2)
	assert.False(t, ok)
}

func TestSendRequest_ConflictResolvesToNoOp(t *testing.T) {
	p, _, stub := newProcessor(t)
	stub.FailWith("SendFriendRequest", &api.Error{Code: api.ErrCodeConflict, Status: 409, Message: "already pending"})

	outcome := do(t, p, models.ActionSendRequest, 2)
	assert.Equal(t, models.OutcomeAlreadyResolved, outcome)
}

func TestSendRequest_SkippedWhenNotStranger(t *testing.T) {
	p, _, stub := newProcessor(t)

	do(t, p, models.ActionSendRequest, 2)
	outcome := do(t, p, models.ActionSendRequest, 2)

	assert.Equal(t, models.OutcomeAlreadyResolved, outcome)
	assert.Equal(t, []string{"SendFriendRequest"}, stub.Calls())
}

func TestCancelRequest_ReturnsToStranger(t *testing.T) {
	p, store, _ := newProcessor(t)

	do(t, p, models.ActionSendRequest, 2)
	outcome := do(t, p, models.ActionCancelRequest, 2)

	assert.Equal(t, models.OutcomeApplied, outcome)
	assert.Equal(t, models.Stranger, p.Status(2))
	assert.Empty(t, store.Requests(nil), "no residual pending entries after cancel")
}

func TestCancelRequest_RollsBackOnFailure(t *testing.T) {
	p, store, stub := newProcessor(t)
	do(t, p, models.ActionSendRequest, 2)

	stub.FailWith("CancelFriendRequest", &api.Error{Code: api.ErrCodeNetworkFailure, Message: "boom"})
	_, err := p.Do(context.Background(), models.RelationshipCommand{Action: models.ActionCancelRequest, SubjectID: 2})
	require.Error(t, err)

	assert.Equal(t, models.RequestSent, p.Status(2))
	_, ok := store.Request(viewerID, 2)
	assert.True(t, ok)
}

func TestAcceptRequest_FriendshipIsSymmetric(t *testing.T) {
	p, store, _ := newProcessor(t)
	store.PutRequest(models.FriendRequest{ID: 7, SenderID: 2, ReceiverID: viewerID, Status: models.FriendRequestPending}, store.NextVersion())

	outcome := do(t, p, models.ActionAcceptRequest, 2)
	assert.Equal(t, models.OutcomeApplied, outcome)
	assert.Equal(t, models.Friends, p.Status(2))

	viewer, _ := store.User(viewerID)
	subject, _ := store.User(2)
	assert.True(t, viewer.HasFriend(2))
	assert.True(t, subject.HasFriend(viewerID))
	_, ok := store.Request(2, viewerID)
	assert.False(t, ok)
}

func TestAcceptRequest_SecondAcceptIsNoOp(t *testing.T) {
	p, store, stub := newProcessor(t)
	store.PutRequest(models.FriendRequest{ID: 7, SenderID: 2, ReceiverID: viewerID, Status: models.FriendRequestPending}, store.NextVersion())

	do(t, p, models.ActionAcceptRequest, 2)
	calls := len(stub.Calls())

	outcome := do(t, p, models.ActionAcceptRequest, 2)
	assert.Equal(t, models.OutcomeAlreadyResolved, outcome)
	assert.Len(t, stub.Calls(), calls, "resolved request must not be re-sent")
}

func TestAcceptRequest_CollapsesDuplicateOppositePending(t *testing.T) {
	p, store, _ := newProcessor(t)
	v := store.NextVersion()
	store.PutRequest(models.FriendRequest{ID: 7, SenderID: 2, ReceiverID: viewerID, Status: models.FriendRequestPending}, v)
	store.PutRequest(models.FriendRequest{ID: 8, SenderID: viewerID, ReceiverID: 2, Status: models.FriendRequestPending}, v)

	do(t, p, models.ActionAcceptRequest, 2)

	assert.Equal(t, models.Friends, p.Status(2))
	assert.Empty(t, store.Requests(nil), "both directions must be cleared on resolution")
}

func TestAcceptRequest_RollbackRestoresRequestAndFriends(t *testing.T) {
	p, store, stub := newProcessor(t)
	store.PutRequest(models.FriendRequest{ID: 7, SenderID: 2, ReceiverID: viewerID, Status: models.FriendRequestPending}, store.NextVersion())
	stub.FailWith("RespondFriendRequest", &api.Error{Code: api.ErrCodeUnauthorized, Status: 401, Message: "expired"})

	_, err := p.Do(context.Background(), models.RelationshipCommand{Action: models.ActionAcceptRequest, SubjectID: 2})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	assert.Equal(t, models.RequestReceived, p.Status(2))
	viewer, _ := store.User(viewerID)
	assert.False(t, viewer.HasFriend(2))
	r, ok := store.Request(2, viewerID)
	require.True(t, ok)
	assert.Equal(t, uint(7), r.ID)
}

func TestRejectRequest_ClearsPendingWithoutFriendship(t *testing.T) {
	p, store, _ := newProcessor(t)
	store.PutRequest(models.FriendRequest{ID: 7, SenderID: 2, ReceiverID: viewerID, Status: models.FriendRequestPending}, store.NextVersion())

	outcome := do(t, p, models.ActionRejectRequest, 2)
	assert.Equal(t, models.OutcomeApplied, outcome)
	assert.Equal(t, models.Stranger, p.Status(2))

	viewer, _ := store.User(viewerID)
	assert.False(t, viewer.HasFriend(2))
}

func TestUnfriend_RemovesBothSides(t *testing.T) {
	p, store, _ := newProcessor(t)
	v := store.NextVersion()
	store.PutUser(models.User{ID: viewerID, Friends: []uint{2}}, v)
	store.PutUser(models.User{ID: 2, Friends: []uint{viewerID}}, v)

	outcome := do(t, p, models.ActionUnfriend, 2)
	assert.Equal(t, models.OutcomeApplied, outcome)
	assert.Equal(t, models.Stranger, p.Status(2))

	subject, _ := store.User(2)
	assert.False(t, subject.HasFriend(viewerID))
}

func TestUnfriend_RollsBackOnFailure(t *testing.T) {
	p, store, stub := newProcessor(t)
	v := store.NextVersion()
	store.PutUser(models.User{ID: viewerID, Friends: []uint{2}}, v)
	store.PutUser(models.User{ID: 2, Friends: []uint{viewerID}}, v)
	stub.FailWith("Unfriend", &api.Error{Code: api.ErrCodeNetworkFailure, Message: "boom"})

	_, err := p.Do(context.Background(), models.RelationshipCommand{Action: models.ActionUnfriend, SubjectID: 2})
	require.Error(t, err)

	assert.Equal(t, models.Friends, p.Status(2))
	subject, _ := store.User(2)
	assert.True(t, subject.HasFriend(viewerID))
}

func TestUnfriend_NotFriendsIsNoOp(t *testing.T) {
	p, _, stub := newProcessor(t)

	outcome := do(t, p, models.ActionUnfriend, 2)
	assert.Equal(t, models.OutcomeAlreadyResolved, outcome)
	assert.Empty(t, stub.Calls())
}

func TestFollowUnfollow(t *testing.T) {
	p, store, stub := newProcessor(t)

	outcome := do(t, p, models.ActionFollow, 2)
	assert.Equal(t, models.OutcomeApplied, outcome)
	viewer, _ := store.User(viewerID)
	subject, _ := store.User(2)
	assert.True(t, viewer.IsFollowing(2))
	assert.Contains(t, subject.Followers, viewerID)

	// Idempotent re-follow stays local.
	outcome = do(t, p, models.ActionFollow, 2)
	assert.Equal(t, models.OutcomeAlreadyResolved, outcome)
	assert.Equal(t, []string{"FollowUser"}, stub.Calls())

	outcome = do(t, p, models.ActionUnfollow, 2)
	assert.Equal(t, models.OutcomeApplied, outcome)
	viewer, _ = store.User(viewerID)
	assert.False(t, viewer.IsFollowing(2))
}

func TestFollow_RollsBackOnFailure(t *testing.T) {
	p, store, stub := newProcessor(t)
	stub.FailWith("FollowUser", &api.Error{Code: api.ErrCodeNetworkFailure, Message: "boom"})

	_, err := p.Do(context.Background(), models.RelationshipCommand{Action: models.ActionFollow, SubjectID: 2})
	require.Error(t, err)

	viewer, _ := store.User(viewerID)
	subject, _ := store.User(2)
	assert.False(t, viewer.IsFollowing(2))
	assert.NotContains(t, subject.Followers, viewerID)
}
