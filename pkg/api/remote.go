package api

import (
	"context"

	"github.com/anonto42/nano-midea/client/pkg/models"
)

// Remote is the backend collaborator the engine reconciles against. All
// methods are blocking; the engine applies optimistic mutations before
// calling them and reconciles with the returned authoritative state.
//
// Failed calls return an *Error so the caller can distinguish benign
// conflicts from failures that require rollback.
type Remote interface {
	// Collection fetches used by the refresh coordinator.
	FetchUsers(ctx context.Context) ([]models.User, error)
	FetchPosts(ctx context.Context) ([]models.Post, error)
	FetchFriends(ctx context.Context) ([]models.User, error)
	FetchSentRequests(ctx context.Context) ([]models.FriendRequest, error)
	FetchReceivedRequests(ctx context.Context) ([]models.FriendRequest, error)
	FetchSavedPosts(ctx context.Context) ([]models.SavedPost, error)

	// Relationship commands.
	SendFriendRequest(ctx context.Context, receiverID uint) (*models.FriendRequest, error)
	CancelFriendRequest(ctx context.Context, requestID uint) error
	RespondFriendRequest(ctx context.Context, requestID uint, status models.FriendRequestStatus) (*models.FriendRequest, error)
	Unfriend(ctx context.Context, friendID uint) error
	FollowUser(ctx context.Context, userID uint) error
	UnfollowUser(ctx context.Context, userID uint) error

	// Engagement operations. ToggleLike returns the authoritative likers
	// list after the toggle; ToggleSave returns the authoritative saved flag.
	ToggleLike(ctx context.Context, postID string) ([]models.User, error)
	ToggleSave(ctx context.Context, postID string) (bool, error)
	FetchLikers(ctx context.Context, postID string) ([]models.User, error)
	FetchComments(ctx context.Context, postID string) ([]models.Comment, error)
}
