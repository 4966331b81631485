package relationship

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/anonto42/nano-midea/client/internal/cache"
	"github.com/anonto42/nano-midea/client/pkg/api"
	"github.com/anonto42/nano-midea/client/pkg/models"
)

// ErrSelfCommand is returned for commands whose subject is the viewer.
var ErrSelfCommand = errors.New("relationship command cannot target the viewer")

// Processor executes relationship commands as optimistic state transitions.
// Every command mutates the cache synchronously before the remote call is
// issued, then reconciles: the authoritative response is merged on success,
// the pre-command snapshot is restored on failure, and benign failures
// (conflict, not-found) resolve to a no-op because the end state is already
// correct. Nothing is retried automatically.
type Processor struct {
	viewerID uint
	store    *cache.Store
	remote   api.Remote
	validate *validator.Validate
}

// NewProcessor creates a Processor acting on behalf of the given viewer.
func NewProcessor(store *cache.Store, remote api.Remote, viewerID uint) *Processor {
	return &Processor{
		viewerID: viewerID,
		store:    store,
		remote:   remote,
		validate: validator.New(),
	}
}

// Status classifies the viewer's relationship to the subject from the
// cached friends set and pending-request collections.
func (p *Processor) Status(subjectID uint) models.RelationshipStatus {
	var friendIDs []uint
	if viewer, ok := p.store.User(p.viewerID); ok {
		friendIDs = viewer.Friends
	}

	var sentReceiverIDs, receivedSenderIDs []uint
	for _, r := range p.pendingRequests() {
		switch {
		case r.SenderID == p.viewerID:
			sentReceiverIDs = append(sentReceiverIDs, r.ReceiverID)
		case r.ReceiverID == p.viewerID:
			receivedSenderIDs = append(receivedSenderIDs, r.SenderID)
		}
	}

	return Classify(subjectID, friendIDs, sentReceiverIDs, receivedSenderIDs)
}

func (p *Processor) pendingRequests() []models.FriendRequest {
	return p.store.Requests(func(r models.FriendRequest) bool {
		return r.Status == models.FriendRequestPending &&
			(r.SenderID == p.viewerID || r.ReceiverID == p.viewerID)
	})
}

// Do validates and executes a relationship command.
func (p *Processor) Do(ctx context.Context, cmd models.RelationshipCommand) (models.CommandOutcome, error) {
	if err := p.validate.Struct(cmd); err != nil {
		return "", fmt.Errorf("invalid relationship command: %w", err)
	}
	if cmd.SubjectID == p.viewerID {
		return "", ErrSelfCommand
	}

	switch cmd.Action {
	case models.ActionSendRequest:
		return p.sendRequest(ctx, cmd.SubjectID)
	case models.ActionCancelRequest:
		return p.cancelRequest(ctx, cmd.SubjectID)
	case models.ActionAcceptRequest:
		return p.respondRequest(ctx, cmd.SubjectID, models.FriendRequestAccepted)
	case models.ActionRejectRequest:
		return p.respondRequest(ctx, cmd.SubjectID, models.FriendRequestRejected)
	case models.ActionUnfriend:
		return p.unfriend(ctx, cmd.SubjectID)
	case models.ActionFollow:
		return p.follow(ctx, cmd.SubjectID)
	case models.ActionUnfollow:
		return p.unfollow(ctx, cmd.SubjectID)
	default:
		return "", fmt.Errorf("unknown relationship action %q", cmd.Action)
	}
}

// sendRequest creates a pending request viewer -> subject.
func (p *Processor) sendRequest(ctx context.Context, subjectID uint) (models.CommandOutcome, error) {
	if p.Status(subjectID) != models.Stranger {
		return models.OutcomeAlreadyResolved, nil
	}

	optimistic := models.FriendRequest{
		SenderID:   p.viewerID,
		ReceiverID: subjectID,
		Status:     models.FriendRequestPending,
	}
	p.store.PutRequest(optimistic, p.store.NextVersion())

	confirmed, err := p.remote.SendFriendRequest(ctx, subjectID)
	if err != nil {
		if api.IsBenign(err) {
			slog.Debug("send request already resolved remotely", "subject_id", subjectID, "error", err)
			return models.OutcomeAlreadyResolved, nil
		}
		p.store.DeleteRequest(p.viewerID, subjectID, p.store.NextVersion())
		slog.Error("send request rolled back", "subject_id", subjectID, "error", err)
		return "", fmt.Errorf("send friend request: %w", err)
	}

	// Merge the authoritative id and timestamps over the optimistic row.
	p.store.PutRequest(*confirmed, p.store.NextVersion())
	return models.OutcomeApplied, nil
}

// cancelRequest withdraws the viewer's pending request to the subject.
func (p *Processor) cancelRequest(ctx context.Context, subjectID uint) (models.CommandOutcome, error) {
	prior, ok := p.store.Request(p.viewerID, subjectID)
	if !ok || prior.Status != models.FriendRequestPending {
		return models.OutcomeAlreadyResolved, nil
	}

	p.store.DeleteRequest(p.viewerID, subjectID, p.store.NextVersion())

	if prior.ID == 0 {
		// Never confirmed remotely, nothing to cancel there.
		return models.OutcomeApplied, nil
	}
	if err := p.remote.CancelFriendRequest(ctx, prior.ID); err != nil {
		if api.IsBenign(err) {
			return models.OutcomeAlreadyResolved, nil
		}
		p.store.PutRequest(prior, p.store.NextVersion())
		slog.Error("cancel request rolled back", "request_id", prior.ID, "error", err)
		return "", fmt.Errorf("cancel friend request: %w", err)
	}
	return models.OutcomeApplied, nil
}

// respondRequest accepts or rejects the subject's pending request to the
// viewer. Accepting adds each user to the other's friends set.
func (p *Processor) respondRequest(ctx context.Context, subjectID uint, status models.FriendRequestStatus) (models.CommandOutcome, error) {
	prior, ok := p.store.Request(subjectID, p.viewerID)
	if !ok || prior.Status != models.FriendRequestPending {
		// Second accept/reject of an already-resolved request is a no-op.
		return models.OutcomeAlreadyResolved, nil
	}

	version := p.store.NextVersion()
	p.store.DeleteRequest(subjectID, p.viewerID, version)
	// Collapse a duplicate pending row in the opposite direction, if both
	// users requested each other before either responded.
	reverse, hadReverse := p.store.Request(p.viewerID, subjectID)
	if hadReverse {
		p.store.DeleteRequest(p.viewerID, subjectID, version)
	}

	var priorViewer, priorSubject *models.User
	if status == models.FriendRequestAccepted {
		priorViewer = p.updateUser(p.viewerID, version, func(u *models.User) {
			u.Friends = models.AddID(u.Friends, subjectID)
		})
		priorSubject = p.updateUser(subjectID, version, func(u *models.User) {
			u.Friends = models.AddID(u.Friends, p.viewerID)
		})
	}

	rollback := func() {
		version := p.store.NextVersion()
		p.store.PutRequest(prior, version)
		if hadReverse {
			p.store.PutRequest(reverse, version)
		}
		p.restoreUsers(version, priorViewer, priorSubject)
	}

	if _, err := p.remote.RespondFriendRequest(ctx, prior.ID, status); err != nil {
		if api.IsBenign(err) {
			slog.Debug("request already resolved remotely", "request_id", prior.ID, "error", err)
			return models.OutcomeAlreadyResolved, nil
		}
		rollback()
		slog.Error("respond request rolled back", "request_id", prior.ID, "status", status, "error", err)
		return "", fmt.Errorf("respond to friend request: %w", err)
	}
	return models.OutcomeApplied, nil
}

// unfriend removes each user from the other's friends set.
func (p *Processor) unfriend(ctx context.Context, subjectID uint) (models.CommandOutcome, error) {
	viewer, ok := p.store.User(p.viewerID)
	if !ok || !viewer.HasFriend(subjectID) {
		return models.OutcomeAlreadyResolved, nil
	}

	version := p.store.NextVersion()
	priorViewer := p.updateUser(p.viewerID, version, func(u *models.User) {
		u.Friends = models.RemoveID(u.Friends, subjectID)
	})
	priorSubject := p.updateUser(subjectID, version, func(u *models.User) {
		u.Friends = models.RemoveID(u.Friends, p.viewerID)
	})

	if err := p.remote.Unfriend(ctx, subjectID); err != nil {
		if api.IsBenign(err) {
			return models.OutcomeAlreadyResolved, nil
		}
		p.restoreUsers(p.store.NextVersion(), priorViewer, priorSubject)
		slog.Error("unfriend rolled back", "subject_id", subjectID, "error", err)
		return "", fmt.Errorf("unfriend: %w", err)
	}
	return models.OutcomeApplied, nil
}

// follow adds the subject to the viewer's following set.
func (p *Processor) follow(ctx context.Context, subjectID uint) (models.CommandOutcome, error) {
	if viewer, ok := p.store.User(p.viewerID); ok && viewer.IsFollowing(subjectID) {
		return models.OutcomeAlreadyResolved, nil
	}

	version := p.store.NextVersion()
	priorViewer := p.updateUser(p.viewerID, version, func(u *models.User) {
		u.Following = models.AddID(u.Following, subjectID)
	})
	priorSubject := p.updateUser(subjectID, version, func(u *models.User) {
		u.Followers = models.AddID(u.Followers, p.viewerID)
	})

	if err := p.remote.FollowUser(ctx, subjectID); err != nil {
		if api.IsBenign(err) {
			return models.OutcomeAlreadyResolved, nil
		}
		p.restoreUsers(p.store.NextVersion(), priorViewer, priorSubject)
		slog.Error("follow rolled back", "subject_id", subjectID, "error", err)
		return "", fmt.Errorf("follow user: %w", err)
	}
	return models.OutcomeApplied, nil
}

// unfollow removes the subject from the viewer's following set.
func (p *Processor) unfollow(ctx context.Context, subjectID uint) (models.CommandOutcome, error) {
	viewer, ok := p.store.User(p.viewerID)
	if !ok || !viewer.IsFollowing(subjectID) {
		return models.OutcomeAlreadyResolved, nil
	}

	version := p.store.NextVersion()
	priorViewer := p.updateUser(p.viewerID, version, func(u *models.User) {
		u.Following = models.RemoveID(u.Following, subjectID)
	})
	priorSubject := p.updateUser(subjectID, version, func(u *models.User) {
		u.Followers = models.RemoveID(u.Followers, p.viewerID)
	})

	if err := p.remote.UnfollowUser(ctx, subjectID); err != nil {
		if api.IsBenign(err) {
			return models.OutcomeAlreadyResolved, nil
		}
		p.restoreUsers(p.store.NextVersion(), priorViewer, priorSubject)
		slog.Error("unfollow rolled back", "subject_id", subjectID, "error", err)
		return "", fmt.Errorf("unfollow user: %w", err)
	}
	return models.OutcomeApplied, nil
}

// updateUser applies fn to a copy of the cached user and writes it back at
// the given version. Returns the prior state for rollback, or nil if the
// user is not cached (the mutation is then skipped; the next refresh fills
// the gap).
func (p *Processor) updateUser(id uint, version int64, fn func(*models.User)) *models.User {
	prior, ok := p.store.User(id)
	if !ok {
		return nil
	}
	updated := prior
	fn(&updated)
	p.store.PutUser(updated, version)
	return &prior
}

func (p *Processor) restoreUsers(version int64, users ...*models.User) {
	for _, u := range users {
		if u != nil {
			p.store.PutUser(*u, version)
		}
	}
}
