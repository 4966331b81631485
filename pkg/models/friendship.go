package models

// FriendRequestStatus is the lifecycle status of a friend request.
type FriendRequestStatus string

const (
	// FriendRequestPending indicates a request awaiting a response.
	FriendRequestPending FriendRequestStatus = "pending"
	// FriendRequestAccepted indicates an accepted request.
	FriendRequestAccepted FriendRequestStatus = "accepted"
	// FriendRequestRejected indicates a rejected request.
	FriendRequestRejected FriendRequestStatus = "rejected"
)

// FriendRequest represents a friend request between two users. Only pending
// requests live in the engine's cache; accepted and rejected requests are
// removed and reflected in the friends sets instead. An optimistic request
// created before the backend confirms it carries ID 0.
type FriendRequest struct {
	ID         uint                `json:"id"`
	SenderID   uint                `json:"sender_id"`
	ReceiverID uint                `json:"receiver_id"`
	Status     FriendRequestStatus `json:"status"`
}

// RelationshipStatus is the derived relationship between a viewer and a
// subject. It is never stored, always recomputed from the friends set and
// the two pending-request sets.
type RelationshipStatus string

const (
	// Stranger means no relationship exists in either direction.
	Stranger RelationshipStatus = "stranger"
	// RequestSent means the viewer has a pending request to the subject.
	RequestSent RelationshipStatus = "request_sent"
	// RequestReceived means the subject has a pending request to the viewer.
	RequestReceived RelationshipStatus = "request_received"
	// Friends means the pair is in each other's friends sets.
	Friends RelationshipStatus = "friends"
)

// RelationshipAction identifies a relationship command.
type RelationshipAction string

const (
	ActionSendRequest   RelationshipAction = "send_request"
	ActionCancelRequest RelationshipAction = "cancel_request"
	ActionAcceptRequest RelationshipAction = "accept_request"
	ActionRejectRequest RelationshipAction = "reject_request"
	ActionUnfriend      RelationshipAction = "unfriend"
	ActionFollow        RelationshipAction = "follow"
	ActionUnfollow      RelationshipAction = "unfollow"
)

// RelationshipCommand is the payload for a relationship state transition.
type RelationshipCommand struct {
	Action    RelationshipAction `json:"action" validate:"required,oneof=send_request cancel_request accept_request reject_request unfriend follow unfollow"`
	SubjectID uint               `json:"subject_id" validate:"required"`
}

// CommandOutcome reports how a relationship command resolved.
type CommandOutcome string

const (
	// OutcomeApplied means the transition ran and was confirmed remotely.
	OutcomeApplied CommandOutcome = "applied"
	// OutcomeAlreadyResolved means the command found nothing to do because
	// the local or remote state already reflects the requested end state.
	OutcomeAlreadyResolved CommandOutcome = "already_resolved"
)
