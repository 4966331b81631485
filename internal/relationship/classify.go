// Package relationship derives pairwise relationship status and executes
// relationship commands against the entity cache and the backend.
package relationship

import "github.com/anonto42/nano-midea/client/pkg/models"

// Classify derives the relationship status between the viewer and a subject
// from the three source collections. Pure function, safe to call on every
// render.
//
// The order of the checks is the tie-break policy: friendship dominates
// stale pending entries (a request should be cleared on acceptance, but if
// cleanup lags, friends still wins), and a received request dominates a
// sent one when both directions are pending at once.
func Classify(subjectID uint, friendIDs, sentReceiverIDs, receivedSenderIDs []uint) models.RelationshipStatus {
	switch {
	case contains(friendIDs, subjectID):
		return models.Friends
	case contains(receivedSenderIDs, subjectID):
		return models.RequestReceived
	case contains(sentReceiverIDs, subjectID):
		return models.RequestSent
	default:
		return models.Stranger
	}
}

func contains(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
