package relationship

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/anonto42/nano-midea/client/pkg/models"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		subject  uint
		friends  []uint
		sent     []uint
		received []uint
		want     models.RelationshipStatus
	}{
		{
			name:    "no relationship",
			subject: 2,
			want:    models.Stranger,
		},
		{
			name:    "viewer sent a request",
			subject: 2,
			sent:    []uint{2},
			want:    models.RequestSent,
		},
		{
			name:     "subject sent a request",
			subject:  2,
			received: []uint{2},
			want:     models.RequestReceived,
		},
		{
			name:    "established friendship",
			subject: 2,
			friends: []uint{2, 5},
			want:    models.Friends,
		},
		{
			name:    "friendship wins over a stale sent entry",
			subject: 2,
			friends: []uint{2},
			sent:    []uint{2},
			want:    models.Friends,
		},
		{
			name:     "received wins when both directions are pending",
			subject:  2,
			sent:     []uint{2},
			received: []uint{2},
			want:     models.RequestReceived,
		},
		{
			name:    "entries for other users are ignored",
			subject: 2,
			friends: []uint{5},
			sent:    []uint{6},
			want:    models.Stranger,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Classify(tc.subject, tc.friends, tc.sent, tc.received)
			assert.Equal(t, tc.want, got)

			// Pure function: a second call with the same inputs agrees.
			assert.Equal(t, got, Classify(tc.subject, tc.friends, tc.sent, tc.received))
		})
	}
}
