package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddID(t *testing.T) {
	ids := []uint{1, 2}

	got := AddID(ids, 3)
	assert.Equal(t, []uint{1, 2, 3}, got)
	assert.Equal(t, []uint{1, 2}, ids, "input must not be mutated")

	assert.Equal(t, []uint{1, 2}, AddID(ids, 2), "adding a present id is a no-op")
}

func TestRemoveID(t *testing.T) {
	ids := []uint{1, 2, 3}

	assert.Equal(t, []uint{1, 3}, RemoveID(ids, 2))
	assert.Equal(t, []uint{1, 2, 3}, ids, "input must not be mutated")
	assert.Equal(t, []uint{1, 2, 3}, RemoveID(ids, 9))
}

func TestRelationshipSets(t *testing.T) {
	u := User{ID: 1, Friends: []uint{2}, Following: []uint{3}}
	assert.True(t, u.HasFriend(2))
	assert.False(t, u.HasFriend(3))
	assert.True(t, u.IsFollowing(3))
	assert.False(t, u.IsFollowing(2))
}
