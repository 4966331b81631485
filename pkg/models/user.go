package models

// User represents a user profile together with the three relationship
// sets the engine reconciles (friends, followers, following).
type User struct {
	ID       uint   `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
	Bio      string `json:"bio,omitempty"`

	Friends   []uint `json:"friends,omitempty"`
	Followers []uint `json:"followers,omitempty"`
	Following []uint `json:"following,omitempty"`
}

// HasFriend reports whether the given user id is in the friends set.
func (u User) HasFriend(id uint) bool {
	return containsID(u.Friends, id)
}

// IsFollowing reports whether the given user id is in the following set.
func (u User) IsFollowing(id uint) bool {
	return containsID(u.Following, id)
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// AddID returns a new slice with id appended, unless it is already present.
// The input slice is never mutated; cached entities share backing arrays
// with the copies handed to readers.
func AddID(ids []uint, id uint) []uint {
	if containsID(ids, id) {
		return ids
	}
	out := make([]uint, 0, len(ids)+1)
	out = append(out, ids...)
	return append(out, id)
}

// RemoveID returns ids without id. Order of the remaining ids is preserved.
func RemoveID(ids []uint, id uint) []uint {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
