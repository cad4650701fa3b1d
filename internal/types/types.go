package types

import "time"

// User is a persisted identity: a name and the face thumbnail captured at registration.
// Signatures are never stored; they are recomputed from Photo when the cache is built.
type User struct {
	ID        int64
	Name      string
	Photo     []byte // JPEG thumbnail of the face region
	CreatedAt time.Time
}

// UserSummary is the listing view of a User without the photo payload
type UserSummary struct {
	ID        int64
	Name      string
	PhotoSize int
	CreatedAt time.Time
}
