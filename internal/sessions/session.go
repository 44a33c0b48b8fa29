package sessions

import "time"

// Session is a refresh session bound to a username. Stored in Redis when
// available, otherwise in a Mongo collection.
type Session struct {
	ID           string    `bson:"_id,omitempty" json:"id"`
	RefreshToken string    `bson:"refresh_token" json:"refresh_token"`
	Username     string    `bson:"username" json:"username"`
	ExpiresAt    time.Time `bson:"expires_at" json:"expires_at"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
}
