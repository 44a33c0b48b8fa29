package audit

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Record describes one completed request. Records are write-once: nothing in
// this service ever updates or deletes them (the archiver only moves expired
// ones to cold storage).
type Record struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Username   string             `bson:"username" json:"username"`
	Email      string             `bson:"email,omitempty" json:"email,omitempty"`
	Method     string             `bson:"method" json:"method"`
	Path       string             `bson:"path" json:"path"`
	Params     map[string]string  `bson:"params,omitempty" json:"params,omitempty"`
	Query      string             `bson:"query,omitempty" json:"query,omitempty"`
	Body       string             `bson:"body,omitempty" json:"body,omitempty"`
	StatusCode int                `bson:"status_code" json:"status_code"`
	DurationMs int64              `bson:"duration_ms" json:"duration_ms"`
	ClientIP   string             `bson:"client_ip" json:"client_ip"`
	UserAgent  string             `bson:"user_agent" json:"user_agent"`
	CreatedAt  time.Time          `bson:"created_at" json:"created_at"`
}
