package activity

import "time"

// Action names the mutation an Event records.
type Action string

const (
	ActionUpload Action = "upload"
	ActionDelete Action = "delete"
)

// Event is an audit record of a successful upload or deletion.
type Event struct {
	ID        string    `json:"id"`
	UserName  string    `json:"userName"`
	FileName  string    `json:"fileName"`
	ObjectKey string    `json:"objectKey"`
	Action    Action    `json:"action"`
	SizeBytes int64     `json:"sizeBytes"`
	CreatedAt time.Time `json:"createdAt"`
}
