package types

import "github.com/google/uuid"

// AWSAccessPayload is the request body and asynq payload for granting a user
// membership of an AWS Identity Store group.
type AWSAccessPayload struct {
	UserID  uuid.UUID `json:"userId" validate:"required"`
	GroupID string    `json:"groupId" validate:"required"`
}
