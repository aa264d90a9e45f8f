package types

import (
	"time"

	"github.com/google/uuid"
)

type Skill struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

type SkillCreateDto struct {
	Name string `json:"name" validate:"required,max=64"`
}

type Endorsement struct {
	ID         uuid.UUID `json:"id"`
	SkillID    uuid.UUID `json:"skillId"`
	EndorseeID uuid.UUID `json:"endorseeId"`
	EndorserID uuid.UUID `json:"endorserId"`
	CreatedAt  time.Time `json:"created_at"`
}

type EndorseRequest struct {
	SkillID    uuid.UUID `json:"skillId" validate:"required"`
	EndorseeID uuid.UUID `json:"endorseeId" validate:"required"`
}

// UserSkill is a skill of a user with how many people endorsed it.
type UserSkill struct {
	SkillID      uuid.UUID `json:"skillId"`
	Name         string    `json:"name"`
	Endorsements int64     `json:"endorsements"`
}
