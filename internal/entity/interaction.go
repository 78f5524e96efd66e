package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Interaction is an append-only contact event with an institution.
type Interaction struct {
	ID            string    `json:"id"`
	InstitutionID string    `json:"institution_id"`
	Date          time.Time `json:"date"`
	Medium        Medium    `json:"medium"`
	Notes         string    `json:"notes"`
	AuthorID      *string   `json:"author_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func NewInteraction(institutionID string, date time.Time, medium Medium, notes string, now time.Time) *Interaction {
	return &Interaction{
		ID:            uuid.New().String(),
		InstitutionID: institutionID,
		Date:          DateOf(date),
		Medium:        medium,
		Notes:         notes,
		CreatedAt:     now,
	}
}

type InteractionRepository interface {
	// Create stores the interaction and moves the institution's
	// last_interaction forward to its date.
	Create(ctx context.Context, in *Interaction) error
	// ListByInstitution returns newest first.
	ListByInstitution(ctx context.Context, institutionID string) ([]Interaction, error)
}
