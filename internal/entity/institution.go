package entity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Contact struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Institution is a school tracked as a lead.
type Institution struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Rector      Contact `json:"rector"`
	Counterpart Contact `json:"counterpart"`
	Website     string  `json:"website,omitempty"`
	Country     string  `json:"country"`
	City        string  `json:"city"`
	Address     string  `json:"address,omitempty"`

	FirstContact         time.Time  `json:"first_contact"`
	LastInteraction      *time.Time `json:"last_interaction,omitempty"`
	InitialContactMedium Medium     `json:"initial_contact_medium"`

	NumTeachers int     `json:"num_teachers"`
	NumStudents int     `json:"num_students"`
	AvgFee      float64 `json:"avg_fee"`

	Stage            Stage      `json:"stage"`
	Substage         Substage   `json:"substage"`
	ProgramProposed  string     `json:"program_proposed"`
	ProposalValue    float64    `json:"proposal_value"`
	ContractStart    *time.Time `json:"contract_start,omitempty"`
	ContractEnd      *time.Time `json:"contract_end,omitempty"`
	Observations     string     `json:"observations,omitempty"`
	OwnerID          *string    `json:"owner_id,omitempty"`
	OwnerName        string     `json:"owner_name,omitempty"`
	NoInterestReason string     `json:"no_interest_reason,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewInstitution(name string, rector, counterpart Contact, now time.Time) *Institution {
	today := DateOf(now)
	return &Institution{
		ID:                   uuid.New().String(),
		Name:                 strings.TrimSpace(name),
		Rector:               rector,
		Counterpart:          counterpart,
		Country:              "Ecuador",
		FirstContact:         today,
		LastInteraction:      &today,
		InitialContactMedium: MediumWhatsapp,
		Stage:                StageQueued,
		Substage:             SubstageFirstMeeting,
		ProgramProposed:      DefaultProgram,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
}

func (i *Institution) Position() Position {
	return Position{Stage: i.Stage, Substage: i.Substage}
}

// PotentialValue is the yearly value of the school if every teacher joins.
func (i *Institution) PotentialValue() float64 {
	return float64(i.NumTeachers) * i.AvgFee
}

// Normalize clears fields that only make sense in some stages.
func (i *Institution) Normalize() {
	if i.Stage != StageNotInterested {
		i.NoInterestReason = ""
	}
}

func (i *Institution) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return errors.New("name is required")
	}
	if i.Rector.Name == "" || i.Rector.Email == "" || i.Rector.Phone == "" {
		return errors.New("rector name, email and phone are required")
	}
	if i.Counterpart.Name == "" || i.Counterpart.Email == "" || i.Counterpart.Phone == "" {
		return errors.New("counterpart name, email and phone are required")
	}
	if err := i.Position().Validate(); err != nil {
		return err
	}
	if i.NumTeachers < 0 || i.NumStudents < 0 || i.AvgFee < 0 || i.ProposalValue < 0 {
		return errors.New("numeric fields must not be negative")
	}
	if i.ContractStart != nil && i.ContractEnd != nil && i.ContractEnd.Before(*i.ContractStart) {
		return errors.New("contract end must not be before contract start")
	}
	return nil
}

// IsStale reports whether the lead has had no contact since cutoff.
func (i *Institution) IsStale(cutoff time.Time) bool {
	return i.LastInteraction == nil || i.LastInteraction.Before(cutoff)
}

type InstitutionFilter struct {
	Stages      []Stage
	Substage    Substage
	Medium      Medium
	Country     string
	City        string
	OwnerID     string
	Query       string
	StaleBefore *time.Time
	Limit       int
	Offset      int
}

type InstitutionRepository interface {
	Create(ctx context.Context, i *Institution) error
	Update(ctx context.Context, i *Institution) error
	UpdatePosition(ctx context.Context, id string, pos Position) error
	// TouchLastInteraction moves last_interaction forward to date, never back.
	TouchLastInteraction(ctx context.Context, id string, date time.Time) error
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*Institution, error)
	List(ctx context.Context, f InstitutionFilter) ([]Institution, error)
	Count(ctx context.Context, f InstitutionFilter) (int, error)
}

// DateOf returns the calendar day of t, in t's location, as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
