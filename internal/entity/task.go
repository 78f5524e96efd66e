package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskOrigin string

const (
	TaskOriginManual     TaskOrigin = "manual"
	TaskOriginPipeline   TaskOrigin = "pipeline"
	TaskOriginStaleAlert TaskOrigin = "stale_alert"
)

type Task struct {
	ID            string     `json:"id"`
	InstitutionID string     `json:"institution_id"`
	AssigneeID    *string    `json:"assignee_id,omitempty"`
	Title         string     `json:"title"`
	DueDate       time.Time  `json:"due_date"`
	Done          bool       `json:"done"`
	Notes         string     `json:"notes,omitempty"`
	Origin        TaskOrigin `json:"origin"`
	CreatedAt     time.Time  `json:"created_at"`

	// filled by list queries
	InstitutionName string `json:"institution_name,omitempty"`
	AssigneeName    string `json:"assignee_name,omitempty"`
}

func NewTask(institutionID, title string, due time.Time, origin TaskOrigin, now time.Time) *Task {
	return &Task{
		ID:            uuid.New().String(),
		InstitutionID: institutionID,
		Title:         title,
		DueDate:       DateOf(due),
		Origin:        origin,
		CreatedAt:     now,
	}
}

// Overdue reports whether an open task is past its due date on day today.
func (t *Task) Overdue(today time.Time) bool {
	return !t.Done && t.DueDate.Before(DateOf(today))
}

type TaskFilter struct {
	InstitutionID string
	AssigneeID    string
	Origin        TaskOrigin
	Done          *bool
}

type TaskRepository interface {
	Create(ctx context.Context, t *Task) error
	FindByID(ctx context.Context, id string) (*Task, error)
	List(ctx context.Context, f TaskFilter) ([]Task, error)
	SetDone(ctx context.Context, id string, done bool) error
	Delete(ctx context.Context, id string) error
}
