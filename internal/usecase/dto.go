package usecase

import (
	"time"

	"github.com/xavierca1/muyu-crm/internal/entity"
)

type ContactInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,phone"`
}

type InstitutionInput struct {
	Name        string       `json:"name" validate:"required,max=200"`
	Rector      ContactInput `json:"rector"`
	Counterpart ContactInput `json:"counterpart"`
	Website     string       `json:"website" validate:"omitempty,max=300"`
	Country     string       `json:"country" validate:"omitempty,max=100"`
	City        string       `json:"city" validate:"omitempty,max=100"`
	Address     string       `json:"address" validate:"omitempty,max=300"`

	FirstContact         string `json:"first_contact" validate:"date"`
	LastInteraction      string `json:"last_interaction" validate:"date"`
	InitialContactMedium string `json:"initial_contact_medium"`

	NumTeachers int     `json:"num_teachers" validate:"gte=0"`
	NumStudents int     `json:"num_students" validate:"gte=0"`
	AvgFee      float64 `json:"avg_fee" validate:"gte=0"`

	Stage            string  `json:"stage"`
	Substage         string  `json:"substage"`
	ProgramProposed  string  `json:"program_proposed"`
	ProposalValue    float64 `json:"proposal_value" validate:"gte=0"`
	ContractStart    string  `json:"contract_start" validate:"date"`
	ContractEnd      string  `json:"contract_end" validate:"date"`
	Observations     string  `json:"observations" validate:"max=5000"`
	OwnerID          string  `json:"owner_id"`
	NoInterestReason string  `json:"no_interest_reason" validate:"max=1000"`

	// InteractionDate dates the pipeline interaction written when an edit
	// changes stage or substage. Defaults to today.
	InteractionDate string `json:"interaction_date" validate:"date"`
}

type ListInstitutionsInput struct {
	Stages    []string `json:"stages"`
	Substage  string   `json:"substage"`
	Medium    string   `json:"medium"`
	Country   string   `json:"country"`
	City      string   `json:"city"`
	OwnerID   string   `json:"owner_id"`
	Query     string   `json:"q"`
	StaleOnly bool     `json:"stale_only"`
	Page      int      `json:"page"`
	PerPage   int      `json:"per_page"`
}

type InstitutionPage struct {
	Items   []entity.Institution `json:"items"`
	Total   int                  `json:"total"`
	Page    int                  `json:"page"`
	PerPage int                  `json:"per_page"`
}

type BoardColumn struct {
	Stage entity.Stage         `json:"stage"`
	Label string               `json:"label"`
	Count int                  `json:"count"`
	Items []entity.Institution `json:"items"`
}

type MoveStageInput struct {
	Stage    string `json:"stage"`
	Substage string `json:"substage"`
	Date     string `json:"date" validate:"date"`
	Notes    string `json:"notes" validate:"max=5000"`
}

type MoveStageOutput struct {
	Institution *entity.Institution `json:"institution"`
	Changed     bool                `json:"changed"`
	Interaction *entity.Interaction `json:"interaction,omitempty"`
	Tasks       []entity.Task       `json:"tasks"`
}

type LogInteractionInput struct {
	Date   string `json:"date" validate:"date"`
	Medium string `json:"medium" validate:"required"`
	Notes  string `json:"notes" validate:"required,max=5000"`
}

type CreateTaskInput struct {
	InstitutionID string `json:"institution_id" validate:"required"`
	Title         string `json:"title" validate:"required,max=200"`
	DueDate       string `json:"due_date" validate:"required,date"`
	Notes         string `json:"notes" validate:"max=5000"`
	AssigneeID    string `json:"assignee_id"`
}

type ListTasksInput struct {
	InstitutionID string `json:"institution_id"`
	AssigneeID    string `json:"assignee_id"`
	Origin        string `json:"origin"`
	Done          *bool  `json:"done"`
}

type StaleLead struct {
	Institution      entity.Institution `json:"institution"`
	DaysSinceContact *int               `json:"days_since_contact"`
}

type StaleFollowUpOutput struct {
	Task    *entity.Task `json:"task"`
	Created bool         `json:"created"`
}

type ImportRow struct {
	Line          int      `json:"line"`
	Name          string   `json:"name,omitempty"`
	InstitutionID string   `json:"institution_id,omitempty"`
	Defaults      []string `json:"defaults,omitempty"`
	Skipped       bool     `json:"skipped"`
	Reason        string   `json:"reason,omitempty"`
}

type ImportReport struct {
	Total   int         `json:"total"`
	Created int         `json:"created"`
	Skipped int         `json:"skipped"`
	Rows    []ImportRow `json:"rows"`
}

type ContactInstitutionInput struct {
	Contact string `json:"contact" validate:"required,oneof=rector counterpart"`
	Channel string `json:"channel" validate:"required,oneof=email whatsapp"`
	// Send delivers WhatsApp messages through the Cloud API instead of
	// returning a link.
	Send bool `json:"send"`
}

type OutboundOutput struct {
	Channel   string `json:"channel"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject,omitempty"`
	Body      string `json:"body"`
	Link      string `json:"link,omitempty"`
	Sent      bool   `json:"sent"`
	MessageID string `json:"message_id,omitempty"`
}

type NotifyTaskInput struct {
	Channel string `json:"channel" validate:"required,oneof=email whatsapp"`
	Send    bool   `json:"send"`
}

type CampaignInput struct {
	Subject    string   `json:"subject" validate:"required,max=300"`
	Body       string   `json:"body" validate:"required"`
	HTML       bool     `json:"html"`
	Recipients []string `json:"recipients" validate:"dive,email"`
	// Institutions selected by filter receive the message at the contacts
	// named by Contacts: rector, counterpart or both.
	Filter   *ListInstitutionsInput `json:"filter"`
	Contacts string                 `json:"contacts" validate:"omitempty,oneof=rector counterpart both"`
}

type RecipientFailure struct {
	Recipient string `json:"recipient"`
	Error     string `json:"error"`
}

type CampaignOutput struct {
	Requested  int                `json:"requested"`
	Dispatched int                `json:"dispatched"`
	Failures   []RecipientFailure `json:"failures,omitempty"`
}

type LoginInput struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginOutput struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *entity.User `json:"user"`
}

type RegisterInput struct {
	Username        string `json:"username" validate:"required,min=3,max=50"`
	Email           string `json:"email" validate:"required,email"`
	FullName        string `json:"full_name" validate:"required,max=200"`
	Phone           string `json:"phone" validate:"omitempty,phone"`
	Password        string `json:"password" validate:"required,min=6"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
	Role            string `json:"role" validate:"required,oneof=sales support"`
}

type CreateUserInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Password string `json:"password" validate:"required,min=6"`
	Role     string `json:"role" validate:"required,oneof=admin sales support"`
}

type UpdateUserInput struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,max=200"`
	Phone    string `json:"phone" validate:"omitempty,phone"`
	Role     string `json:"role" validate:"required,oneof=admin sales support"`
	Active   *bool  `json:"active"`
	// Password is changed only when non-empty.
	Password string `json:"password" validate:"omitempty,min=6"`
}

type UserMetrics struct {
	Total  int                 `json:"total"`
	Active int                 `json:"active"`
	ByRole map[entity.Role]int `json:"by_role"`
}

type SeedUser struct {
	Username string
	Email    string
	FullName string
	Role     entity.Role
	Password string
}

type SeedReport struct {
	Created  []string `json:"created"`
	Existing []string `json:"existing"`
}

type StageCount struct {
	Stage entity.Stage `json:"stage"`
	Label string       `json:"label"`
	Count int          `json:"count"`
	// AvgDaysInPipeline averages days since first contact for leads in this stage.
	AvgDaysInPipeline float64 `json:"avg_days_in_pipeline"`
}

type MediumCount struct {
	Medium entity.Medium `json:"medium"`
	Label  string        `json:"label"`
	Count  int           `json:"count"`
}

type DashboardMetrics struct {
	TotalLeads     int           `json:"total_leads"`
	ByStage        []StageCount  `json:"by_stage"`
	ByMedium       []MediumCount `json:"by_medium"`
	ConversionRate *float64      `json:"conversion_rate"`
	PotentialValue float64       `json:"potential_value"`
	WonValue       float64       `json:"won_value"`
	StaleLeads     int           `json:"stale_leads"`
	OpenTasks      int           `json:"open_tasks"`
	OverdueTasks   int           `json:"overdue_tasks"`
}

type SalesOverview struct {
	Metrics      DashboardMetrics     `json:"metrics"`
	Institutions []entity.Institution `json:"institutions"`
	Tasks        []entity.Task        `json:"tasks"`
}

type DocumentInfo struct {
	ID        string    `json:"id"`
	Filename  string    `json:"filename"`
	Words     int       `json:"words"`
	Chunks    int       `json:"chunks"`
	CreatedAt time.Time `json:"created_at"`
}

type AskDocumentInput struct {
	Question string `json:"question" validate:"required,max=2000"`
}

type DocumentAnswer struct {
	DocumentID string  `json:"document_id"`
	Answer     string  `json:"answer"`
	Chunk      int     `json:"chunk"`
	Score      float64 `json:"score"`
}

type AskTableInput struct {
	Question string `json:"question" validate:"required,max=2000"`
	// FullTable sends every row to the model instead of a sample.
	FullTable bool `json:"full_table"`
}

// Table answer kinds.
const (
	TableAnswerCount     = "count"
	TableAnswerModel     = "answer"
	TableAnswerSendEmail = "send_email"
	TableAnswerMassEmail = "mass_email"
	TableAnswerQuick     = "quick_email"
)

// EmailIntent is an email the assistant proposes. It is never sent by the
// assistant; the user confirms it through a campaign.
type EmailIntent struct {
	Person      string   `json:"person,omitempty"`
	Subject     string   `json:"subject,omitempty"`
	Message     string   `json:"message,omitempty"`
	Recipients  []string `json:"recipients"`
	NameColumn  string   `json:"name_column,omitempty"`
	EmailColumn string   `json:"email_column,omitempty"`
}

type TableAnswer struct {
	Kind         string       `json:"kind"`
	Answer       string       `json:"answer,omitempty"`
	Rows         int          `json:"rows"`
	Columns      []string     `json:"columns"`
	EmailColumns []string     `json:"email_columns,omitempty"`
	Email        *EmailIntent `json:"email,omitempty"`
	Note         string       `json:"note,omitempty"`
	Warnings     []string     `json:"warnings,omitempty"`
}
